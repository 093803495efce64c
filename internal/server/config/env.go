package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var lookupEnv = os.LookupEnv

// loadDotEnv copies variables from path into the environment without
// overriding ones already set.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func dur(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

var envVars = []envVar{
	{"TELEGRAM_API_ID", func(c *Config, v string) error {
		id, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("TELEGRAM_API_ID should be a number")
		}
		c.APIID = id
		return nil
	}},
	{"TELEGRAM_API_HASH", str(func(c *Config) *string { return &c.APIHash })},
	{"GOPHGRAM_ADDR", str(func(c *Config) *string { return &c.ListenAddr })},
	{"GOPHGRAM_SESSIONS_DIR", str(func(c *Config) *string { return &c.SessionsDir })},
	{"GOPHGRAM_FILES_DIR", str(func(c *Config) *string { return &c.FilesDir })},
	{"GOPHGRAM_SECRET", str(func(c *Config) *string { return &c.SecretKey })},
	{"GOPHGRAM_COOKIE_TTL", dur(func(c *Config) *time.Duration { return &c.CookieTTL })},
	{"GOPHGRAM_COOKIE_SECURE", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.CookieSecure = b
		return nil
	}},
	{"GOPHGRAM_LOG_LEVEL", str(func(c *Config) *string { return &c.LogLevel })},
	{"GOPHGRAM_PROXY", str(func(c *Config) *string { return &c.Proxy })},
	{"GOPHGRAM_PROXY_USER", str(func(c *Config) *string { return &c.ProxyUser })},
	{"GOPHGRAM_PROXY_PASSWORD", str(func(c *Config) *string { return &c.ProxyPassword })},
	{"GOPHGRAM_ARTIFACT_TTL", dur(func(c *Config) *time.Duration { return &c.ArtifactTTL })},
	{"GOPHGRAM_PENDING_TTL", dur(func(c *Config) *time.Duration { return &c.PendingSessionTTL })},
	{"GOPHGRAM_JANITOR_INTERVAL", dur(func(c *Config) *time.Duration { return &c.JanitorInterval })},
	{"GOPHGRAM_S3_BUCKET", str(func(c *Config) *string { return &c.S3Bucket })},
	{"GOPHGRAM_S3_REGION", str(func(c *Config) *string { return &c.S3Region })},
	{"GOPHGRAM_S3_ENDPOINT", str(func(c *Config) *string { return &c.S3Endpoint })},
	{"GOPHGRAM_S3_ACCESS_KEY", str(func(c *Config) *string { return &c.S3AccessKey })},
	{"GOPHGRAM_S3_SECRET_KEY", str(func(c *Config) *string { return &c.S3SecretKey })},
	{"GOPHGRAM_AMQP_URL", str(func(c *Config) *string { return &c.AMQPURL })},
	{"GOPHGRAM_AMQP_EXCHANGE", str(func(c *Config) *string { return &c.AMQPExchange })},
}

// parseEnv overlays every variable that is set and non-empty.
func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.name, err))
		}
	}
	return errors.Join(errs...)
}
