// Package config handles configuration for the server component: defaults,
// the environment (optionally seeded from a .env file), a JSON or TOML file
// overlay and command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the gophgram server.
type Config struct {
	ListenAddr  string
	SessionsDir string
	FilesDir    string
	// SecretKey signs session cookies and seals credential blobs.
	SecretKey    string
	CookieTTL    time.Duration
	CookieSecure bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LogLevel     string

	APIID         int
	APIHash       string
	Proxy         string
	ProxyUser     string
	ProxyPassword string

	ArtifactTTL       time.Duration
	PendingSessionTTL time.Duration
	JanitorInterval   time.Duration

	// S3Bucket enables the archive mirror when set.
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PresignExpiry time.Duration

	// AMQPURL enables the RabbitMQ event publisher when set.
	AMQPURL      string
	AMQPExchange string
}

// LoadDefaults populates Config with development defaults. There is no
// default secret or API credential.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.SessionsDir = "sessions"
	c.FilesDir = "files"
	c.CookieTTL = 30 * 24 * time.Hour
	c.ReadTimeout = 30 * time.Second
	c.WriteTimeout = 10 * time.Minute
	c.LogLevel = "info"
	c.ArtifactTTL = time.Hour
	c.PendingSessionTTL = time.Hour
	c.JanitorInterval = 5 * time.Minute
	c.S3Region = "us-east-1"
	c.S3PresignExpiry = 15 * time.Minute
	c.AMQPExchange = "gophgram.events"
}

// Load builds a Config from defaults, dotEnvFile (ignored when missing), the
// environment, the optional config file named in args and finally the flags
// in args. It does not validate.
func Load(args []string, dotEnvFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load followed by Validate.
func LoadConfig(args []string) (*Config, error) {
	cfg, err := Load(args, ".env")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.APIID <= 0 {
		errs = append(errs, errors.New("TELEGRAM_API_ID must be a positive number"))
	}
	if c.APIHash == "" {
		errs = append(errs, errors.New("TELEGRAM_API_HASH can not be empty"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key can not be empty"))
	}
	if c.SessionsDir == "" || c.FilesDir == "" {
		errs = append(errs, errors.New("sessions and files directories are required"))
	}
	if c.JanitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("janitor interval must be positive, got %s", c.JanitorInterval))
	}
	return errors.Join(errs...)
}
