package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/gophgram/internal/flagx"
	"github.com/dmitrijs2005/gophgram/internal/timex"
)

// FileConfig is the on-disk shape of a config file. Durations accept "90s"
// style strings (and integer nanoseconds in JSON). Pointer fields tell an
// absent key from an explicit zero value.
type FileConfig struct {
	ListenAddr   string          `json:"listen_addr" toml:"listen_addr"`
	SessionsDir  string          `json:"sessions_dir" toml:"sessions_dir"`
	FilesDir     string          `json:"files_dir" toml:"files_dir"`
	SecretKey    string          `json:"secret_key" toml:"secret_key"`
	CookieTTL    *timex.Duration `json:"cookie_ttl" toml:"cookie_ttl"`
	CookieSecure *bool           `json:"cookie_secure" toml:"cookie_secure"`
	ReadTimeout  *timex.Duration `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout *timex.Duration `json:"write_timeout" toml:"write_timeout"`
	LogLevel     string          `json:"log_level" toml:"log_level"`

	APIID         int    `json:"api_id" toml:"api_id"`
	APIHash       string `json:"api_hash" toml:"api_hash"`
	Proxy         string `json:"proxy" toml:"proxy"`
	ProxyUser     string `json:"proxy_user" toml:"proxy_user"`
	ProxyPassword string `json:"proxy_password" toml:"proxy_password"`

	ArtifactTTL       *timex.Duration `json:"artifact_ttl" toml:"artifact_ttl"`
	PendingSessionTTL *timex.Duration `json:"pending_session_ttl" toml:"pending_session_ttl"`
	JanitorInterval   *timex.Duration `json:"janitor_interval" toml:"janitor_interval"`

	S3Bucket        string          `json:"s3_bucket" toml:"s3_bucket"`
	S3Region        string          `json:"s3_region" toml:"s3_region"`
	S3Endpoint      string          `json:"s3_endpoint" toml:"s3_endpoint"`
	S3AccessKey     string          `json:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey     string          `json:"s3_secret_key" toml:"s3_secret_key"`
	S3PresignExpiry *timex.Duration `json:"s3_presign_expiry" toml:"s3_presign_expiry"`

	AMQPURL      string `json:"amqp_url" toml:"amqp_url"`
	AMQPExchange string `json:"amqp_exchange" toml:"amqp_exchange"`
}

// parseFile overlays the file named by -c/-config (or GOPHGRAM_CONFIG). A
// ".toml" file is read as TOML, anything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v *timex.Duration) {
		if v != nil {
			*dst = v.Duration
		}
	}

	setStr(&c.ListenAddr, fc.ListenAddr)
	setStr(&c.SessionsDir, fc.SessionsDir)
	setStr(&c.FilesDir, fc.FilesDir)
	setStr(&c.SecretKey, fc.SecretKey)
	setDur(&c.CookieTTL, fc.CookieTTL)
	if fc.CookieSecure != nil {
		c.CookieSecure = *fc.CookieSecure
	}
	setDur(&c.ReadTimeout, fc.ReadTimeout)
	setDur(&c.WriteTimeout, fc.WriteTimeout)
	setStr(&c.LogLevel, fc.LogLevel)

	if fc.APIID != 0 {
		c.APIID = fc.APIID
	}
	setStr(&c.APIHash, fc.APIHash)
	setStr(&c.Proxy, fc.Proxy)
	setStr(&c.ProxyUser, fc.ProxyUser)
	setStr(&c.ProxyPassword, fc.ProxyPassword)

	setDur(&c.ArtifactTTL, fc.ArtifactTTL)
	setDur(&c.PendingSessionTTL, fc.PendingSessionTTL)
	setDur(&c.JanitorInterval, fc.JanitorInterval)

	setStr(&c.S3Bucket, fc.S3Bucket)
	setStr(&c.S3Region, fc.S3Region)
	setStr(&c.S3Endpoint, fc.S3Endpoint)
	setStr(&c.S3AccessKey, fc.S3AccessKey)
	setStr(&c.S3SecretKey, fc.S3SecretKey)
	setDur(&c.S3PresignExpiry, fc.S3PresignExpiry)

	setStr(&c.AMQPURL, fc.AMQPURL)
	setStr(&c.AMQPExchange, fc.AMQPExchange)
}
