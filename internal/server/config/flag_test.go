package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		expected  *Config
		expectErr bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-s", "secret", "-l", "debug",
				"-sessions", "/var/lib/sessions", "-files=/var/lib/files", "-proxy", "127.0.0.1:1080",
				"-api-id", "99", "-api-hash", "h", "-cookie-ttl", "90m", "-cookie-secure",
				"-s3-bucket", "b", "-amqp-url", "amqp://x",
			},
			expected: &Config{
				ListenAddr:   "127.0.0.1:9090",
				SecretKey:    "secret",
				LogLevel:     "debug",
				SessionsDir:  "/var/lib/sessions",
				FilesDir:     "/var/lib/files",
				Proxy:        "127.0.0.1:1080",
				APIID:        99,
				APIHash:      "h",
				CookieTTL:    90 * time.Minute,
				CookieSecure: true,
				S3Bucket:     "b",
				AMQPURL:      "amqp://x",
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-verbose", "-a", ":1"},
			expected: &Config{ListenAddr: ":1"},
		},
		{
			name:      "bad value",
			args:      []string{"-api-id", "abc"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
