package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophgram/internal/flagx"
)

var serverFlags = []string{
	"-a", "-s", "-l", "-sessions", "-files", "-proxy",
	"-api-id", "-api-hash", "-cookie-ttl", "-cookie-secure",
	"-s3-bucket", "-amqp-url",
}

// parseFlags overlays the server flags found in args.
//
//	-a string          listen address (":8080")
//	-s string          secret key for cookies and credential sealing
//	-l string          log level (debug, info, warn, error)
//	-sessions string   credential directory
//	-files string      staged download directory
//	-proxy string      SOCKS5 proxy "host:port"
//	-api-id int        platform application id
//	-api-hash string   platform application hash
//	-cookie-ttl dur    session cookie lifetime, 0 for a browser session
//	-cookie-secure     mark the session cookie Secure
//	-s3-bucket string  enable the archive mirror
//	-amqp-url string   enable the RabbitMQ event publisher
//
// Unknown arguments are filtered out with flagx.FilterArgs so the config file
// flag and other components' flags do not collide.
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("gophgram", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SessionsDir, "sessions", config.SessionsDir, "credential directory")
	fs.StringVar(&config.FilesDir, "files", config.FilesDir, "staged download directory")
	fs.StringVar(&config.Proxy, "proxy", config.Proxy, "SOCKS5 proxy address")
	fs.IntVar(&config.APIID, "api-id", config.APIID, "platform application id")
	fs.StringVar(&config.APIHash, "api-hash", config.APIHash, "platform application hash")
	fs.DurationVar(&config.CookieTTL, "cookie-ttl", config.CookieTTL, "session cookie lifetime")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "mark the session cookie Secure")
	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket for the archive mirror")
	fs.StringVar(&config.AMQPURL, "amqp-url", config.AMQPURL, "RabbitMQ URL for events")

	return fs.Parse(filtered)
}
