// Package server wires the gophgram components together and runs the HTTP
// facade and its background janitor until the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/platform/telegram"
	"github.com/dmitrijs2005/gophgram/internal/server/archive"
	"github.com/dmitrijs2005/gophgram/internal/server/artifacts"
	"github.com/dmitrijs2005/gophgram/internal/server/auth"
	"github.com/dmitrijs2005/gophgram/internal/server/config"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
	"github.com/dmitrijs2005/gophgram/internal/server/dialogs"
	"github.com/dmitrijs2005/gophgram/internal/server/download"
	"github.com/dmitrijs2005/gophgram/internal/server/events"
	"github.com/dmitrijs2005/gophgram/internal/server/httpapi"
	"github.com/dmitrijs2005/gophgram/internal/server/janitor"
	"github.com/dmitrijs2005/gophgram/internal/server/messages"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	server  *httpapi.Server
	janitor *janitor.Janitor
	bus     *events.Bus
	zap     *zap.Logger
}

// NewApp builds every component. connector may be nil, in which case the
// Telegram adapter is constructed from the config.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, connector platform.Connector) (*App, error) {
	app := &App{config: c, logger: logger}

	if connector == nil {
		app.zap = newZapLogger(c.LogLevel)
		tc, err := telegram.NewConnector(telegram.Options{
			AppID:         c.APIID,
			AppHash:       c.APIHash,
			Proxy:         c.Proxy,
			ProxyUser:     c.ProxyUser,
			ProxyPassword: c.ProxyPassword,
			Logger:        app.zap.Named("telegram"),
		})
		if err != nil {
			return nil, err
		}
		connector = tc
	}

	secret := []byte(c.SecretKey)
	store, err := credentials.NewStore(c.SessionsDir, secret)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}
	stager, err := artifacts.NewStager(c.FilesDir)
	if err != nil {
		return nil, fmt.Errorf("artifact stager: %w", err)
	}

	pub, err := newPublisher(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	app.bus = events.NewBus(pub, logger)

	var mirror download.Mirror
	if c.S3Bucket != "" {
		m, err := archive.New(ctx, archive.Options{
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			Endpoint:      c.S3Endpoint,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			PresignExpiry: c.S3PresignExpiry,
		})
		if err != nil {
			app.bus.Close()
			return nil, fmt.Errorf("archive mirror: %w", err)
		}
		mirror = m
	}

	factory := session.NewFactory(store, connector, logger)

	app.server = httpapi.NewServer(httpapi.Options{
		Addr:         c.ListenAddr,
		Secret:       secret,
		CookieTTL:    c.CookieTTL,
		CookieSecure: c.CookieSecure,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}, httpapi.Services{
		Auth:        auth.NewService(store, factory, app.bus, logger),
		Dialogs:     dialogs.NewService(factory, logger),
		Messages:    messages.NewService(factory, logger),
		Download:    download.NewService(factory, stager, mirror, app.bus, logger),
		Credentials: store,
		Sessions:    factory,
	}, logger)

	app.janitor = janitor.New(stager, store, factory, janitor.Options{
		ArtifactTTL: c.ArtifactTTL,
		PendingTTL:  c.PendingSessionTTL,
	}, logger)

	return app, nil
}

func newPublisher(ctx context.Context, c *config.Config, logger logging.Logger) (events.Publisher, error) {
	if c.AMQPURL == "" {
		return events.NewLogPublisher(logger), nil
	}
	pub, err := events.NewRabbitPublisher(ctx, events.RabbitOptions{
		URL:           c.AMQPURL,
		Exchange:      c.AMQPExchange,
		RetryAttempts: 5,
		Delay:         events.DefaultDialDelay,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	return pub, nil
}

// newZapLogger builds the protocol logger handed to the platform client. It
// is quieter than the application logger unless debugging.
func newZapLogger(level string) *zap.Logger {
	lvl := zapcore.WarnLevel
	if logging.ParseLevel(level) == slog.LevelDebug {
		lvl = zapcore.DebugLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Run serves until ctx is cancelled or the process receives SIGINT, SIGTERM
// or SIGQUIT, then stops the janitor and flushes the event publisher.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	app.janitor.Start(app.config.JanitorInterval)

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server", "error", err)
			runErr = err
			stop()
		}
	}()
	wg.Wait()

	app.janitor.Close()
	err := errors.Join(runErr, app.bus.Close())
	if app.zap != nil {
		_ = app.zap.Sync()
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}

// NewLogger is the application logger: JSON lines on stdout.
func NewLogger(level string) logging.Logger {
	return logging.NewJSONLogger(os.Stdout, level)
}
