// Package httpapi is the HTTP facade: routes, the session cookie, the JSON
// envelope and the mapping of domain errors onto status codes.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/server/auth"
	"github.com/dmitrijs2005/gophgram/internal/server/dialogs"
	"github.com/dmitrijs2005/gophgram/internal/server/download"
	"github.com/dmitrijs2005/gophgram/internal/server/messages"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
)

const shutdownTimeout = 30 * time.Second

type AuthService interface {
	SendCode(ctx context.Context, phone string) (sessionID, phoneCodeHash string, err error)
	Login(ctx context.Context, sessionID, path string, req auth.LoginRequest) error
	Logout(ctx context.Context, sessionID, path string) (bool, error)
}

type DialogService interface {
	List(ctx context.Context, path string, q dialogs.Query) ([]models.Dialog, error)
}

type MessageService interface {
	List(ctx context.Context, path string, q messages.Query) ([]models.Message, error)
}

type DownloadService interface {
	Fetch(ctx context.Context, sessionID, path string, chatID int64, messageID int) (download.Artifact, error)
}

// CredentialStore maps session ids to credential files.
type CredentialStore interface {
	Resolve(id string) (string, error)
	Remove(id string) error
}

// SessionLocker serializes work on one credential with in-flight requests.
type SessionLocker interface {
	WithLock(ctx context.Context, path string, fn func(ctx context.Context) error) error
}

type Services struct {
	Auth        AuthService
	Dialogs     DialogService
	Messages    MessageService
	Download    DownloadService
	Credentials CredentialStore
	Sessions    SessionLocker
}

type Options struct {
	Addr   string
	Secret []byte
	// CookieTTL bounds the session cookie and its token; zero means a
	// browser-session cookie with a token that never expires.
	CookieTTL    time.Duration
	CookieSecure bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	opts   Options
	svc    Services
	logger logging.Logger
}

func NewServer(opts Options, svc Services, l logging.Logger) *Server {
	return &Server{
		opts:   opts,
		svc:    svc,
		logger: l.With("module", "http_server"),
	}
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /send_code", s.handleSendCode)
	mux.HandleFunc("POST /login", s.requireSession(s.handleLogin))
	mux.HandleFunc("POST /logout", s.requireSession(s.handleLogout))
	mux.HandleFunc("GET /dialogs", s.requireSession(s.handleDialogs))
	mux.HandleFunc("GET /messages", s.requireSession(s.handleMessages))
	mux.HandleFunc("GET /message/download", s.requireSession(s.handleDownload))

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
