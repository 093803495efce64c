package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/server/token"
)

type ctxKey string

const sessionKey ctxKey = "session"

// sessionRef is the resolved session of a request.
type sessionRef struct {
	ID   string
	Path string
}

func sessionFrom(ctx context.Context) (sessionRef, bool) {
	ref, ok := ctx.Value(sessionKey).(sessionRef)
	return ref, ok
}

// requireSession resolves the session cookie to a credential file before
// next runs. Any failure is a 403 and never reaches the platform.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(common.SessionCookieName)
		if err != nil || c.Value == "" {
			s.fail(w, r, common.ErrForbidden)
			return
		}

		sid, err := token.GetSessionIDFromToken(c.Value, s.opts.Secret)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		path, err := s.svc.Credentials.Resolve(sid)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sessionRef{ID: sid, Path: path})
		next(w, r.WithContext(ctx))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start).String(),
		)
	})
}
