package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/server/auth"
	"github.com/dmitrijs2005/gophgram/internal/server/dialogs"
	"github.com/dmitrijs2005/gophgram/internal/server/messages"
	"github.com/dmitrijs2005/gophgram/internal/server/models"
	"github.com/dmitrijs2005/gophgram/internal/server/token"
)

const maxBodyBytes = 1 << 20

// fail logs err and writes the mapped error envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := mapError(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	}
	writeError(w, code, msg)
}

func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]string{"status": "ready"})
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

type sendCodeResponse struct {
	PhoneCodeHash string `json:"phoneCodeHash"`
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeBody(r, w, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	sid, hash, err := s.svc.Auth.SendCode(r.Context(), req.Phone)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tok, err := token.GenerateToken(sid, s.opts.Secret, s.opts.CookieTTL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, s.sessionCookie(tok))
	writeOK(w, sendCodeResponse{PhoneCodeHash: hash})
}

func (s *Server) sessionCookie(value string) *http.Cookie {
	c := &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if s.opts.CookieTTL > 0 {
		c.MaxAge = int(s.opts.CookieTTL / time.Second)
	}
	return c
}

// loginCode accepts the code as a JSON number or a JSON string.
type loginCode string

func (c *loginCode) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = loginCode(n.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("code must be a number or a string")
	}
	*c = loginCode(str)
	return nil
}

type loginRequest struct {
	Phone         string    `json:"phone"`
	PhoneCodeHash string    `json:"phoneCodeHash"`
	Code          loginCode `json:"code"`
	Password      string    `json:"password,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ref, _ := sessionFrom(r.Context())

	var req loginRequest
	if err := decodeBody(r, w, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	err := s.svc.Auth.Login(r.Context(), ref.ID, ref.Path, auth.LoginRequest{
		Phone:         req.Phone,
		PhoneCodeHash: req.PhoneCodeHash,
		Code:          strings.TrimSpace(string(req.Code)),
		Password:      req.Password,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, nil)
}

// handleLogout removes the credential and expires the cookie once the
// platform confirms the logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ref, _ := sessionFrom(r.Context())

	ok, err := s.svc.Auth.Logout(r.Context(), ref.ID, ref.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if ok {
		err := s.svc.Sessions.WithLock(r.Context(), ref.Path, func(context.Context) error {
			return s.svc.Credentials.Remove(ref.ID)
		})
		if err != nil {
			s.logger.Warn(r.Context(), "remove credential", "session", ref.ID, "error", err)
		}
		c := s.sessionCookie("")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
	writeOK(w, nil)
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", common.ErrValidation, name)
	}
	return v, nil
}

func requiredInt(r *http.Request, name string) (int64, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, fmt.Errorf("%w: %s is required", common.ErrValidation, name)
	}
	return queryInt(r, name, 0)
}

func queryLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", common.DefaultListLimit)
	if err != nil {
		return 0, err
	}
	if limit < 0 || limit > int64(^uint32(0)>>1) {
		return 0, fmt.Errorf("%w: limit out of range", common.ErrValidation)
	}
	return int(limit), nil
}

type dialogsResponse struct {
	Dialogs []models.Dialog `json:"dialogs"`
}

func (s *Server) handleDialogs(w http.ResponseWriter, r *http.Request) {
	ref, _ := sessionFrom(r.Context())

	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := dialogs.Query{Limit: limit}
	if raw := r.URL.Query().Get("offset_date"); raw != "" {
		if q.OffsetDate, err = dialogs.ParseOffsetDate(raw); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	ds, err := s.svc.Dialogs.List(r.Context(), ref.Path, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, dialogsResponse{Dialogs: ds})
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	ref, _ := sessionFrom(r.Context())

	chat, err := requiredInt(r, "chat")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	afterID, err := queryInt(r, "after_id", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filter, err := models.ParseMessageFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ms, err := s.svc.Messages.List(r.Context(), ref.Path, messages.Query{
		ChatID:   chat,
		Limit:    limit,
		Filter:   filter,
		OffsetID: int(afterID),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, messagesResponse{Messages: ms})
}

// handleDownload stages the attachment first and only then starts the
// response, so a failed transfer still gets a JSON error.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ref, _ := sessionFrom(r.Context())

	chat, err := requiredInt(r, "chat")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msgID, err := requiredInt(r, "message_id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	a, err := s.svc.Download.Fetch(r.Context(), ref.ID, ref.Path, chat, int(msgID))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f, err := os.Open(a.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	h := w.Header()
	h.Set("Content-Type", a.Info.Mime)
	if a.Info.Name != nil && *a.Info.Name != "" {
		if cd := mime.FormatMediaType("attachment", map[string]string{"filename": *a.Info.Name}); cd != "" {
			h.Set("Content-Disposition", cd)
		}
	}
	if a.Info.Size != nil {
		h.Set("Content-Length", strconv.FormatInt(*a.Info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn(r.Context(), "serve artifact", "artifact", a.ID, "error", err)
	}
}
