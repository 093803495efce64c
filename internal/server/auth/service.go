// Package auth implements the login state machine:
//
//	unauthenticated --SendCode--> code_sent --Login--> authenticated
//
// Failed attempts never move the credential. The state lives in the
// credential file so it survives restarts.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/logging"
	"github.com/dmitrijs2005/gophgram/internal/platform"
	"github.com/dmitrijs2005/gophgram/internal/server/credentials"
	"github.com/dmitrijs2005/gophgram/internal/server/events"
	"github.com/dmitrijs2005/gophgram/internal/server/session"
)

// Emitter receives auth notifications.
type Emitter interface {
	Emit(ctx context.Context, typ, sessionID string, data any)
}

type Service struct {
	store   *credentials.Store
	factory *session.Factory
	events  Emitter
	log     logging.Logger
}

func NewService(store *credentials.Store, factory *session.Factory, em Emitter, log logging.Logger) *Service {
	return &Service{
		store:   store,
		factory: factory,
		events:  em,
		log:     log.With("module", "auth"),
	}
}

// SendCode creates a credential and asks the platform for a login code.
// On failure the fresh credential is removed again.
func (s *Service) SendCode(ctx context.Context, phone string) (sessionID, phoneCodeHash string, err error) {
	phone, err = NormalizePhone(phone)
	if err != nil {
		return "", "", err
	}

	id, path, err := s.store.Create(ctx)
	if err != nil {
		return "", "", fmt.Errorf("create credential: %w", err)
	}

	err = s.factory.WithHandle(ctx, path, func(ctx context.Context, h *session.Handle) error {
		hash, err := h.Conn.SendCode(ctx, phone)
		if err != nil {
			return fmt.Errorf("send code: %w", err)
		}
		if err := h.Credential.BeginLogin(ctx, phone, hash); err != nil {
			return err
		}
		phoneCodeHash = hash
		return nil
	})
	if err != nil {
		if rerr := s.store.Remove(id); rerr != nil {
			s.log.Warn(ctx, "failed to remove credential", "session", id, "error", rerr)
		}
		return "", "", err
	}

	s.log.Info(ctx, "code sent", "session", id)
	s.events.Emit(ctx, events.CodeSent, id, nil)
	return id, phoneCodeHash, nil
}

// LoginRequest is the second step of the flow. Password is only consulted
// when the account has a second factor.
type LoginRequest struct {
	Phone         string
	PhoneCodeHash string
	Code          string
	Password      string
}

func (s *Service) Login(ctx context.Context, sessionID, path string, req LoginRequest) error {
	if !validCode(req.Code) {
		return fmt.Errorf("%w: code must be numeric", common.ErrValidation)
	}
	// An unparsable phone cannot match the pending one; let the state check
	// report it.
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		phone = req.Phone
	}

	err = s.factory.WithHandle(ctx, path, func(ctx context.Context, h *session.Handle) error {
		st, err := h.Credential.State(ctx)
		if err != nil {
			return err
		}
		if st != credentials.StateCodeSent {
			return fmt.Errorf("%w: credential is %s", common.ErrInvalidAuthState, st)
		}

		pendingPhone, pendingHash, err := h.Credential.PendingLogin(ctx)
		if err != nil {
			return err
		}
		if pendingPhone != phone ||
			subtle.ConstantTimeCompare([]byte(pendingHash), []byte(req.PhoneCodeHash)) != 1 {
			return fmt.Errorf("%w: unknown login attempt", common.ErrInvalidAuthState)
		}

		if err := s.signIn(ctx, h.Conn, phone, req); err != nil {
			return err
		}
		return h.Credential.CompleteLogin(ctx)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "authenticated", "session", sessionID)
	s.events.Emit(ctx, events.Authenticated, sessionID, nil)
	return nil
}

func (s *Service) signIn(ctx context.Context, conn platform.Conn, phone string, req LoginRequest) error {
	err := conn.SignIn(ctx, phone, req.Code, req.PhoneCodeHash)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, platform.ErrPasswordNeeded):
		if req.Password == "" {
			return common.ErrPasswordRequired
		}
	case errors.Is(err, platform.ErrInvalidCode):
		return common.ErrInvalidCode
	case errors.Is(err, platform.ErrCodeExpired):
		return fmt.Errorf("%w: code expired", common.ErrInvalidAuthState)
	default:
		return fmt.Errorf("sign in: %w", err)
	}

	err = conn.CheckPassword(ctx, req.Password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, platform.ErrInvalidPassword):
		return common.ErrInvalidPassword
	default:
		return fmt.Errorf("check password: %w", err)
	}
}

// Logout ends the platform session. A credential that never completed login
// has nothing to end and reports true without a platform call. The
// credential file is left in place.
func (s *Service) Logout(ctx context.Context, sessionID, path string) (bool, error) {
	var ok bool
	err := s.factory.WithHandle(ctx, path, func(ctx context.Context, h *session.Handle) error {
		st, err := h.Credential.State(ctx)
		if err != nil {
			return err
		}
		if st != credentials.StateAuthenticated {
			ok = true
			return nil
		}

		ok, err = h.Conn.LogOut(ctx)
		if err != nil {
			return fmt.Errorf("log out: %w", err)
		}
		if ok {
			return h.Credential.SetState(ctx, credentials.StateUnauthenticated)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if ok {
		s.log.Info(ctx, "logged out", "session", sessionID)
		s.events.Emit(ctx, events.LoggedOut, sessionID, nil)
	}
	return ok, nil
}
