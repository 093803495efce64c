package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

func (c *conn) SendCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", translate(err)
	}
	switch v := any(sent).(type) {
	case *tg.AuthSentCode:
		return v.PhoneCodeHash, nil
	default:
		return "", fmt.Errorf("telegram: unexpected sent code %T", sent)
	}
}

func (c *conn) SignIn(ctx context.Context, phone, code, phoneCodeHash string) error {
	_, err := c.client.Auth().SignIn(ctx, phone, code, phoneCodeHash)
	return translate(err)
}

func (c *conn) CheckPassword(ctx context.Context, password string) error {
	_, err := c.client.Auth().Password(ctx, password)
	return translate(err)
}

func (c *conn) LogOut(ctx context.Context) (bool, error) {
	if _, err := c.api.AuthLogOut(ctx); err != nil {
		return false, translate(err)
	}
	return true, nil
}

// translate maps RPC errors onto platform sentinels, keeping the original in
// the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		sentinel = platform.ErrPasswordNeeded
	case errors.Is(err, auth.ErrPasswordInvalid):
		sentinel = platform.ErrInvalidPassword
	case tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"):
		sentinel = platform.ErrInvalidCode
	case tgerr.Is(err, "PHONE_CODE_EXPIRED"):
		sentinel = platform.ErrCodeExpired
	case tgerr.Is(err, "PASSWORD_HASH_INVALID"):
		sentinel = platform.ErrInvalidPassword
	case tgerr.Is(err, "AUTH_KEY_UNREGISTERED", "SESSION_REVOKED", "USER_DEACTIVATED"):
		sentinel = platform.ErrUnauthorized
	case tgerr.Is(err, "PEER_ID_INVALID", "CHANNEL_INVALID", "CHAT_ID_INVALID", "CHANNEL_PRIVATE"):
		sentinel = platform.ErrPeerNotFound
	case tgerr.Is(err, "MSG_ID_INVALID"):
		sentinel = platform.ErrMessageNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &platform.Error{Err: err}
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
