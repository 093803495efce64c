package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/dmitrijs2005/gophgram/internal/platform"
)

type envelope struct {
	OK    bool    `json:"ok"`
	Error *string `json:"error"`
	Data  any     `json:"data"`
}

type empty struct{}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeOK(w http.ResponseWriter, data any) {
	if data == nil {
		data = empty{}
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Error: &msg, Data: empty{}})
}

// clientErrors are reported with their own message; everything else is
// reported generically.
var clientErrors = []struct {
	err  error
	code int
}{
	{common.ErrForbidden, http.StatusForbidden},
	{common.ErrValidation, http.StatusForbidden},
	{common.ErrUnsupportedFilter, http.StatusForbidden},
	{common.ErrInvalidAuthState, http.StatusForbidden},
	{common.ErrPasswordRequired, http.StatusForbidden},
	{common.ErrInvalidCode, http.StatusForbidden},
	{common.ErrInvalidPassword, http.StatusForbidden},
	{platform.ErrUnauthorized, http.StatusForbidden},
	{common.ErrUnknownChat, http.StatusNotFound},
	{common.ErrMessageNotFound, http.StatusNotFound},
	{common.ErrNoMedia, http.StatusUnprocessableEntity},
	{common.ErrUnsupportedMediaKind, http.StatusUnprocessableEntity},
}

// mapError picks the status and the client-facing message for err.
func mapError(err error) (int, string) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return ce.code, ce.err.Error()
		}
	}
	if isPlatformError(err) {
		return http.StatusBadGateway, "platform error"
	}
	return http.StatusInternalServerError, "internal error"
}

var platformErrors = []error{
	platform.ErrPasswordNeeded,
	platform.ErrInvalidCode,
	platform.ErrCodeExpired,
	platform.ErrInvalidPassword,
	platform.ErrPeerNotFound,
	platform.ErrMessageNotFound,
}

func isPlatformError(err error) bool {
	for _, pe := range platformErrors {
		if errors.Is(err, pe) {
			return true
		}
	}
	var pe *platform.Error
	return errors.As(err, &pe)
}
