package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophgram/internal/common"
	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses an international number and returns it in E.164.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: phone is required", common.ErrValidation)
	}
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + raw
	}

	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("%w: phone: %v", common.ErrValidation, err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", fmt.Errorf("%w: phone: not a possible number", common.ErrValidation)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// validCode reports whether code looks like a login code.
func validCode(code string) bool {
	if code == "" || len(code) > 16 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
