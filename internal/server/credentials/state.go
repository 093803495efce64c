package credentials

import "fmt"

// AuthState is the persisted position of a credential in the login flow.
type AuthState string

const (
	StateUnauthenticated AuthState = "unauthenticated"
	StateCodeSent        AuthState = "code_sent"
	StateAuthenticated   AuthState = "authenticated"
)

func ParseAuthState(s string) (AuthState, error) {
	switch st := AuthState(s); st {
	case StateUnauthenticated, StateCodeSent, StateAuthenticated:
		return st, nil
	case "":
		return StateUnauthenticated, nil
	default:
		return "", fmt.Errorf("unknown auth state %q", s)
	}
}
