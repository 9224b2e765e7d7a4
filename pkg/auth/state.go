package auth

// AuthState represents where a Manager is in the login lifecycle.
type AuthState int

const (
	// StateUnauthenticated means no usable tokens are held.
	StateUnauthenticated AuthState = iota

	// StateAuthenticating means a login exchange is in flight.
	StateAuthenticating

	// StateMfaRequired means Ring issued a challenge; RespondToChallenge
	// must be called with the code before tokens are issued.
	StateMfaRequired

	// StateAuthenticated means a token set is held.
	StateAuthenticated

	// StateRefreshing means a stale token set is being replaced.
	StateRefreshing
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateMfaRequired:
		return "mfa_required"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}
