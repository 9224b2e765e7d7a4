package auth

import "log/slog"

// Credentials is the login method supplied to Manager.Login. It is either
// UserPassword or RefreshToken.
type Credentials interface {
	credentials()
}

// UserPassword logs in with an account's email and password. Ring may
// answer with an MFA challenge, see Manager.RespondToChallenge.
type UserPassword struct {
	Username string
	Password string
}

// RefreshToken logs in with a refresh token issued by an earlier session,
// skipping the password exchange and any MFA challenge.
type RefreshToken struct {
	Value string
}

func (UserPassword) credentials() {}
func (RefreshToken) credentials() {}

// String hides the password.
func (u UserPassword) String() string {
	return "UserPassword{" + u.Username + ", [REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (u UserPassword) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", "user_password"),
		slog.String("username", u.Username),
	)
}

// String hides the token value.
func (r RefreshToken) String() string {
	return "RefreshToken{[REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (r RefreshToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", "refresh_token"),
		slog.Bool("empty", r.Value == ""),
	)
}
