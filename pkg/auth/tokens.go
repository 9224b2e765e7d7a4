package auth

import (
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiryMargin is subtracted from ExpiresAt when deciding staleness.
// This accounts for clock skew and network latency.
const DefaultExpiryMargin = 30 * time.Second

// TokenSet is an access/refresh token pair. Values handed out by a Manager
// are shared snapshots and must not be modified; a refresh replaces the
// snapshot instead of mutating it.
type TokenSet struct {
	// AccessToken is the bearer token sent on API requests.
	AccessToken string

	// ExpiresAt is when AccessToken stops being accepted.
	ExpiresAt time.Time

	// RefreshToken obtains the next TokenSet.
	RefreshToken string
}

// Stale reports whether the token set must not be used for new requests at
// now, treating tokens that expire within margin as already expired. A zero
// ExpiresAt is always stale.
func (t *TokenSet) Stale(now time.Time, margin time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return true
	}
	return !now.Add(margin).Before(t.ExpiresAt)
}

// OAuth2 converts the snapshot to an oauth2.Token for use with
// golang.org/x/oauth2 transports.
func (t *TokenSet) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

// String implements fmt.Stringer without revealing token values.
func (t *TokenSet) String() string {
	if t == nil {
		return "TokenSet{<nil>}"
	}
	return "TokenSet{[REDACTED], expires " + t.ExpiresAt.Format(time.RFC3339) + "}"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (t *TokenSet) GoString() string {
	return "auth." + t.String()
}

// LogValue implements slog.LogValuer so token sets can be logged as
// attributes without leaking credentials.
func (t *TokenSet) LogValue() slog.Value {
	if t == nil {
		return slog.StringValue("<nil>")
	}
	return slog.GroupValue(
		slog.Time("expires_at", t.ExpiresAt),
		slog.Bool("has_refresh_token", t.RefreshToken != ""),
	)
}
