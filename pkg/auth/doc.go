// Package auth implements the token lifecycle for the Ring client.
//
// A Manager owns the credential state machine and the current TokenSet. It
// decides when tokens must be (re)obtained, performs the OAuth exchange
// through an Exchanger, surfaces MFA challenges to the caller, and
// re-registers the client session after every successful authentication.
//
// # States
//
//	Unauthenticated -> Authenticating -> Authenticated
//	                                  -> MfaRequired -> Authenticated
//	Authenticated -> Refreshing -> Authenticated
//
// MfaRequired keeps the username and password supplied to Login so that
// RespondToChallenge can re-send them together with the code.
//
// # Refresh
//
// CurrentTokens returns the cached snapshot while it is fresh and never
// touches the network in that case. Once stale, exactly one refresh is
// performed no matter how many goroutines ask concurrently: the exchange
// runs under a single mutex held across the network call, and late callers
// observe the snapshot it produced.
//
// # Secrets
//
// TokenSet and UserPassword implement slog.LogValuer and fmt.Stringer so
// that token and password values never reach log output.
package auth
