package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when Ring rejects the username,
	// password, refresh token or challenge code.
	ErrInvalidCredentials = errors.New("the credentials provided were invalid")

	// ErrMfaCodeRequired is returned by Login when Ring issued an MFA
	// challenge. Complete it with Manager.RespondToChallenge.
	ErrMfaCodeRequired = errors.New("an MFA code is required to complete the authentication process")

	// ErrSessionFailed is returned when tokens were obtained but registering
	// the client session with Ring failed. The tokens remain usable.
	ErrSessionFailed = errors.New("failed to set the session details with Ring")

	// ErrNotAuthenticated is returned by CurrentTokens before a successful login.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoChallengePending is returned by RespondToChallenge when no MFA
	// challenge is outstanding.
	ErrNoChallengePending = errors.New("no authentication challenge is pending")
)

// Challenge describes an MFA challenge issued by Ring.
type Challenge struct {
	// Method is how the code was delivered, e.g. "sms", "email" or "totp".
	Method string

	// Destination is the masked phone number or address the code was sent to.
	Destination string
}

// ChallengeError carries a supported challenge. It matches ErrMfaCodeRequired
// under errors.Is.
type ChallengeError struct {
	Challenge Challenge
}

func (e *ChallengeError) Error() string {
	if e.Challenge.Destination != "" {
		return fmt.Sprintf("%s (code sent via %s to %s)", ErrMfaCodeRequired, e.Challenge.Method, e.Challenge.Destination)
	}
	return fmt.Sprintf("%s (code sent via %s)", ErrMfaCodeRequired, e.Challenge.Method)
}

func (e *ChallengeError) Is(target error) bool {
	return target == ErrMfaCodeRequired
}

// UnsupportedChallengeError is returned when Ring presents a challenge this
// client cannot complete.
type UnsupportedChallengeError struct {
	Challenge string
}

func (e *UnsupportedChallengeError) Error() string {
	return fmt.Sprintf("the presented challenge is not supported. Challenge was: %s", e.Challenge)
}

// OAuthError reports a failure talking to the OAuth endpoint: either a
// transport error or an unexpected HTTP status.
type OAuthError struct {
	StatusCode int
	Err        error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error communicating with the Ring OAuth API: %v", e.Err)
	}
	return fmt.Sprintf("Ring OAuth API returned status %d", e.StatusCode)
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// InvalidResponseError reports a token response that could not be decoded.
type InvalidResponseError struct {
	Err error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("error decoding the response from the Ring OAuth API: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.Err
}
