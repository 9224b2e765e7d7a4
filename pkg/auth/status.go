package auth

import "time"

// StatusResponse is a point-in-time view of a Manager, suitable for display
// or JSON output. It never carries token values.
type StatusResponse struct {
	// State is the auth state name, e.g. "authenticated".
	State string `json:"state"`

	// Authenticated is true when a token set is held.
	Authenticated bool `json:"authenticated"`

	// ExpiresAt is when the current access token expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// HasRefreshToken reports whether ExportRefreshToken would succeed.
	HasRefreshToken bool `json:"has_refresh_token"`

	// Challenge is present when State == "mfa_required"
	Challenge *ChallengeInfo `json:"challenge,omitempty"`
}

// ChallengeInfo contains information about an outstanding MFA challenge.
type ChallengeInfo struct {
	Method      string `json:"method"`
	Destination string `json:"destination,omitempty"`
}

// Status returns a snapshot of the manager without triggering a refresh.
func (m *Manager) Status() StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := StatusResponse{
		State:         m.state.String(),
		Authenticated: m.tokens != nil && m.state != StateMfaRequired && m.state != StateUnauthenticated,
	}
	if m.tokens != nil {
		exp := m.tokens.ExpiresAt
		if !exp.IsZero() {
			status.ExpiresAt = &exp
		}
		status.HasRefreshToken = m.tokens.RefreshToken != ""
	}
	if m.state == StateMfaRequired && m.challenge != nil {
		status.Challenge = &ChallengeInfo{
			Method:      m.challenge.Method,
			Destination: m.challenge.Destination,
		}
	}
	return status
}
