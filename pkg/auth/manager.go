package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Exchanger performs token exchanges. Required.
	Exchanger Exchanger

	// Session is called after every successful login, challenge response and
	// refresh. Optional.
	Session SessionEstablisher

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ExpiryMargin defaults to DefaultExpiryMargin.
	ExpiryMargin time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager keeps a session usable across an arbitrarily long-lived client.
// All methods are safe for concurrent use.
type Manager struct {
	exchanger Exchanger
	session   SessionEstablisher
	logger    *slog.Logger
	margin    time.Duration
	now       func() time.Time

	// exchangeMu is held across every network exchange, including the
	// staleness check that precedes a refresh.
	exchangeMu sync.Mutex

	mu          sync.RWMutex
	state       AuthState
	credentials Credentials
	challenge   *Challenge
	tokens      *TokenSet
}

// NewManager creates a manager in StateUnauthenticated.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Exchanger == nil {
		return nil, errors.New("auth: an Exchanger is required")
	}

	m := &Manager{
		exchanger: cfg.Exchanger,
		session:   cfg.Session,
		logger:    cfg.Logger,
		margin:    cfg.ExpiryMargin,
		now:       cfg.Now,
		state:     StateUnauthenticated,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.margin == 0 {
		m.margin = DefaultExpiryMargin
	}
	if m.now == nil {
		m.now = time.Now
	}

	return m, nil
}

// Login authenticates with the given credentials.
//
// With UserPassword Ring may answer with an MFA challenge, reported as an
// error matching ErrMfaCodeRequired; the manager then stays in
// StateMfaRequired until RespondToChallenge succeeds. With RefreshToken the
// password exchange is skipped and exactly one refresh is performed.
//
// Once tokens are obtained the session is registered; if that fails the
// returned error matches ErrSessionFailed but the tokens are kept.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	if creds == nil {
		return errors.New("auth: credentials are required")
	}

	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	m.setState(StateAuthenticating)
	m.logger.Debug("Logging in", "credentials", creds)

	var (
		tokens *TokenSet
		err    error
	)
	switch c := creds.(type) {
	case UserPassword:
		tokens, err = m.exchanger.PasswordGrant(ctx, c.Username, c.Password, "")
	case RefreshToken:
		// An empty access token with a zero expiry is always stale, so the
		// seed goes straight through the refresh path.
		seed := &TokenSet{RefreshToken: c.Value}
		tokens, err = m.refreshLocked(ctx, seed)
	default:
		err = fmt.Errorf("auth: unsupported credentials type %T", creds)
	}

	if err != nil {
		m.loginFailed(creds, err)
		return err
	}

	m.mu.Lock()
	m.credentials = creds
	m.challenge = nil
	m.tokens = tokens
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.logger.Info("Authenticated with Ring", "tokens", tokens)

	return m.establishSession(ctx, tokens)
}

// RespondToChallenge completes an MFA challenge issued during Login by
// re-sending the original username and password together with code.
//
// Any failure, including a wrong code or another challenge, leaves the
// manager in StateMfaRequired with the original credentials so the caller
// may retry or start over with Login.
func (m *Manager) RespondToChallenge(ctx context.Context, code string) error {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	m.mu.RLock()
	state := m.state
	creds, ok := m.credentials.(UserPassword)
	m.mu.RUnlock()

	if state != StateMfaRequired || !ok {
		return ErrNoChallengePending
	}

	tokens, err := m.exchanger.PasswordGrant(ctx, creds.Username, creds.Password, code)
	if err != nil {
		var challengeErr *ChallengeError
		if errors.As(err, &challengeErr) {
			m.mu.Lock()
			m.challenge = &challengeErr.Challenge
			m.mu.Unlock()
		}
		m.logger.Debug("Challenge response failed", "error", err)
		return err
	}

	m.mu.Lock()
	m.challenge = nil
	m.tokens = tokens
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.logger.Info("Completed MFA challenge", "tokens", tokens)

	return m.establishSession(ctx, tokens)
}

// CurrentTokens returns a token snapshot usable for a new request. A fresh
// cached snapshot is returned without any network call; a stale one is
// replaced by exactly one refresh even under concurrent callers, who all
// observe the same resulting snapshot.
func (m *Manager) CurrentTokens(ctx context.Context) (*TokenSet, error) {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	m.mu.RLock()
	state := m.state
	tokens := m.tokens
	m.mu.RUnlock()

	if tokens == nil || state == StateMfaRequired || state == StateUnauthenticated {
		return nil, ErrNotAuthenticated
	}

	if !tokens.Stale(m.now(), m.margin) {
		return tokens, nil
	}

	m.logger.Debug("Access token is stale, refreshing", "tokens", tokens)

	m.setState(StateRefreshing)
	refreshed, err := m.refreshLocked(ctx, tokens)
	if err != nil {
		m.mu.Lock()
		if errors.Is(err, ErrInvalidCredentials) {
			m.tokens = nil
			m.credentials = nil
			m.state = StateUnauthenticated
		} else {
			m.state = StateAuthenticated
		}
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to refresh tokens: %w", err)
	}

	m.mu.Lock()
	m.tokens = refreshed
	m.state = StateAuthenticated
	m.mu.Unlock()

	if err := m.establishSession(ctx, refreshed); err != nil {
		// The refreshed tokens are valid regardless; the next login or
		// refresh registers the session again.
		m.logger.Warn("Failed to re-establish session after refresh", "error", err)
	}

	return refreshed, nil
}

// ExportRefreshToken returns the refresh token of the current session so the
// caller can persist it. If Login used a RefreshToken and no refresh has
// rotated it since, the same value is returned.
func (m *Manager) ExportRefreshToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tokens == nil || m.tokens.RefreshToken == "" {
		return "", false
	}
	return m.tokens.RefreshToken, true
}

// State returns the current auth state.
func (m *Manager) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// PendingChallenge returns the outstanding MFA challenge, if any.
func (m *Manager) PendingChallenge() (Challenge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateMfaRequired || m.challenge == nil {
		return Challenge{}, false
	}
	return *m.challenge, true
}

// TokenSource adapts the manager to oauth2.TokenSource. Every Token call goes
// through CurrentTokens, so refreshes stay single-flight.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	tokens, err := s.manager.CurrentTokens(s.ctx)
	if err != nil {
		return nil, err
	}
	return tokens.OAuth2(), nil
}

// refreshLocked performs the refresh exchange. exchangeMu must be held.
func (m *Manager) refreshLocked(ctx context.Context, current *TokenSet) (*TokenSet, error) {
	next, err := m.exchanger.RefreshGrant(ctx, current.RefreshToken)
	if err != nil {
		return nil, err
	}

	// Ring does not always rotate the refresh token.
	if next.RefreshToken == "" {
		next = &TokenSet{
			AccessToken:  next.AccessToken,
			ExpiresAt:    next.ExpiresAt,
			RefreshToken: current.RefreshToken,
		}
	}

	m.logger.Debug("Refreshed tokens", "tokens", next)
	return next, nil
}

// loginFailed records the outcome of a failed Login. Challenges keep the
// credentials for RespondToChallenge; anything else falls back to whatever
// tokens were held before the attempt.
func (m *Manager) loginFailed(creds Credentials, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		challengeErr   *ChallengeError
		unsupportedErr *UnsupportedChallengeError
	)
	if up, ok := creds.(UserPassword); ok {
		switch {
		case errors.As(err, &challengeErr):
			m.credentials = up
			m.challenge = &challengeErr.Challenge
			m.state = StateMfaRequired
			m.logger.Info("Ring issued an MFA challenge", "method", challengeErr.Challenge.Method)
			return
		case errors.As(err, &unsupportedErr):
			m.credentials = up
			m.challenge = nil
			m.state = StateMfaRequired
			m.logger.Warn("Ring issued an unsupported challenge", "challenge", unsupportedErr.Challenge)
			return
		}
	}

	m.challenge = nil
	if m.tokens != nil {
		m.state = StateAuthenticated
	} else {
		m.credentials = nil
		m.state = StateUnauthenticated
	}
	m.logger.Debug("Login failed", "error", err, "state", m.state.String())
}

func (m *Manager) establishSession(ctx context.Context, tokens *TokenSet) error {
	if m.session == nil {
		return nil
	}
	if err := m.session.EstablishSession(ctx, tokens); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}
	return nil
}

func (m *Manager) setState(state AuthState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
