package ring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"ringclient/internal/api"
	"ringclient/pkg/auth"
	"ringclient/pkg/events"
	"ringclient/pkg/platform"
)

// ErrRefreshFailed is returned by API calls when no usable token could be
// obtained. The underlying auth error is wrapped.
var ErrRefreshFailed = errors.New("failed to refresh the authentication tokens")

type config struct {
	logger        *slog.Logger
	httpClient    *http.Client
	endpoints     api.Endpoints
	tokenEndpoint string
	exchanger     auth.Exchanger
	now           func() time.Time
	expiryMargin  time.Duration
	eventOptions  []events.Option
}

// Option configures a Client.
type Option func(*config)

// WithLogger sets a custom logger for the client and everything it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for OAuth, REST and websocket
// handshakes.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// WithEndpoints overrides the REST base URLs.
func WithEndpoints(endpoints api.Endpoints) Option {
	return func(c *config) {
		c.endpoints = endpoints
	}
}

// WithTokenEndpoint overrides the OAuth token URL.
func WithTokenEndpoint(url string) Option {
	return func(c *config) {
		c.tokenEndpoint = url
	}
}

// WithExchanger replaces the OAuth client entirely.
func WithExchanger(exchanger auth.Exchanger) Option {
	return func(c *config) {
		c.exchanger = exchanger
	}
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithExpiryMargin sets how long before expiry a token is refreshed.
func WithExpiryMargin(margin time.Duration) Option {
	return func(c *config) {
		c.expiryMargin = margin
	}
}

// WithEventOptions adds options applied to every channel opened by Listen.
func WithEventOptions(opts ...events.Option) Option {
	return func(c *config) {
		c.eventOptions = append(c.eventOptions, opts...)
	}
}

// Client is an authenticated Ring account. It is safe for concurrent use.
type Client struct {
	displayName string
	systemID    string
	os          platform.OperatingSystem
	logger      *slog.Logger
	httpClient  *http.Client

	api          *api.Client
	auth         *auth.Manager
	eventOptions []events.Option

	profileMu sync.RWMutex
	profile   *Profile
}

// New creates a client. displayName is how this client appears in the Ring
// app; systemID must be stable per installation since Ring derives the
// device identity from it.
func New(displayName, systemID string, os platform.OperatingSystem, opts ...Option) (*Client, error) {
	if displayName == "" {
		return nil, errors.New("ring: a display name is required")
	}
	if systemID == "" {
		return nil, errors.New("ring: a system id is required")
	}

	cfg := config{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		displayName: displayName,
		systemID:    systemID,
		os:          os,
		logger:      cfg.logger,
		httpClient:  cfg.httpClient,
	}

	apiOpts := []api.Option{api.WithLogger(cfg.logger.With("component", "api"))}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	apiOpts = append(apiOpts, api.WithEndpoints(cfg.endpoints))
	c.api = api.New(os, apiOpts...)

	exchanger := cfg.exchanger
	if exchanger == nil {
		clientOpts := []auth.ClientOption{auth.WithLogger(cfg.logger.With("component", "oauth"))}
		if cfg.httpClient != nil {
			clientOpts = append(clientOpts, auth.WithHTTPClient(cfg.httpClient))
		}
		if cfg.tokenEndpoint != "" {
			clientOpts = append(clientOpts, auth.WithEndpoint(cfg.tokenEndpoint))
		}
		if cfg.now != nil {
			clientOpts = append(clientOpts, auth.WithClientClock(cfg.now))
		}
		exchanger = auth.NewOAuthClient(os, platform.HardwareID(systemID), clientOpts...)
	}

	manager, err := auth.NewManager(auth.ManagerConfig{
		Exchanger:    exchanger,
		Session:      auth.SessionEstablisherFunc(c.establishSession),
		Logger:       cfg.logger.With("component", "auth"),
		ExpiryMargin: cfg.expiryMargin,
		Now:          cfg.now,
	})
	if err != nil {
		return nil, err
	}
	c.auth = manager

	c.eventOptions = []events.Option{
		events.WithLogger(cfg.logger.With("component", "events")),
		events.WithUserAgent(os.UserAgent()),
	}
	if cfg.httpClient != nil {
		c.eventOptions = append(c.eventOptions, events.WithHTTPClient(cfg.httpClient))
	}
	c.eventOptions = append(c.eventOptions, cfg.eventOptions...)

	return c, nil
}

// Login authenticates the client. See auth.Manager.Login.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.auth.Login(ctx, creds)
}

// RespondToChallenge completes a pending MFA challenge.
func (c *Client) RespondToChallenge(ctx context.Context, code string) error {
	return c.auth.RespondToChallenge(ctx, code)
}

// RefreshToken returns the current refresh token for persistence.
func (c *Client) RefreshToken() (string, bool) {
	return c.auth.ExportRefreshToken()
}

// State returns the current auth state.
func (c *Client) State() auth.AuthState {
	return c.auth.State()
}

// Status returns a displayable snapshot of the auth state.
func (c *Client) Status() auth.StatusResponse {
	return c.auth.Status()
}

// PendingChallenge returns the outstanding MFA challenge, if any.
func (c *Client) PendingChallenge() (auth.Challenge, bool) {
	return c.auth.PendingChallenge()
}

// Profile returns the user profile from the most recent session
// registration.
func (c *Client) Profile() (Profile, bool) {
	c.profileMu.RLock()
	defer c.profileMu.RUnlock()

	if c.profile == nil {
		return Profile{}, false
	}
	return *c.profile, true
}

// Devices lists every device in the account.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.Devices(ctx, tokens)
}

// Locations lists the account's locations.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.Locations(ctx, tokens)
}

// Ticket obtains an event channel ticket for locationID. Client satisfies
// events.TicketSource.
func (c *Client) Ticket(ctx context.Context, locationID string) (*Ticket, error) {
	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.Ticket(ctx, tokens, locationID)
}

// Listen opens an event channel to locationID. opts are applied after the
// client's own event options.
func (c *Client) Listen(ctx context.Context, locationID string, handler events.Handler, opts ...events.Option) (*events.Channel, error) {
	all := make([]events.Option, 0, len(c.eventOptions)+len(opts))
	all = append(all, c.eventOptions...)
	all = append(all, opts...)

	c.logger.Debug("Opening event channel", "location_id", locationID)
	return events.OpenLocation(ctx, c, locationID, handler, all...)
}

// HTTPClient returns an HTTP client that authenticates every request with
// the current access token, refreshing it as needed.
func (c *Client) HTTPClient(ctx context.Context) *http.Client {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	return oauth2.NewClient(ctx, c.auth.TokenSource(ctx))
}

func (c *Client) tokens(ctx context.Context) (*auth.TokenSet, error) {
	tokens, err := c.auth.CurrentTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return tokens, nil
}

func (c *Client) establishSession(ctx context.Context, tokens *auth.TokenSet) error {
	session, err := c.api.SetSession(ctx, tokens, c.displayName, c.systemID)
	if err != nil {
		return err
	}

	c.profileMu.Lock()
	c.profile = &session.Profile
	c.profileMu.Unlock()

	return nil
}
