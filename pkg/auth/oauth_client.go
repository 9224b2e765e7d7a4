package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ringclient/pkg/platform"
)

const (
	// DefaultTokenEndpoint is Ring's OAuth token endpoint.
	DefaultTokenEndpoint = "https://oauth.ring.com/oauth/token"

	// DefaultHTTPTimeout is the default timeout for token requests.
	DefaultHTTPTimeout = 30 * time.Second

	oauthScope = "client"
)

// Exchanger performs the network half of authentication. OAuthClient is the
// production implementation; tests substitute fakes.
type Exchanger interface {
	// PasswordGrant exchanges a username and password, plus an MFA code when
	// answering a challenge, for a token set.
	PasswordGrant(ctx context.Context, username, password, code string) (*TokenSet, error)

	// RefreshGrant exchanges a refresh token for a new token set.
	RefreshGrant(ctx context.Context, refreshToken string) (*TokenSet, error)
}

// SessionEstablisher registers the client identity with Ring so event
// subscriptions become valid. It is called after every successful login and
// token refresh.
type SessionEstablisher interface {
	EstablishSession(ctx context.Context, tokens *TokenSet) error
}

// SessionEstablisherFunc adapts a function to SessionEstablisher.
type SessionEstablisherFunc func(ctx context.Context, tokens *TokenSet) error

func (f SessionEstablisherFunc) EstablishSession(ctx context.Context, tokens *TokenSet) error {
	return f(ctx, tokens)
}

// OAuthClient talks to Ring's OAuth endpoint.
type OAuthClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	os         platform.OperatingSystem
	hardwareID string
	now        func() time.Time
}

// ClientOption configures the OAuth client.
type ClientOption func(*OAuthClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *OAuthClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *OAuthClient) {
		c.logger = logger
	}
}

// WithEndpoint overrides the token endpoint URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *OAuthClient) {
		c.endpoint = endpoint
	}
}

// WithClientClock overrides the clock used to compute ExpiresAt.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *OAuthClient) {
		c.now = now
	}
}

// NewOAuthClient creates a client identifying as os with the given hardware id.
func NewOAuthClient(os platform.OperatingSystem, hardwareID string, opts ...ClientOption) *OAuthClient {
	c := &OAuthClient{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     slog.Default(),
		endpoint:   DefaultTokenEndpoint,
		os:         os,
		hardwareID: hardwareID,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

type challengeResponse struct {
	TSVState       string `json:"tsv_state"`
	Phone          string `json:"phone"`
	NextTimeInSecs int    `json:"next_time_in_secs"`
}

// PasswordGrant implements Exchanger.
func (c *OAuthClient) PasswordGrant(ctx context.Context, username, password, code string) (*TokenSet, error) {
	return c.doTokenRequest(ctx, tokenRequest{
		ClientID:  c.os.ClientID(),
		GrantType: "password",
		Scope:     oauthScope,
		Username:  username,
		Password:  password,
	}, code)
}

// RefreshGrant implements Exchanger.
func (c *OAuthClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenSet, error) {
	return c.doTokenRequest(ctx, tokenRequest{
		ClientID:     c.os.ClientID(),
		GrantType:    "refresh_token",
		Scope:        oauthScope,
		RefreshToken: refreshToken,
	}, "")
}

func (c *OAuthClient) doTokenRequest(ctx context.Context, body tokenRequest, code string) (*TokenSet, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &OAuthError{Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.os.UserAgent())
	req.Header.Set("hardware_id", c.hardwareID)
	req.Header.Set("2fa-support", "true")
	if code != "" {
		req.Header.Set("2fa-code", code)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &OAuthError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &OAuthError{StatusCode: resp.StatusCode, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return c.decodeTokens(data)
	case http.StatusPreconditionFailed:
		return nil, decodeChallenge(data)
	case http.StatusBadRequest, http.StatusUnauthorized:
		c.logger.Debug("Token request rejected",
			"grant_type", body.GrantType,
			"status", resp.StatusCode)
		return nil, ErrInvalidCredentials
	default:
		c.logger.Debug("Token request failed",
			"grant_type", body.GrantType,
			"status", resp.StatusCode)
		return nil, &OAuthError{StatusCode: resp.StatusCode}
	}
}

func (c *OAuthClient) decodeTokens(data []byte) (*TokenSet, error) {
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, &InvalidResponseError{Err: err}
	}
	if tr.AccessToken == "" {
		return nil, &InvalidResponseError{Err: errors.New("response did not contain an access token")}
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else {
		exp, err := accessTokenExpiry(tr.AccessToken)
		if err != nil {
			return nil, &InvalidResponseError{Err: fmt.Errorf("response did not contain an expiry: %w", err)}
		}
		expiresAt = exp
	}

	return &TokenSet{
		AccessToken:  tr.AccessToken,
		ExpiresAt:    expiresAt,
		RefreshToken: tr.RefreshToken,
	}, nil
}

// accessTokenExpiry reads the exp claim of a JWT access token without
// verifying its signature. Only used when the response omits expires_in.
func accessTokenExpiry(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return exp.Time, nil
}

func decodeChallenge(data []byte) error {
	var cr challengeResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return &InvalidResponseError{Err: err}
	}

	switch cr.TSVState {
	case "sms", "email", "totp":
		return &ChallengeError{Challenge: Challenge{Method: cr.TSVState, Destination: cr.Phone}}
	default:
		return &UnsupportedChallengeError{Challenge: cr.TSVState}
	}
}
