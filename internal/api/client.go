package api

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

	"golang.org/x/sync/singleflight"

	"ringclient/pkg/auth"
	"ringclient/pkg/platform"
)

// DefaultHTTPTimeout is the default timeout for REST requests.
const DefaultHTTPTimeout = 30 * time.Second

// Client calls the Ring REST APIs on behalf of one platform identity.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoints  Endpoints
	os         platform.OperatingSystem

	// deduplicates concurrent identical GETs
	group singleflight.Group
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEndpoints overrides the API base URLs. Empty fields keep their defaults.
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Client) {
		c.endpoints = endpoints.withDefaults()
	}
}

// New creates a REST client identifying as os.
func New(os platform.OperatingSystem, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     slog.Default(),
		endpoints:  DefaultEndpoints(),
		os:         os,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type sessionRequest struct {
	Device sessionDevice `json:"device"`
}

type sessionDevice struct {
	HardwareID string          `json:"hardware_id"`
	OS         string          `json:"os"`
	Metadata   sessionMetadata `json:"metadata"`
}

type sessionMetadata struct {
	APIVersion  string `json:"api_version"`
	DeviceModel string `json:"device_model"`
}

// SetSession registers this client with Ring. displayName appears in the
// Ring app's list of authorised devices; systemID seeds the hardware id.
func (c *Client) SetSession(ctx context.Context, tokens *auth.TokenSet, displayName, systemID string) (*Session, error) {
	body, err := json.Marshal(sessionRequest{
		Device: sessionDevice{
			HardwareID: platform.HardwareID(systemID),
			OS:         c.os.String(),
			Metadata: sessionMetadata{
				APIVersion:  APIVersion,
				DeviceModel: displayName,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	data, err := c.do(ctx, "session", http.MethodPost, c.endpoints.session(), tokens, body)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &DecodeError{Op: "session", Err: err}
	}

	c.logger.Debug("Registered session with Ring",
		"profile_id", session.Profile.ID,
		"device_model", displayName)

	return &session, nil
}

// Devices lists every device in the account, flattened across Ring's
// per-category listings.
func (c *Client) Devices(ctx context.Context, tokens *auth.TokenSet) ([]Device, error) {
	data, err := c.get(ctx, "devices", c.endpoints.devices(), tokens)
	if err != nil {
		return nil, err
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, &DecodeError{Op: "devices", Err: err}
	}

	devices := make([]Device, 0)
	for _, group := range deviceGroups {
		raw, ok := groups[group]
		if !ok {
			continue
		}
		var listed []Device
		if err := json.Unmarshal(raw, &listed); err != nil {
			return nil, &DecodeError{Op: "devices", Err: fmt.Errorf("%s: %w", group, err)}
		}
		for _, d := range listed {
			d.Group = group
			devices = append(devices, d)
		}
	}

	c.logger.Debug("Fetched devices", "count", len(devices))
	return devices, nil
}

type locationsResponse struct {
	UserLocations []Location `json:"user_locations"`
}

// Locations lists the account's locations.
func (c *Client) Locations(ctx context.Context, tokens *auth.TokenSet) ([]Location, error) {
	data, err := c.get(ctx, "locations", c.endpoints.locations(), tokens)
	if err != nil {
		return nil, err
	}

	var resp locationsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &DecodeError{Op: "locations", Err: err}
	}
	if resp.UserLocations == nil {
		resp.UserLocations = []Location{}
	}

	c.logger.Debug("Fetched locations", "count", len(resp.UserLocations))
	return resp.UserLocations, nil
}

// Ticket obtains a ticket for opening an event channel to locationID.
func (c *Client) Ticket(ctx context.Context, tokens *auth.TokenSet, locationID string) (*Ticket, error) {
	if locationID == "" {
		return nil, errors.New("location id is required")
	}

	data, err := c.do(ctx, "ticket", http.MethodGet, c.endpoints.ticket(locationID), tokens, nil)
	if err != nil {
		return nil, err
	}

	var ticket Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, &DecodeError{Op: "ticket", Err: err}
	}
	if ticket.ID == "" || ticket.Host == "" {
		return nil, &DecodeError{Op: "ticket", Err: errors.New("ticket or host missing")}
	}

	c.logger.Debug("Obtained ticket",
		"location_id", locationID,
		"host", ticket.Host,
		"topics", len(ticket.SubscriptionTopics))

	return &ticket, nil
}

// get performs a GET, sharing the response between concurrent callers
// asking for the same URL with the same token. The shared request is not
// bound to any one caller's context; each caller stops waiting when its own
// context ends.
func (c *Client) get(ctx context.Context, op, url string, tokens *auth.TokenSet) ([]byte, error) {
	key := url
	if tokens != nil {
		key += "\x00" + tokens.AccessToken
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.do(shared, op, http.MethodGet, url, tokens, nil)
	})

	select {
	case <-ctx.Done():
		return nil, &RequestError{Op: op, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("Shared in-flight request", "op", op)
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) do(ctx context.Context, op, method, url string, tokens *auth.TokenSet, body []byte) ([]byte, error) {
	if tokens == nil {
		return nil, &RequestError{Op: op, Err: auth.ErrNotAuthenticated}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.os.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tokens.OAuth2().SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Ring API request failed",
			"op", op,
			"status", resp.StatusCode)
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode}
	}

	return data, nil
}
