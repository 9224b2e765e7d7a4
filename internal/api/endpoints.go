package api

import (
	"net/url"
	"strings"
)

const (
	// DefaultClientAPIURL serves sessions and device listings.
	DefaultClientAPIURL = "https://api.ring.com/clients_api"

	// DefaultDeviceAPIURL serves location listings.
	DefaultDeviceAPIURL = "https://api.ring.com/devices/v1"

	// DefaultAppAPIURL serves event channel tickets.
	DefaultAppAPIURL = "https://prd-api-us.prd.rings.solutions/api/v1"

	// DefaultWebsocketScheme is used to connect to ticket hosts.
	DefaultWebsocketScheme = "wss"

	// APIVersion is reported to Ring when registering a session.
	APIVersion = "11"
)

// Endpoints holds the base URLs of the Ring APIs. Tests point these at
// httptest servers.
type Endpoints struct {
	ClientAPI string `yaml:"clientAPI,omitempty"`
	DeviceAPI string `yaml:"deviceAPI,omitempty"`
	AppAPI    string `yaml:"appAPI,omitempty"`
}

// DefaultEndpoints returns the production base URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ClientAPI: DefaultClientAPIURL,
		DeviceAPI: DefaultDeviceAPIURL,
		AppAPI:    DefaultAppAPIURL,
	}
}

// withDefaults fills empty fields from DefaultEndpoints.
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.ClientAPI == "" {
		e.ClientAPI = d.ClientAPI
	}
	if e.DeviceAPI == "" {
		e.DeviceAPI = d.DeviceAPI
	}
	if e.AppAPI == "" {
		e.AppAPI = d.AppAPI
	}
	return e
}

func (e Endpoints) session() string {
	return strings.TrimSuffix(e.ClientAPI, "/") + "/session"
}

func (e Endpoints) devices() string {
	return strings.TrimSuffix(e.ClientAPI, "/") + "/ring_devices"
}

func (e Endpoints) locations() string {
	return strings.TrimSuffix(e.DeviceAPI, "/") + "/locations"
}

func (e Endpoints) ticket(locationID string) string {
	q := url.Values{}
	q.Set("locationID", locationID)
	return strings.TrimSuffix(e.AppAPI, "/") + "/clap/tickets?" + q.Encode()
}

// WebsocketURL renders the event channel URL for a ticket host. An empty
// scheme means DefaultWebsocketScheme.
func WebsocketURL(scheme, host, authCode string) string {
	if scheme == "" {
		scheme = DefaultWebsocketScheme
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/ws",
		RawQuery: "authcode=" + url.QueryEscape(authCode) + "&ack=false&transport=websocket",
	}
	return u.String()
}
