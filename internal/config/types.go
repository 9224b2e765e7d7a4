package config

import (
	"time"

	"ringclient/internal/api"
	"ringclient/pkg/platform"
)

// RingConfig is the top-level configuration structure for ringclient.
type RingConfig struct {
	// DisplayName is how this client appears in the Ring app.
	DisplayName string `yaml:"displayName,omitempty" env:"RING_DISPLAY_NAME"`

	// SystemID must be stable per installation. Generated when empty.
	SystemID string `yaml:"systemId,omitempty" env:"RING_SYSTEM_ID"`

	OS platform.OperatingSystem `yaml:"os" env:"RING_OS"`

	// RefreshToken is only read from the environment.
	RefreshToken string `yaml:"-" env:"RING_REFRESH_TOKEN"`

	Log        LogConfig        `yaml:"log"`
	Endpoints  EndpointsConfig  `yaml:"endpoints"`
	TokenStore TokenStoreConfig `yaml:"tokenStore"`
	Listen     ListenConfig     `yaml:"listen"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" env:"RING_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" env:"RING_LOG_FORMAT"` // text or json
}

// EndpointsConfig overrides the Ring base URLs. Empty values use the
// production defaults.
type EndpointsConfig struct {
	ClientAPI string `yaml:"clientAPI,omitempty" env:"RING_CLIENT_API_URL"`
	DeviceAPI string `yaml:"deviceAPI,omitempty" env:"RING_DEVICE_API_URL"`
	AppAPI    string `yaml:"appAPI,omitempty" env:"RING_APP_API_URL"`
	Token     string `yaml:"token,omitempty" env:"RING_TOKEN_URL"`

	// WebsocketScheme is used to reach ticket hosts, "wss" unless set.
	WebsocketScheme string `yaml:"websocketScheme,omitempty" env:"RING_WEBSOCKET_SCHEME"`
}

// API returns the REST endpoints in the form the api package expects.
func (e EndpointsConfig) API() api.Endpoints {
	return api.Endpoints{
		ClientAPI: e.ClientAPI,
		DeviceAPI: e.DeviceAPI,
		AppAPI:    e.AppAPI,
	}
}

const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

// TokenStoreConfig selects where the refresh token is persisted between runs.
type TokenStoreConfig struct {
	Backend string      `yaml:"backend,omitempty" env:"RING_TOKEN_STORE"`
	Path    string      `yaml:"path,omitempty" env:"RING_TOKEN_FILE"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis token store backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty" env:"RING_REDIS_ADDR"`
	Password string        `yaml:"password,omitempty" env:"RING_REDIS_PASSWORD"`
	DB       int           `yaml:"db,omitempty" env:"RING_REDIS_DB"`
	Key      string        `yaml:"key,omitempty" env:"RING_REDIS_KEY"`
	TTL      time.Duration `yaml:"ttl,omitempty" env:"RING_REDIS_TTL"`
}

// ListenConfig holds defaults for the listen command.
type ListenConfig struct {
	// Template renders each event. Empty prints one JSON object per line.
	Template string `yaml:"template,omitempty" env:"RING_LISTEN_TEMPLATE"`

	// Reconnect reopens channels that end with an error.
	Reconnect bool `yaml:"reconnect,omitempty" env:"RING_LISTEN_RECONNECT"`

	// MaxReconnectInterval caps the backoff between reconnect attempts.
	MaxReconnectInterval time.Duration `yaml:"maxReconnectInterval,omitempty" env:"RING_LISTEN_MAX_RECONNECT_INTERVAL"`
}
