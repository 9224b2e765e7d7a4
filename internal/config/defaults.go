package config

import (
	"path/filepath"
	"time"

	"ringclient/pkg/platform"
)

const (
	// DefaultDisplayName is shown in the Ring app's authorized clients list.
	DefaultDisplayName = "ringclient"

	// DefaultRedisKey is the redis key holding the refresh token.
	DefaultRedisKey = "ringclient:refresh-token"

	// DefaultMaxReconnectInterval caps listen's reconnect backoff.
	DefaultMaxReconnectInterval = time.Minute

	refreshTokenFileName = "refresh-token"
)

// DefaultConfig returns the default configuration for the given
// configuration directory.
func DefaultConfig(configDir string) RingConfig {
	return RingConfig{
		DisplayName: DefaultDisplayName,
		OS:          platform.IOS,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		TokenStore: TokenStoreConfig{
			Backend: TokenStoreFile,
			Path:    filepath.Join(configDir, refreshTokenFileName),
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  DefaultRedisKey,
			},
		},
		Listen: ListenConfig{
			MaxReconnectInterval: DefaultMaxReconnectInterval,
		},
	}
}
