package events

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultReadLimit bounds a single inbound frame. Device listings for
	// large locations exceed the transport's 32 KiB default.
	DefaultReadLimit = 32 << 20

	// DefaultDialTimeout bounds the websocket handshake.
	DefaultDialTimeout = 30 * time.Second
)

type options struct {
	logger      *slog.Logger
	httpClient  *http.Client
	scheme      string
	userAgent   string
	readLimit   int64
	dialTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:      slog.Default(),
		readLimit:   DefaultReadLimit,
		dialTimeout: DefaultDialTimeout,
	}
}

// Option configures a Channel.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for the websocket handshake.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// WithScheme overrides the websocket URL scheme ("wss" by default).
func WithScheme(scheme string) Option {
	return func(o *options) {
		o.scheme = scheme
	}
}

// WithUserAgent sets the User-Agent sent on the handshake.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithReadLimit sets the maximum inbound frame size in bytes. A larger frame
// ends the channel.
func WithReadLimit(limit int64) Option {
	return func(o *options) {
		o.readLimit = limit
	}
}

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}
