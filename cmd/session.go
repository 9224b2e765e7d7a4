package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"ringclient/internal/config"
	"ringclient/internal/tokenstore"
	"ringclient/pkg/events"
	"ringclient/pkg/logging"
	"ringclient/pkg/ring"
)

var errNotLoggedIn = errors.New("not logged in, run 'ringclient login' first")

// session is an authenticated client together with the store its refresh
// token came from.
type session struct {
	client *ring.Client
	store  tokenstore.Store

	mu    sync.Mutex
	saved string
}

// newRingClient builds a client from the configuration.
func newRingClient(cfg config.RingConfig, opts ...ring.Option) (*ring.Client, error) {
	all := []ring.Option{
		ring.WithLogger(logging.Logger("Ring")),
		ring.WithEndpoints(cfg.Endpoints.API()),
	}
	if cfg.Endpoints.Token != "" {
		all = append(all, ring.WithTokenEndpoint(cfg.Endpoints.Token))
	}
	if cfg.Endpoints.WebsocketScheme != "" {
		all = append(all, ring.WithEventOptions(events.WithScheme(cfg.Endpoints.WebsocketScheme)))
	}
	all = append(all, opts...)

	return ring.New(cfg.DisplayName, cfg.SystemID, cfg.OS, all...)
}

// openSession logs in with the stored refresh token. RING_REFRESH_TOKEN
// takes precedence over the store.
func openSession(ctx context.Context, cfg config.RingConfig) (*session, error) {
	store, err := tokenstore.New(ctx, cfg.TokenStore)
	if err != nil {
		return nil, err
	}

	token := cfg.RefreshToken
	if token == "" {
		token, err = store.Load(ctx)
		if errors.Is(err, tokenstore.ErrNotFound) {
			store.Close()
			return nil, errNotLoggedIn
		}
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	client, err := newRingClient(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	if err := client.Login(ctx, ring.RefreshToken{Value: token}); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to resume the stored login: %w", err)
	}

	s := &session{client: client, store: store, saved: token}
	s.persist(ctx)
	return s, nil
}

// persist saves the refresh token if Ring rotated it. Failures are logged;
// the old token stays usable until it expires.
func (s *session) persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.client.RefreshToken()
	if !ok || token == s.saved {
		return
	}
	if err := s.store.Save(ctx, token); err != nil {
		logging.Error("Session", err, "Failed to store the rotated refresh token")
		return
	}
	s.saved = token
	logging.Debug("Session", "Stored rotated refresh token")
}

// Close persists the latest refresh token and releases the store.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.persist(ctx)
	return s.store.Close()
}

// withSpinner runs fn while showing a spinner on w. The spinner is skipped
// in quiet mode.
func withSpinner(w io.Writer, message string, fn func() error) error {
	if quiet {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()

	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("✗ "+message) + "\n"
	}
	s.Stop()
	return err
}

// printf prints output only if the --quiet flag is not set.
func printf(w io.Writer, format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(w, format, args...)
	}
}
