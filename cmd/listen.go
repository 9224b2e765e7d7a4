package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ringclient/internal/config"
	"ringclient/pkg/events"
	"ringclient/pkg/logging"
	"ringclient/pkg/ring"
)

// stableConnection is how long a channel must stay up before the reconnect
// backoff starts over.
const stableConnection = time.Minute

var errPeerClosed = errors.New("event channel closed by the server")

// sdNotify is replaced in tests.
var sdNotify = func(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		logging.Warn("Listen", "sd_notify failed: %v", err)
	}
}

type listenOptions struct {
	all          bool
	template     string
	reconnect    bool
	maxReconnect time.Duration
}

func newListenCmd() *cobra.Command {
	opts := &listenOptions{}
	cmd := &cobra.Command{
		Use:   "listen [location-id...]",
		Short: "Stream real-time events from one or more locations",
		Long: `Open an event channel to each location and print every event as it
arrives, one per line. Interrupt with Ctrl+C.

Under systemd (Type=notify) readiness is reported once every channel is open.
Changes to the log level in config.yaml apply without a restart.

Examples:
  ringclient listen --all
  ringclient listen 3f1e2d... --reconnect
  ringclient listen --all --template '{{ .Location }} {{ .Kind }} {{ .Body | toJson }}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("template") {
				opts.template = appConfig.Listen.Template
			}
			if !cmd.Flags().Changed("reconnect") {
				opts.reconnect = appConfig.Listen.Reconnect
			}
			opts.maxReconnect = appConfig.Listen.MaxReconnectInterval
			if opts.maxReconnect <= 0 {
				opts.maxReconnect = config.DefaultMaxReconnectInterval
			}
			return runListen(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.all, "all", false, "Listen to every location in the account")
	cmd.Flags().StringVar(&opts.template, "template", "", "Go template for each event (sprig functions available)")
	cmd.Flags().BoolVar(&opts.reconnect, "reconnect", false, "Reopen channels that end unexpectedly")
	return cmd
}

func runListen(cmd *cobra.Command, args []string, opts *listenOptions) error {
	if opts.all == (len(args) > 0) {
		return errors.New("specify location ids or --all, not both")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer, err := newEventPrinter(cmd.OutOrStdout(), opts.template)
	if err != nil {
		return err
	}

	s, err := openSession(ctx, appConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	locationIDs := args
	if opts.all {
		locationIDs, err = allLocationIDs(ctx, s.client)
		if err != nil {
			return err
		}
		if len(locationIDs) == 0 {
			return errors.New("the account has no locations")
		}
	}

	if !cmd.Flags().Changed("log-level") && configPath != "" {
		watcher := config.NewWatcher(config.WatcherConfig{
			ConfigPath: configPath,
			OnChange: func(c config.RingConfig) {
				logging.SetLevel(logging.ParseLevel(c.Log.Level))
				logging.Info("Listen", "Log level set to %s", c.Log.Level)
			},
		})
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	ready := newReadiness(locationIDs, sdNotify)

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range locationIDs {
		g.Go(func() error {
			return listenLocation(gctx, s, id, printer, opts, ready)
		})
	}
	err = g.Wait()

	sdNotify(daemon.SdNotifyStopping)
	return err
}

func allLocationIDs(ctx context.Context, client *ring.Client) ([]string, error) {
	locations, err := client.Locations(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(locations))
	for _, l := range locations {
		ids = append(ids, l.ID)
	}
	return ids, nil
}

// listenLocation keeps one event channel open until ctx is cancelled. With
// reconnect set, channels that end or fail to open are retried with
// exponential backoff; otherwise the first failure is returned.
func listenLocation(ctx context.Context, s *session, locationID string, printer *eventPrinter, opts *listenOptions, ready *readiness) error {
	handler := events.HandlerFunc(func(_ context.Context, e events.Event, _ *events.Sender) error {
		return printer.Print(locationID, e)
	})

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = opts.maxReconnect

	operation := func() (struct{}, error) {
		ch, err := s.client.Listen(ctx, locationID, handler)
		if err != nil {
			if !opts.reconnect || errors.Is(err, ring.ErrRefreshFailed) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}

		opened := time.Now()
		ready.opened(locationID)
		s.persist(ctx)
		logging.Info("Listen", "Listening for events at location %s", locationID)

		select {
		case <-ctx.Done():
			ch.Terminate()
			ch.Join()
			return struct{}{}, nil
		case <-ch.Done():
		}

		if time.Since(opened) > stableConnection {
			b.Reset()
		}

		err = ch.Err()
		switch {
		case ctx.Err() != nil:
			return struct{}{}, nil
		case !opts.reconnect && err != nil:
			return struct{}{}, backoff.Permanent(err)
		case !opts.reconnect:
			logging.Info("Listen", "Event channel for location %s closed by the server", locationID)
			return struct{}{}, nil
		case err == nil:
			err = errPeerClosed
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn("Listen", "Event channel for location %s ended (%v), reconnecting in %s",
				locationID, err, next.Round(time.Millisecond))
		}),
	)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("location %s: %w", locationID, err)
	}
	return nil
}

// readiness reports READY once every location has had a channel open.
type readiness struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	notified bool
	notify   func(state string)
}

func newReadiness(locationIDs []string, notify func(string)) *readiness {
	pending := make(map[string]struct{}, len(locationIDs))
	for _, id := range locationIDs {
		pending[id] = struct{}{}
	}
	return &readiness{pending: pending, notify: notify}
}

func (r *readiness) opened(locationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, locationID)
	if len(r.pending) == 0 && !r.notified {
		r.notified = true
		r.notify(daemon.SdNotifyReady)
	}
}
