package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ringclient/pkg/events"
	"ringclient/pkg/logging"
)

func newSendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "send <location-id> <msg> [json-body]",
		Short: "Send one message over a location's event channel",
		Long: `Open an event channel to a location, send a single message and close
the channel again. The body must be a JSON object; its fields are sent
alongside "msg". With --wait, events received in the meantime are printed.

Examples:
  ringclient send 3f1e2d... DeviceInfoSet '{"body":[{"zid":"...","command":{"v1":[]}}]}'
  ringclient send 3f1e2d... SubscriptionTopicsInfo --wait 5s`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, args, wait)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "Print events received for this long after sending")
	return cmd
}

func runSend(cmd *cobra.Command, args []string, wait time.Duration) error {
	locationID, name := args[0], args[1]

	msg := events.Message{Kind: events.ParseKind(name), Name: name}
	if len(args) == 3 {
		if !json.Valid([]byte(args[2])) {
			return errors.New("the message body is not valid JSON")
		}
		msg.Body = json.RawMessage(args[2])
	}
	if msg.Kind == events.KindUnknown {
		logging.Warn("Send", "%s is not a known message kind, sending it anyway", name)
	}
	// Surface a non-object body before connecting.
	if _, err := json.Marshal(msg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer, err := newEventPrinter(cmd.OutOrStdout(), "")
	if err != nil {
		return err
	}

	s, err := openSession(ctx, appConfig)
	if err != nil {
		return err
	}
	defer s.Close()

	ch, err := s.client.Listen(ctx, locationID, events.HandlerFunc(
		func(_ context.Context, e events.Event, _ *events.Sender) error {
			if wait <= 0 {
				return nil
			}
			return printer.Print(locationID, e)
		}))
	if err != nil {
		return err
	}
	defer func() {
		ch.Terminate()
		ch.Join()
	}()

	if err := ch.Send(ctx, msg); err != nil {
		return err
	}
	logging.Info("Send", "Sent %s to location %s", name, locationID)

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ch.Done():
			return ch.Err()
		case <-ctx.Done():
		}
	}
	return nil
}
