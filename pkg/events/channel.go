package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"ringclient/internal/api"
)

// ErrChannelClosed is returned by Send once the channel has been terminated
// or its delivery loop has finished.
var ErrChannelClosed = errors.New("event channel is closed")

// Ticket authorises one channel connection. See TicketSource.
type Ticket = api.Ticket

// TicketSource obtains tickets for a location, e.g. ring.Client.
type TicketSource interface {
	Ticket(ctx context.Context, locationID string) (*Ticket, error)
}

// Handler receives every delivered event, in the order received. It runs on
// the delivery loop, so a slow handler delays later events. The sender may
// be used to reply in-channel.
//
// A returned error or a panic is logged; the loop carries on.
type Handler interface {
	HandleEvent(ctx context.Context, event Event, sender *Sender) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event, sender *Sender) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event Event, sender *Sender) error {
	return f(ctx, event, sender)
}

// sink is the outbound half of the connection. Writes hold mu; shutdown
// takes it back with TryLock before the close handshake.
type sink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool
}

func (s *sink) write(ctx context.Context, data []byte) error {
	if s.closed.Load() {
		return ErrChannelClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrChannelClosed
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// Sender writes messages to a channel. It does not keep the channel open:
// once the channel is terminated or finished every Send fails with
// ErrChannelClosed.
type Sender struct {
	sink   *sink
	logger *slog.Logger
}

// Send writes msg as one text frame. Sends are serialised with each other.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := s.sink.write(ctx, data); err != nil {
		if errors.Is(err, ErrChannelClosed) {
			return err
		}
		return fmt.Errorf("failed to send %s: %w", msg.name(), err)
	}

	s.logger.Debug("Sent message", "kind", msg.name())
	return nil
}

type frame struct {
	typ  websocket.MessageType
	data []byte
	err  error
}

// Channel is a live event connection to one location. It is created by Open
// and runs a delivery loop in the background until Terminate is called, the
// peer closes the socket, or a read fails.
type Channel struct {
	conn    *websocket.Conn
	sink    *sink
	sender  *Sender
	handler Handler
	logger  *slog.Logger
	opts    options

	// ctx is handed to the handler and cancelled by Terminate.
	ctx       context.Context
	cancelCtx context.CancelFunc

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}

	// err is written by the loop before done is closed.
	err error
}

// Open connects to the ticket's host and starts delivering events to
// handler. ctx bounds the handshake only.
func Open(ctx context.Context, ticket Ticket, handler Handler, opts ...Option) (*Channel, error) {
	if handler == nil {
		return nil, errors.New("events: a handler is required")
	}
	if ticket.ID == "" || ticket.Host == "" {
		return nil, errors.New("events: ticket must have an id and a host")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	url := api.WebsocketURL(o.scheme, ticket.Host, ticket.ID)

	dialCtx := ctx
	if o.dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, o.dialTimeout)
		defer cancel()
	}

	header := http.Header{}
	if o.userAgent != "" {
		header.Set("User-Agent", o.userAgent)
	}

	httpClient := o.httpClient
	if httpClient != nil && httpClient.Timeout > 0 {
		// A client timeout would also cut the upgraded connection; the
		// handshake is bounded by dialCtx instead.
		copied := *httpClient
		copied.Timeout = 0
		httpClient = &copied
	}

	conn, resp, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPClient: httpClient,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s (status %d): %w", ticket.Host, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", ticket.Host, err)
	}
	if o.readLimit > 0 {
		conn.SetReadLimit(o.readLimit)
	}

	logger := o.logger.With("host", ticket.Host)
	s := &sink{conn: conn}
	loopCtx, cancelCtx := context.WithCancel(context.Background())
	c := &Channel{
		conn:      conn,
		sink:      s,
		sender:    &Sender{sink: s, logger: logger},
		handler:   handler,
		logger:    logger,
		opts:      o,
		ctx:       loopCtx,
		cancelCtx: cancelCtx,
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}

	logger.Info("Opened event channel")
	go c.run()

	return c, nil
}

// OpenLocation fetches a ticket for locationID from source and opens a
// channel with it.
func OpenLocation(ctx context.Context, source TicketSource, locationID string, handler Handler, opts ...Option) (*Channel, error) {
	ticket, err := source.Ticket(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket for location %s: %w", locationID, err)
	}
	return Open(ctx, *ticket, handler, opts...)
}

// Sender returns the channel's send handle.
func (c *Channel) Sender() *Sender {
	return c.sender
}

// Send is shorthand for c.Sender().Send.
func (c *Channel) Send(ctx context.Context, msg Message) error {
	return c.sender.Send(ctx, msg)
}

// Terminate asks the delivery loop to close the connection and stop. It
// returns immediately; use Join to wait. Sends fail with ErrChannelClosed
// as soon as Terminate returns. Calling it more than once is harmless.
func (c *Channel) Terminate() {
	c.sink.closed.Store(true)
	c.cancelOnce.Do(func() {
		c.cancelCtx()
		close(c.cancel)
	})
}

// Join blocks until the delivery loop has finished.
func (c *Channel) Join() {
	<-c.done
}

// Done is closed when the delivery loop has finished.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err reports why the delivery loop finished: nil after Terminate or a
// normal-closure close by the peer, otherwise the error that ended it. Only valid
// once Done is closed.
func (c *Channel) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Channel) run() {
	defer close(c.done)
	defer c.cancelCtx()

	// Reads use their own context: cancelling a read tears the connection
	// down, which would pre-empt the close handshake.
	stop := make(chan struct{})
	frames := make(chan frame)
	go c.read(context.Background(), frames, stop)

	for {
		select {
		case <-c.cancel:
			c.logger.Debug("Event channel terminated")
			c.shutdown()
			close(stop)
			return

		case f := <-frames:
			if f.err != nil {
				c.finish(c.readFailure(f.err))
				close(stop)
				return
			}

			if c.ctx.Err() != nil {
				// Terminated; the next iteration shuts down.
				continue
			}
			c.deliver(c.ctx, f)
		}
	}
}

// readFailure logs why reading stopped and returns what Err reports. The
// transport closes the connection on any read error, so the first one ends
// the loop.
func (c *Channel) readFailure(err error) error {
	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure:
		c.logger.Info("Event channel closed by peer")
		return nil
	case status != -1 || errors.Is(err, io.EOF):
		c.logger.Info("Event channel closed by peer", "reason", err)
		return err
	default:
		c.logger.Error("Event channel read failed", "error", err)
		return fmt.Errorf("event channel read failed: %w", err)
	}
}

// read pumps inbound frames to the loop until the first error. Control
// frames never surface here; the transport answers pings itself.
func (c *Channel) read(ctx context.Context, frames chan<- frame, stop <-chan struct{}) {
	for {
		typ, data, err := c.conn.Read(ctx)
		select {
		case frames <- frame{typ: typ, data: data, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Channel) deliver(ctx context.Context, f frame) {
	event, err := ParseEvent(f.data)
	if err != nil {
		c.logger.Error("Dropping malformed frame",
			"error", err,
			"type", f.typ.String(),
			"size", len(f.data))
		return
	}

	if event.Message.Kind == KindUnknown {
		c.logger.Debug("Dropping unknown message", "msg", event.Message.Name)
		return
	}

	c.logger.Debug("Received event", "kind", string(event.Message.Kind))

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Event handler panicked",
				"kind", string(event.Message.Kind),
				"panic", r)
		}
	}()

	if ctx.Err() != nil {
		c.logger.Debug("Dropping event received after termination", "kind", string(event.Message.Kind))
		return
	}
	if err := c.handler.HandleEvent(ctx, event, c.sender); err != nil {
		c.logger.Warn("Event handler failed",
			"kind", string(event.Message.Kind),
			"error", err)
	}
}

// shutdown performs the close handshake. The outbound half is reclaimed
// first; if a send still holds it the connection is dropped instead.
func (c *Channel) shutdown() {
	c.sink.closed.Store(true)

	if !c.sink.mu.TryLock() {
		c.logger.Warn("Unable to reclaim the outbound half of the connection, closing without handshake")
		_ = c.conn.CloseNow()
		return
	}
	defer c.sink.mu.Unlock()

	if err := c.conn.Close(websocket.StatusNormalClosure, "client closed"); err != nil {
		c.logger.Error("Error closing event channel", "error", err)
		return
	}
	c.logger.Info("Shut down event channel gracefully")
}

// finish releases the connection after the loop ended on its own.
func (c *Channel) finish(err error) {
	c.sink.closed.Store(true)
	c.err = err
	_ = c.conn.CloseNow()
}
