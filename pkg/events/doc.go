// Package events maintains real-time event channels to Ring locations.
//
// A Channel is a websocket connection opened with a ticket (see
// internal/api.Client.Ticket). Open starts a background delivery loop that
// parses every inbound frame as an Event and hands known kinds to the
// caller's Handler in arrival order. Malformed frames and unknown kinds are
// logged and dropped; they never end the loop.
//
// The loop ends when Terminate is called, when the peer closes the socket,
// or after repeated read errors. Terminate is non-blocking; Join waits for
// the loop, which performs the close handshake on the way out.
//
// Outbound messages go through a Sender. A Sender does not keep the
// connection alive: once the channel is terminated or finished, Send
// returns ErrChannelClosed instead of blocking.
package events
