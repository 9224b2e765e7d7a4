package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind identifies a message type, carried in the "msg" field on the wire.
type Kind string

const (
	KindSubscriptionTopicsInfo Kind = "SubscriptionTopicsInfo"
	KindDeviceInfoSet          Kind = "DeviceInfoSet"
	KindSessionInfo            Kind = "SessionInfo"
	KindDataUpdate             Kind = "DataUpdate"

	// KindUnknown stands in for any kind this package does not know.
	// Such messages are never delivered to a Handler.
	KindUnknown Kind = "Unknown"
)

var knownKinds = map[Kind]struct{}{
	KindSubscriptionTopicsInfo: {},
	KindDeviceInfoSet:          {},
	KindSessionInfo:            {},
	KindDataUpdate:             {},
}

// ParseKind maps a wire name to its Kind, or KindUnknown.
func ParseKind(name string) Kind {
	if _, ok := knownKinds[Kind(name)]; ok {
		return Kind(name)
	}
	return KindUnknown
}

// Message is one frame exchanged over an event channel.
type Message struct {
	Kind Kind

	// Name is the "msg" value as received. It differs from Kind only for
	// KindUnknown messages.
	Name string

	// Body is the JSON object of every field except "msg". Nil means an
	// empty object.
	Body json.RawMessage
}

// NewMessage builds an outbound message with body marshalled to JSON.
// body must marshal to a JSON object or null.
func NewMessage(kind Kind, body any) (Message, error) {
	msg := Message{Kind: kind, Name: string(kind)}
	if body == nil {
		return msg, nil
	}

	raw, ok := body.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode %s body: %w", kind, err)
		}
	}
	msg.Body = raw
	return msg, nil
}

// name is the value written to "msg".
func (m Message) name() string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.Kind)
}

// MarshalJSON renders {"msg":"<Kind>", ...Body}.
func (m Message) MarshalJSON() ([]byte, error) {
	name := m.name()
	if name == "" {
		return nil, errors.New("message has no kind")
	}

	fields := map[string]json.RawMessage{}
	body := bytes.TrimSpace(m.Body)
	if len(body) > 0 && !bytes.Equal(body, []byte("null")) {
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("%s body must be a JSON object: %w", name, err)
		}
	}

	encodedName, err := json.Marshal(name)
	if err != nil {
		return nil, err
	}
	fields["msg"] = encodedName

	return json.Marshal(fields)
}

// UnmarshalJSON parses a frame. A frame that is not an object, or has no
// string "msg" field, is an error; an unrecognised "msg" yields KindUnknown.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("frame is not a JSON object")
	}

	rawName, ok := fields["msg"]
	if !ok {
		return errors.New(`frame has no "msg" field`)
	}

	var name string
	if err := json.Unmarshal(rawName, &name); err != nil {
		return fmt.Errorf(`frame "msg" field is not a string: %w`, err)
	}
	delete(fields, "msg")

	var body json.RawMessage
	if len(fields) > 0 {
		var err error
		body, err = json.Marshal(fields)
		if err != nil {
			return err
		}
	}

	*m = Message{
		Kind: ParseKind(name),
		Name: name,
		Body: body,
	}
	return nil
}

// Decode unmarshals Body into v.
func (m Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(m.Body, v)
}

// Event is a message pushed by Ring for a location.
type Event struct {
	Message Message
}

// MarshalJSON renders the event's message; an event has no envelope of
// its own on the wire.
func (e Event) MarshalJSON() ([]byte, error) {
	return e.Message.MarshalJSON()
}

// UnmarshalJSON parses a frame into the event's message.
func (e *Event) UnmarshalJSON(data []byte) error {
	return e.Message.UnmarshalJSON(data)
}

// ParseEvent decodes one inbound frame.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
