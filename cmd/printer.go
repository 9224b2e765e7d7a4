package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"ringclient/pkg/events"
)

// eventView is the data a --template is executed with.
type eventView struct {
	Location string
	Time     time.Time
	Kind     string
	Name     string

	// Body is the decoded message body, nil when empty.
	Body any

	// Raw is the message as received, including "msg".
	Raw string
}

// eventPrinter writes events from concurrent channels without interleaving
// lines.
type eventPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	tmpl *template.Template
	now  func() time.Time
}

// newEventPrinter parses tmpl with the sprig functions. An empty template
// prints one JSON object per event.
func newEventPrinter(w io.Writer, tmpl string) (*eventPrinter, error) {
	p := &eventPrinter{w: w, now: time.Now}
	if tmpl == "" {
		return p, nil
	}

	t, err := template.New("event").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("invalid event template: %w", err)
	}
	p.tmpl = t
	return p, nil
}

func (p *eventPrinter) Print(locationID string, e events.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}

	var line []byte
	if p.tmpl == nil {
		line, err = json.Marshal(struct {
			Time     time.Time       `json:"time"`
			Location string          `json:"location"`
			Event    json.RawMessage `json:"event"`
		}{p.now().UTC(), locationID, raw})
		if err != nil {
			return err
		}
	} else {
		view := eventView{
			Location: locationID,
			Time:     p.now(),
			Kind:     string(e.Message.Kind),
			Name:     e.Message.Name,
			Raw:      string(raw),
		}
		if len(e.Message.Body) > 0 {
			if err := json.Unmarshal(e.Message.Body, &view.Body); err != nil {
				return fmt.Errorf("failed to decode %s body: %w", e.Message.Kind, err)
			}
		}

		var buf bytes.Buffer
		if err := p.tmpl.Execute(&buf, view); err != nil {
			return fmt.Errorf("failed to render event: %w", err)
		}
		line = buf.Bytes()
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		line = append(line, '\n')
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = p.w.Write(line)
	return err
}
