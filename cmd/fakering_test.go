package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"nhooyr.io/websocket"

	"ringclient/internal/config"
)

// fakeRing serves the OAuth, REST and websocket endpoints the commands use.
type fakeRing struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	requireCode string
	nextRefresh int
	frames      []string
	received    []string

	// closeAfterFrames ends every channel once frames are written.
	closeAfterFrames bool

	refreshGrants atomic.Int32
}

func newFakeRing(t *testing.T) *fakeRing {
	f := &fakeRing{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", f.token)
	mux.HandleFunc("POST /clients_api/session", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"profile":{"id":7,"email":"me@example.com","first_name":"Ada","last_name":"Lovelace"}}`))
	})
	mux.HandleFunc("GET /clients_api/ring_devices", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"doorbots":[{"id":1,"kind":"doorbell_graham_cracker","location_id":"loc-1","description":"Front Door"}],"base_stations":[{"id":2,"kind":"base_station_v1","location_id":"loc-1","description":"Alarm"}]}`))
	})
	mux.HandleFunc("GET /devices/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user_locations":[{"location_id":"loc-1","name":"Home","is_owner":true,"address":{"address1":"1 Main St","city":"Springfield"}}]}`))
	})
	mux.HandleFunc("GET /api/v1/clap/tickets", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ticket":             "ticket-" + r.URL.Query().Get("locationID"),
			"host":               strings.TrimPrefix(f.server.URL, "http://"),
			"subscriptionTopics": []string{},
			"assets":             []any{},
		})
	})
	mux.HandleFunc("GET /ws", f.websocket)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRing) token(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch body["grant_type"] {
	case "password":
		if body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.requireCode != "" {
			code := r.Header.Get("2fa-code")
			if code == "" {
				w.WriteHeader(http.StatusPreconditionFailed)
				_, _ = w.Write([]byte(`{"tsv_state":"sms","phone":"+xxxx99"}`))
				return
			}
			if code != f.requireCode {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
		}
	case "refresh_token":
		f.refreshGrants.Add(1)
		if !strings.HasPrefix(body["refresh_token"], "refresh-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	f.nextRefresh++
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access",
		"expires_in":    3600,
		"refresh_token": "refresh-" + string(rune('a'+f.nextRefresh-1)),
	})
}

// websocket writes the queued frames, then either closes normally or
// records what the client sends until it disconnects.
func (f *fakeRing) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if !assert.NoError(f.t, err) {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	f.mu.Lock()
	frames := append([]string(nil), f.frames...)
	closeAfter := f.closeAfterFrames
	f.mu.Unlock()

	for _, frame := range frames {
		if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
			return
		}
	}
	if closeAfter {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, string(data))
		f.mu.Unlock()
	}
}

func (f *fakeRing) receivedFrames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

// useFakeRing points appConfig at f with a file token store in a temporary
// directory.
func useFakeRing(t *testing.T, f *fakeRing) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig(dir)
	cfg.SystemID = "system-1"
	cfg.Endpoints = config.EndpointsConfig{
		ClientAPI:       f.server.URL + "/clients_api",
		DeviceAPI:       f.server.URL + "/devices/v1",
		AppAPI:          f.server.URL + "/api/v1",
		Token:           f.server.URL + "/oauth/token",
		WebsocketScheme: "ws",
	}
	cfg.TokenStore.Path = filepath.Join(dir, "refresh-token")

	originalConfig, originalPath, originalQuiet := appConfig, configPath, quiet
	appConfig, configPath, quiet = cfg, dir, true
	t.Cleanup(func() {
		appConfig, configPath, quiet = originalConfig, originalPath, originalQuiet
	})
}
