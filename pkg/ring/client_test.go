package ring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"ringclient/internal/api"
	"ringclient/pkg/auth"
	"ringclient/pkg/events"
)

// fakeRing serves the OAuth, REST and websocket endpoints from one server.
type fakeRing struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	accessToken   string
	refreshStatus int
	requireCode   string

	passwordGrants atomic.Int32
	refreshGrants  atomic.Int32
	sessions       atomic.Int32
}

func newFakeRing(t *testing.T) *fakeRing {
	f := &fakeRing{t: t, accessToken: "access-1", refreshStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", f.token)
	mux.HandleFunc("POST /clients_api/session", func(w http.ResponseWriter, r *http.Request) {
		f.sessions.Add(1)
		f.checkBearer(r)
		_, _ = w.Write([]byte(`{"profile":{"id":7,"email":"me@example.com","first_name":"Ada","last_name":"L"}}`))
	})
	mux.HandleFunc("GET /clients_api/ring_devices", func(w http.ResponseWriter, r *http.Request) {
		f.checkBearer(r)
		_, _ = w.Write([]byte(`{"doorbots":[{"id":1,"kind":"doorbell_graham_cracker","location_id":"loc-1","description":"Front"}],"chimes":[]}`))
	})
	mux.HandleFunc("GET /devices/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		f.checkBearer(r)
		_, _ = w.Write([]byte(`{"user_locations":[{"location_id":"loc-1","name":"Home"}]}`))
	})
	mux.HandleFunc("GET /api/v1/clap/tickets", func(w http.ResponseWriter, r *http.Request) {
		f.checkBearer(r)
		host := strings.TrimPrefix(f.server.URL, "http://")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ticket":             "ticket-" + r.URL.Query().Get("locationID"),
			"host":               host,
			"subscriptionTopics": []string{},
			"assets":             []any{},
		})
	})
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ticket-loc-1", r.URL.Query().Get("authcode"))
		assert.Equal(t, "ios:com.ringapp", r.Header.Get("User-Agent"))

		conn, err := websocket.Accept(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"msg":"SessionInfo","body":[]}`))
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})

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
	assert.Equal(f.t, "ring_official_ios", body["client_id"])

	f.mu.Lock()
	defer f.mu.Unlock()

	switch body["grant_type"] {
	case "password":
		f.passwordGrants.Add(1)
		if body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.requireCode != "" && r.Header.Get("2fa-code") != f.requireCode {
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = w.Write([]byte(`{"tsv_state":"sms","phone":"+xxxx99"}`))
			return
		}
	case "refresh_token":
		f.refreshGrants.Add(1)
		if f.refreshStatus != http.StatusOK {
			w.WriteHeader(f.refreshStatus)
			return
		}
		f.accessToken = "access-" + body["refresh_token"]
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  f.accessToken,
		"expires_in":    3600,
		"refresh_token": "refresh-next",
	})
}

func (f *fakeRing) checkBearer(r *http.Request) {
	f.mu.Lock()
	want := "Bearer " + f.accessToken
	f.mu.Unlock()
	assert.Equal(f.t, want, r.Header.Get("Authorization"))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, f *fakeRing, clock *testClock) *Client {
	t.Helper()
	client, err := New("Test Client", "system-1", IOS,
		WithHTTPClient(f.server.Client()),
		WithTokenEndpoint(f.server.URL+"/oauth/token"),
		WithEndpoints(api.Endpoints{
			ClientAPI: f.server.URL + "/clients_api",
			DeviceAPI: f.server.URL + "/devices/v1",
			AppAPI:    f.server.URL + "/api/v1",
		}),
		WithClock(clock.Now),
		WithEventOptions(events.WithScheme("ws")),
	)
	require.NoError(t, err)
	return client
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "system", IOS)
	assert.Error(t, err)

	_, err = New("name", "", IOS)
	assert.Error(t, err)

	client, err := New("name", "system", Android)
	require.NoError(t, err)
	assert.Equal(t, auth.StateUnauthenticated, client.State())
}

func TestClient_LoginAndFetch(t *testing.T) {
	f := newFakeRing(t)
	clock := &testClock{now: time.Now()}
	client := newTestClient(t, f, clock)

	ctx := context.Background()
	require.NoError(t, client.Login(ctx, UserPassword{Username: "me@example.com", Password: "hunter2"}))

	assert.Equal(t, auth.StateAuthenticated, client.State())
	assert.EqualValues(t, 1, f.sessions.Load())

	profile, ok := client.Profile()
	require.True(t, ok)
	assert.Equal(t, int64(7), profile.ID)

	devices, err := client.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Front", devices[0].Description)

	locations, err := client.Locations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "Home", locations[0].Name)

	token, ok := client.RefreshToken()
	assert.True(t, ok)
	assert.Equal(t, "refresh-next", token)

	assert.EqualValues(t, 0, f.refreshGrants.Load())
}

func TestClient_MfaLogin(t *testing.T) {
	f := newFakeRing(t)
	f.requireCode = "424242"
	client := newTestClient(t, f, &testClock{now: time.Now()})
	ctx := context.Background()

	err := client.Login(ctx, UserPassword{Username: "me@example.com", Password: "hunter2"})
	require.ErrorIs(t, err, auth.ErrMfaCodeRequired)

	challenge, ok := client.PendingChallenge()
	require.True(t, ok)
	assert.Equal(t, "+xxxx99", challenge.Destination)
	assert.EqualValues(t, 0, f.sessions.Load())

	require.NoError(t, client.RespondToChallenge(ctx, "424242"))
	assert.Equal(t, auth.StateAuthenticated, client.State())
	assert.EqualValues(t, 1, f.sessions.Load())
}

func TestClient_RefreshOnExpiry(t *testing.T) {
	f := newFakeRing(t)
	clock := &testClock{now: time.Now()}
	client := newTestClient(t, f, clock)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, RefreshToken{Value: "stored"}))
	assert.EqualValues(t, 1, f.refreshGrants.Load())
	assert.EqualValues(t, 1, f.sessions.Load())

	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Devices(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, f.refreshGrants.Load())
	assert.EqualValues(t, 2, f.sessions.Load())
}

func TestClient_RefreshFailure(t *testing.T) {
	f := newFakeRing(t)
	clock := &testClock{now: time.Now()}
	client := newTestClient(t, f, clock)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, UserPassword{Username: "me@example.com", Password: "hunter2"}))

	clock.Advance(2 * time.Hour)
	f.mu.Lock()
	f.refreshStatus = http.StatusServiceUnavailable
	f.mu.Unlock()

	_, err := client.Devices(ctx)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	var oauthErr *auth.OAuthError
	assert.ErrorAs(t, err, &oauthErr)

	_, err = client.Ticket(ctx, "loc-1")
	assert.ErrorIs(t, err, ErrRefreshFailed)
}

func TestClient_NotLoggedIn(t *testing.T) {
	f := newFakeRing(t)
	client := newTestClient(t, f, &testClock{now: time.Now()})

	_, err := client.Locations(context.Background())
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestClient_Listen(t *testing.T) {
	f := newFakeRing(t)
	client := newTestClient(t, f, &testClock{now: time.Now()})
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, UserPassword{Username: "me@example.com", Password: "hunter2"}))

	received := make(chan Event, 1)
	ch, err := client.Listen(ctx, "loc-1", events.HandlerFunc(func(ctx context.Context, e Event, s *events.Sender) error {
		received <- e
		return nil
	}))
	require.NoError(t, err)

	select {
	case e := <-received:
		assert.Equal(t, events.KindSessionInfo, e.Message.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	ch.Terminate()
	ch.Join()
	assert.ErrorIs(t, ch.Send(ctx, Message{Kind: events.KindDataUpdate}), events.ErrChannelClosed)
}

func TestClient_HTTPClient(t *testing.T) {
	f := newFakeRing(t)
	client := newTestClient(t, f, &testClock{now: time.Now()})
	ctx := context.Background()

	require.NoError(t, client.Login(ctx, UserPassword{Username: "me@example.com", Password: "hunter2"}))

	resp, err := client.HTTPClient(ctx).Get(f.server.URL + "/devices/v1/locations")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
