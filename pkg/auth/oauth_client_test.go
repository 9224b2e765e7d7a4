package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringclient/pkg/platform"
)

func newTestOAuthClient(t *testing.T, handler http.HandlerFunc, now time.Time) *OAuthClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOAuthClient(platform.IOS, "0123456789abcdef0123456789abcdef",
		WithHTTPClient(server.Client()),
		WithEndpoint(server.URL),
		WithClientClock(func() time.Time { return now }),
	)
}

func TestOAuthClient_PasswordGrant_Request(t *testing.T) {
	now := time.Unix(1700000000, 0)

	var (
		gotHeaders http.Header
		gotBody    map[string]string
	)
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","expires_in":3600,"refresh_token":"refresh","scope":"client","token_type":"Bearer"}`))
	}, now)

	tokens, err := client.PasswordGrant(context.Background(), "user@example.com", "hunter2", "123456")
	require.NoError(t, err)

	assert.Equal(t, "access", tokens.AccessToken)
	assert.Equal(t, "refresh", tokens.RefreshToken)
	assert.Equal(t, now.Add(time.Hour), tokens.ExpiresAt)

	assert.Equal(t, "true", gotHeaders.Get("2fa-support"))
	assert.Equal(t, "123456", gotHeaders.Get("2fa-code"))
	assert.Equal(t, "0123456789abcdef0123456789abcdef", gotHeaders.Get("hardware_id"))
	assert.Equal(t, "ios:com.ringapp", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	assert.Equal(t, map[string]string{
		"client_id":  "ring_official_ios",
		"grant_type": "password",
		"scope":      "client",
		"username":   "user@example.com",
		"password":   "hunter2",
	}, gotBody)
}

func TestOAuthClient_RefreshGrant_Request(t *testing.T) {
	now := time.Unix(1700000000, 0)

	var (
		gotHeaders http.Header
		gotBody    map[string]string
	)
	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"access_token":"access-2","expires_in":60,"refresh_token":"refresh-2"}`))
	}, now)

	tokens, err := client.RefreshGrant(context.Background(), "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "access-2", tokens.AccessToken)
	assert.Equal(t, now.Add(time.Minute), tokens.ExpiresAt)
	assert.Empty(t, gotHeaders.Get("2fa-code"))
	assert.Equal(t, map[string]string{
		"client_id":     "ring_official_ios",
		"grant_type":    "refresh_token",
		"scope":         "client",
		"refresh_token": "refresh-1",
	}, gotBody)
}

func TestOAuthClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "sms challenge",
			status: http.StatusPreconditionFailed,
			body:   `{"next_time_in_secs":60,"phone":"+xxxx1234","tsv_state":"sms"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMfaCodeRequired)
				var challengeErr *ChallengeError
				require.ErrorAs(t, err, &challengeErr)
				assert.Equal(t, Challenge{Method: "sms", Destination: "+xxxx1234"}, challengeErr.Challenge)
			},
		},
		{
			name:   "totp challenge",
			status: http.StatusPreconditionFailed,
			body:   `{"tsv_state":"totp"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMfaCodeRequired)
			},
		},
		{
			name:   "unsupported challenge",
			status: http.StatusPreconditionFailed,
			body:   `{"tsv_state":"push"}`,
			check: func(t *testing.T, err error) {
				var unsupported *UnsupportedChallengeError
				require.ErrorAs(t, err, &unsupported)
				assert.Equal(t, "push", unsupported.Challenge)
				assert.NotErrorIs(t, err, ErrMfaCodeRequired)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidCredentials)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var oauthErr *OAuthError
				require.ErrorAs(t, err, &oauthErr)
				assert.Equal(t, http.StatusInternalServerError, oauthErr.StatusCode)
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{not json`,
			check: func(t *testing.T, err error) {
				var invalid *InvalidResponseError
				assert.ErrorAs(t, err, &invalid)
			},
		},
		{
			name:   "missing access token",
			status: http.StatusOK,
			body:   `{"expires_in":3600}`,
			check: func(t *testing.T, err error) {
				var invalid *InvalidResponseError
				assert.ErrorAs(t, err, &invalid)
			},
		},
		{
			name:   "no expiry anywhere",
			status: http.StatusOK,
			body:   `{"access_token":"opaque"}`,
			check: func(t *testing.T, err error) {
				var invalid *InvalidResponseError
				assert.ErrorAs(t, err, &invalid)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, time.Now())

			tokens, err := client.PasswordGrant(context.Background(), "user", "pass", "")
			require.Error(t, err)
			assert.Nil(t, tokens)
			tt.check(t, err)
		})
	}
}

func TestOAuthClient_ExpiryFromJWT(t *testing.T) {
	exp := time.Unix(1700003600, 0)
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "user",
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	client := newTestOAuthClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  accessToken,
			"refresh_token": "refresh",
		})
	}, time.Unix(1700000000, 0))

	tokens, err := client.RefreshGrant(context.Background(), "refresh")
	require.NoError(t, err)
	assert.True(t, exp.Equal(tokens.ExpiresAt))
}

func TestOAuthClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewOAuthClient(platform.Android, "hw", WithEndpoint(url))

	_, err := client.RefreshGrant(context.Background(), "refresh")
	var oauthErr *OAuthError
	require.ErrorAs(t, err, &oauthErr)
	assert.Zero(t, oauthErr.StatusCode)
	assert.NotNil(t, errors.Unwrap(oauthErr))
}
