package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantKind Kind
		wantName string
		wantBody string
		wantErr  bool
	}{
		{
			name:     "session info",
			frame:    `{"msg":"SessionInfo","body":[{"zid":"z1"}],"datatype":"SessionInfoType"}`,
			wantKind: KindSessionInfo,
			wantName: "SessionInfo",
			wantBody: `{"body":[{"zid":"z1"}],"datatype":"SessionInfoType"}`,
		},
		{
			name:     "subscription topics without payload",
			frame:    `{"msg":"SubscriptionTopicsInfo"}`,
			wantKind: KindSubscriptionTopicsInfo,
			wantName: "SubscriptionTopicsInfo",
		},
		{
			name:     "device info set",
			frame:    `{"msg":"DeviceInfoSet","body":[]}`,
			wantKind: KindDeviceInfoSet,
			wantName: "DeviceInfoSet",
			wantBody: `{"body":[]}`,
		},
		{
			name:     "data update",
			frame:    `{"datatype":"HubDisconnectionEventType","msg":"DataUpdate"}`,
			wantKind: KindDataUpdate,
			wantName: "DataUpdate",
			wantBody: `{"datatype":"HubDisconnectionEventType"}`,
		},
		{
			name:     "unknown kind",
			frame:    `{"msg":"RoomGetList","body":{}}`,
			wantKind: KindUnknown,
			wantName: "RoomGetList",
			wantBody: `{"body":{}}`,
		},
		{name: "missing msg", frame: `{"body":{}}`, wantErr: true},
		{name: "non-string msg", frame: `{"msg":42}`, wantErr: true},
		{name: "array", frame: `[{"msg":"DataUpdate"}]`, wantErr: true},
		{name: "null", frame: `null`, wantErr: true},
		{name: "garbage", frame: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseEvent([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, event.Message.Kind)
			assert.Equal(t, tt.wantName, event.Message.Name)
			if tt.wantBody == "" {
				assert.Empty(t, event.Message.Body)
			} else {
				assert.JSONEq(t, tt.wantBody, string(event.Message.Body))
			}
		})
	}
}

func TestMessage_MarshalJSON(t *testing.T) {
	msg, err := NewMessage(KindDataUpdate, map[string]any{
		"datatype": "DeviceInfoSetType",
		"body":     []any{map[string]any{"zid": "z1"}},
	})
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":"DataUpdate","datatype":"DeviceInfoSetType","body":[{"zid":"z1"}]}`, string(data))

	// An Event has no envelope of its own.
	eventData, err := json.Marshal(Event{Message: msg})
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(eventData))
}

func TestMessage_MarshalJSON_Edges(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		data, err := json.Marshal(Message{Kind: KindSessionInfo})
		require.NoError(t, err)
		assert.JSONEq(t, `{"msg":"SessionInfo"}`, string(data))
	})

	t.Run("unknown keeps its name", func(t *testing.T) {
		data, err := json.Marshal(Message{Kind: KindUnknown, Name: "RoomGetList"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"msg":"RoomGetList"}`, string(data))
	})

	t.Run("non-object body", func(t *testing.T) {
		_, err := json.Marshal(Message{Kind: KindDataUpdate, Body: json.RawMessage(`[1,2]`)})
		assert.Error(t, err)
	})

	t.Run("no kind", func(t *testing.T) {
		_, err := json.Marshal(Message{})
		assert.Error(t, err)
	})

	t.Run("body msg field is overridden", func(t *testing.T) {
		data, err := json.Marshal(Message{Kind: KindDataUpdate, Body: json.RawMessage(`{"msg":"Other","x":1}`)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"msg":"DataUpdate","x":1}`, string(data))
	})
}

func TestMessage_Decode(t *testing.T) {
	event, err := ParseEvent([]byte(`{"msg":"DataUpdate","datatype":"x","context":{"assetId":"a1"}}`))
	require.NoError(t, err)

	var body struct {
		Datatype string `json:"datatype"`
		Context  struct {
			AssetID string `json:"assetId"`
		} `json:"context"`
	}
	require.NoError(t, event.Message.Decode(&body))
	assert.Equal(t, "x", body.Datatype)
	assert.Equal(t, "a1", body.Context.AssetID)

	var empty map[string]any
	require.NoError(t, Message{Kind: KindSessionInfo}.Decode(&empty))
	assert.Empty(t, empty)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindDataUpdate, ParseKind("DataUpdate"))
	assert.Equal(t, KindUnknown, ParseKind("dataupdate"))
	assert.Equal(t, KindUnknown, ParseKind("Unknown"))
	assert.Equal(t, KindUnknown, ParseKind(""))
}
