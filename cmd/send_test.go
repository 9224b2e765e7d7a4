package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWritesMessage(t *testing.T) {
	f := newFakeRing(t)
	useFakeRing(t, f)
	storeToken(t, "refresh-old")

	_, _, err := executeCommand(newSendCmd(), "loc-1", "DeviceInfoSet", `{"body":[{"zid":"z1","command":{"v1":[]}}]}`)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.receivedFrames()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"msg":"DeviceInfoSet","body":[{"zid":"z1","command":{"v1":[]}}]}`, f.receivedFrames()[0])
}

func TestSendWithoutBody(t *testing.T) {
	f := newFakeRing(t)
	useFakeRing(t, f)
	storeToken(t, "refresh-old")

	_, _, err := executeCommand(newSendCmd(), "loc-1", "SubscriptionTopicsInfo")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.receivedFrames()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"msg":"SubscriptionTopicsInfo"}`, f.receivedFrames()[0])
}

func TestSendUnknownKindIsSentVerbatim(t *testing.T) {
	f := newFakeRing(t)
	useFakeRing(t, f)
	storeToken(t, "refresh-old")

	_, _, err := executeCommand(newSendCmd(), "loc-1", "RoomGetList", `{"dst":"hub"}`)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.receivedFrames()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"msg":"RoomGetList","dst":"hub"}`, f.receivedFrames()[0])
}

func TestSendPrintsEventsWhileWaiting(t *testing.T) {
	f := newFakeRing(t)
	f.frames = []string{`{"msg":"DataUpdate","body":[]}`}
	useFakeRing(t, f)
	storeToken(t, "refresh-old")

	stdout, _, err := executeCommand(newSendCmd(), "loc-1", "SubscriptionTopicsInfo", "--wait", "300ms")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"DataUpdate"`)
}

func TestSendRejectsBadBody(t *testing.T) {
	f := newFakeRing(t)
	useFakeRing(t, f)
	storeToken(t, "refresh-old")

	_, _, err := executeCommand(newSendCmd(), "loc-1", "DeviceInfoSet", "not json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")

	_, _, err = executeCommand(newSendCmd(), "loc-1", "DeviceInfoSet", "[1,2]")
	require.Error(t, err, "the body must be an object")

	assert.Zero(t, f.refreshGrants.Load(), "nothing is sent for an invalid body")
	assert.Empty(t, f.receivedFrames())
}
