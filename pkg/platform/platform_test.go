package platform

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatingSystem(t *testing.T) {
	tests := []struct {
		os        OperatingSystem
		name      string
		clientID  string
		userAgent string
	}{
		{Android, "android", "ring_official_android", "android:com.ringapp"},
		{IOS, "ios", "ring_official_ios", "ios:com.ringapp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.os.String())
			assert.Equal(t, tt.clientID, tt.os.ClientID())
			assert.Equal(t, tt.userAgent, tt.os.UserAgent())
		})
	}
}

func TestParseOperatingSystem(t *testing.T) {
	os, err := ParseOperatingSystem("Android")
	require.NoError(t, err)
	assert.Equal(t, Android, os)

	os, err = ParseOperatingSystem("")
	require.NoError(t, err)
	assert.Equal(t, IOS, os)

	_, err = ParseOperatingSystem("windows")
	assert.Error(t, err)
}

func TestOperatingSystem_TextRoundTrip(t *testing.T) {
	var os OperatingSystem
	require.NoError(t, os.UnmarshalText([]byte("android")))
	assert.Equal(t, Android, os)

	text, err := os.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "android", string(text))
}

func TestHardwareID_IsPredictable(t *testing.T) {
	first := HardwareID("mock-system-id")
	second := HardwareID("mock-system-id")

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
	assert.NotEqual(t, first, HardwareID("another-system-id"))
}

func TestHardwareID_IsLowercaseHex(t *testing.T) {
	for _, systemID := range []string{"mock-system-id", "", "ÄÖÜ system"} {
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), HardwareID(systemID), systemID)
	}
}
