// Package platform describes the client identity presented to the Ring
// backend: which official app the client impersonates and the stable
// hardware identifier derived from the caller's system id.
package platform

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OperatingSystem is the platform to identify as when talking to Ring.
type OperatingSystem int

const (
	// Android identifies as the official Android app.
	Android OperatingSystem = iota
	// IOS identifies as the official iOS app.
	IOS
)

// String returns the lowercase name Ring expects in session metadata.
func (o OperatingSystem) String() string {
	switch o {
	case Android:
		return "android"
	case IOS:
		return "ios"
	default:
		return "unknown"
	}
}

// ClientID returns the OAuth client id registered for the platform.
func (o OperatingSystem) ClientID() string {
	if o == Android {
		return "ring_official_android"
	}
	return "ring_official_ios"
}

// UserAgent returns the User-Agent header sent on every request.
func (o OperatingSystem) UserAgent() string {
	if o == Android {
		return "android:com.ringapp"
	}
	return "ios:com.ringapp"
}

// MarshalText implements encoding.TextMarshaler.
func (o OperatingSystem) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *OperatingSystem) UnmarshalText(text []byte) error {
	parsed, err := ParseOperatingSystem(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOperatingSystem parses "android" or "ios" (case insensitive).
func ParseOperatingSystem(s string) (OperatingSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "android":
		return Android, nil
	case "ios", "":
		return IOS, nil
	default:
		return IOS, fmt.Errorf("unsupported operating system %q (supported: android, ios)", s)
	}
}

// hardwareNamespace scopes generated hardware ids to this client.
var hardwareNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://ring.com/clients_api/session"))

// HardwareID derives the hardware id registered with Ring for a system id.
//
// Ring uses the hardware id to recognise the client on later logins, so the
// value must be stable: the same system id always yields the same 32
// character id, and any change to the system id yields a different one.
//
// The id is the hex form of a UUIDv5, so it only uses 0-9 and a-f. Other Ring
// clients derive a mixed-case alphanumeric id from the same system id, so a
// system id shared with such a client registers as a different device and
// will be challenged for 2FA again.
func HardwareID(systemID string) string {
	id := uuid.NewSHA1(hardwareNamespace, []byte(systemID))
	return strings.ReplaceAll(id.String(), "-", "")
}
