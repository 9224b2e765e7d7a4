package ring

import (
	"ringclient/internal/api"
	"ringclient/pkg/auth"
	"ringclient/pkg/events"
	"ringclient/pkg/platform"
)

type (
	// Device is one entry of the account's device listing.
	Device = api.Device

	// Location is a property in the account.
	Location = api.Location

	// Profile is the logged in user.
	Profile = api.Profile

	// Ticket authorises one event channel.
	Ticket = api.Ticket

	Event   = events.Event
	Message = events.Message
	Kind    = events.Kind

	Credentials  = auth.Credentials
	UserPassword = auth.UserPassword
	RefreshToken = auth.RefreshToken

	OperatingSystem = platform.OperatingSystem
)

const (
	Android = platform.Android
	IOS     = platform.IOS
)
