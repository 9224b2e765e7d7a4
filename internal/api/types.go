package api

import (
	"encoding/json"
	"time"
)

// Profile is the logged in user, as returned by session registration.
type Profile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	// Extra holds every other field Ring returned.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unmapped fields in Extra.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type known Profile
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	extra, err := extraFields(data, "id", "email", "first_name", "last_name")
	if err != nil {
		return err
	}
	*p = Profile(k)
	p.Extra = extra
	return nil
}

// Session is the result of registering this client with Ring.
type Session struct {
	Profile Profile `json:"profile"`
}

// Device kinds Ring is known to report. Other values pass through unchanged.
const (
	DeviceKindCamera        = "cocoa_camera"
	DeviceKindDoorbell      = "doorbell_graham_cracker"
	DeviceKindBaseStationV1 = "base_station_v1"
)

// Device is one entry of the account's device listing.
type Device struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	LocationID  string `json:"location_id"`
	Description string `json:"description"`

	// Group is the listing the device came from, e.g. "doorbots" or "chimes".
	Group string `json:"-"`

	// Extra holds every other field Ring returned.
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unmapped fields in Extra.
func (d *Device) UnmarshalJSON(data []byte) error {
	type known Device
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	extra, err := extraFields(data, "id", "kind", "location_id", "description")
	if err != nil {
		return err
	}
	*d = Device(k)
	d.Extra = extra
	return nil
}

// deviceGroups is the order devices are flattened in.
var deviceGroups = []string{
	"doorbots",
	"authorized_doorbots",
	"chimes",
	"stickup_cams",
	"base_stations",
	"beams",
	"beams_bridges",
	"other",
}

// LocationAddress is the postal address of a location.
type LocationAddress struct {
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Country     string `json:"country"`
	CrossStreet string `json:"cross_street"`
	State       string `json:"state"`
	Timezone    string `json:"timezone"`
	ZipCode     string `json:"zip_code"`
}

// GeoCoordinates locate a location on a map.
type GeoCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a property in the Ring account.
type Location struct {
	ID             string          `json:"location_id"`
	Name           string          `json:"name"`
	Address        LocationAddress `json:"address"`
	GeoCoordinates GeoCoordinates  `json:"geo_coordinates"`

	// GeoServiceVerified is either a plain string such as "verified" or an
	// object; it is kept raw.
	GeoServiceVerified json.RawMessage `json:"geo_service_verified,omitempty"`

	IsJobsite    bool      `json:"is_jobsite"`
	IsOwner      bool      `json:"is_owner"`
	OwnerID      int64     `json:"owner_id"`
	UserVerified bool      `json:"user_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Asset is a Ring hub reachable through a ticket host.
type Asset struct {
	UUID       string `json:"uuid"`
	DoorbotID  int64  `json:"doorbotId"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	BrokerHost string `json:"brokerHost"`
	OnBattery  bool   `json:"onBattery"`
}

// Ticket authorises one event channel connection for a location.
type Ticket struct {
	// ID is sent as the authcode when connecting.
	ID string `json:"ticket"`

	// Host is the websocket host to connect to.
	Host string `json:"host"`

	SubscriptionTopics []string `json:"subscriptionTopics"`
	Assets             []Asset  `json:"assets"`
}

// extraFields returns the object fields of data not named in known.
func extraFields(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}
