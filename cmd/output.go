package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ringclient/pkg/auth"
	"ringclient/pkg/ring"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// maxCellWidth truncates free-text columns.
const maxCellWidth = 60

// newTable creates a table with the standard styling.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = text.FgHiCyan.Sprint(c)
	}
	return row
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func emptyMessage(w io.Writer, what string) {
	fmt.Fprintf(w, "%s\n", text.FgYellow.Sprintf("No %s found", what))
}

func renderDevices(w io.Writer, devices []ring.Device) {
	if len(devices) == 0 {
		emptyMessage(w, "devices")
		return
	}

	t := newTable(w)
	t.AppendHeader(header("ID", "NAME", "KIND", "GROUP", "LOCATION"))
	for _, d := range devices {
		t.AppendRow(table.Row{d.ID, truncate(d.Description), d.Kind, d.Group, d.LocationID})
	}
	t.AppendFooter(table.Row{"", "", "", text.FgHiBlue.Sprint("Total"), len(devices)})
	t.Render()
}

func renderLocations(w io.Writer, locations []ring.Location) {
	if len(locations) == 0 {
		emptyMessage(w, "locations")
		return
	}

	t := newTable(w)
	t.AppendHeader(header("ID", "NAME", "ADDRESS", "OWNER"))
	for _, l := range locations {
		address := l.Address.Address1
		if l.Address.City != "" {
			address += ", " + l.Address.City
		}
		t.AppendRow(table.Row{l.ID, truncate(l.Name), truncate(address), yesNo(l.IsOwner)})
	}
	t.Render()
}

// accountStatus is what the status command prints.
type accountStatus struct {
	auth.StatusResponse
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Devices   int    `json:"devices"`
	Locations int    `json:"locations"`
}

func renderStatus(w io.Writer, s accountStatus) {
	t := newTable(w)
	t.AppendHeader(header("KEY", "VALUE"))
	t.AppendRow(table.Row{"State", stateText(s.State)})
	if s.Email != "" {
		t.AppendRow(table.Row{"Account", s.Email})
	}
	if s.Name != "" {
		t.AppendRow(table.Row{"Name", s.Name})
	}
	if s.ExpiresAt != nil {
		t.AppendRow(table.Row{"Access token", formatExpiry(*s.ExpiresAt)})
	}
	t.AppendRow(table.Row{"Refresh token", yesNo(s.HasRefreshToken)})
	t.AppendRow(table.Row{"Devices", s.Devices})
	t.AppendRow(table.Row{"Locations", s.Locations})
	t.Render()
}

func stateText(state string) string {
	switch state {
	case auth.StateAuthenticated.String():
		return text.FgGreen.Sprint(state)
	case auth.StateMfaRequired.String(), auth.StateRefreshing.String():
		return text.FgYellow.Sprint(state)
	default:
		return text.FgRed.Sprint(state)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate collapses whitespace so a cell stays on one line, then cuts it
// to maxCellWidth runes.
func truncate(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) > maxCellWidth {
		return string(r[:maxCellWidth-3]) + "..."
	}
	return string(r)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// formatExpiry formats a time as "expires in X" or "expired X ago".
func formatExpiry(expiresAt time.Time) string {
	remaining := time.Until(expiresAt)
	if remaining > 0 {
		return "expires in " + formatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", formatDuration(-remaining))
}
