package models

import (
	"strings"
	"time"
)

// DeviceRecord represents a single device as reported by a snapshot
// provider. Location and Address are nil when the provider had no usable
// data for them; a non-nil Location always carries valid coordinates.
type DeviceRecord struct {
	Name          string    `json:"name"`
	SerialNumber  string    `json:"serial_number,omitempty"`
	Model         string    `json:"model,omitempty"`
	BatteryStatus string    `json:"battery_status,omitempty"`
	Location      *Location `json:"location,omitempty"`
	Address       *Address  `json:"address,omitempty"`
}

// Location represents the geographical position reported for a device.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SampledAt time.Time `json:"sampled_at"`
	IsOld     bool      `json:"is_old"`
}

// Address represents the reverse-geocoded address metadata of a device.
type Address struct {
	Street    string `json:"street,omitempty"`
	Locality  string `json:"locality,omitempty"`
	StateCode string `json:"state_code,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Format renders the address as a single comma separated line, omitting
// empty components.
func (a *Address) Format() string {
	if a == nil {
		return ""
	}
	full := a.Street + ", " + a.Locality + ", " + a.StateCode + " " + a.Country
	return strings.Trim(strings.TrimSpace(full), ", ")
}
