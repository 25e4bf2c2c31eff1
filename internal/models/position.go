package models

// Position is the payload published to the MQTT position topic whenever a
// new coordinate is accepted into the history.
type Position struct {
	Device    string  `json:"device"`
	Timestamp string  `json:"timestamp"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
