package models

// TimestampLayout is the wire and journal format for sample timestamps.
// Timestamps are compared as opaque strings; second resolution is enough
// because the poll interval bounds the sampling rate.
const TimestampLayout = "2006-01-02 15:04:05"

// Coordinate represents one recorded position of the tracked device.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Timestamp string  `json:"ts"`
}
