package domain

import "time"

// VenueState is the connection lifecycle state of one venue adapter.
type VenueState int

const (
	VenueDisconnected VenueState = iota
	VenueConnecting
	VenueSubscribed
	VenueStreaming
	VenueFailed // terminal: reconnect attempts exhausted
)

// String returns the lowercase state name used in logs and API responses.
func (s VenueState) String() string {
	switch s {
	case VenueDisconnected:
		return "disconnected"
	case VenueConnecting:
		return "connecting"
	case VenueSubscribed:
		return "subscribed"
	case VenueStreaming:
		return "streaming"
	case VenueFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText makes VenueState render as its name in JSON responses.
func (s VenueState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VenueStatus is a point-in-time report of one adapter's health.
type VenueStatus struct {
	Venue        string     `json:"venue"`
	State        VenueState `json:"state"`
	Reconnects   int        `json:"reconnects"`
	Observations int64      `json:"observations"`
	LastMessage  time.Time  `json:"last_message,omitzero"`
	LastError    string     `json:"last_error,omitempty"`
}
