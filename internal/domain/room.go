// Package domain contains entity types without logic, just meta-data.
package domain

type (
	// RoomID is an opaque room identifier minted by the client side.
	RoomID string
	// UserID is the logical identity a connection speaks for.
	UserID string
	// ConnID identifies one transport connection. A user reconnecting or
	// opening a second tab gets a fresh ConnID while keeping its UserID.
	ConnID string
)

// PlaybackStatus is the transport state of a room's playhead.
type PlaybackStatus string

const (
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
	StatusIdle    PlaybackStatus = "idle"
)

// Valid reports whether s is one of the known statuses.
func (s PlaybackStatus) Valid() bool {
	switch s {
	case StatusPlaying, StatusPaused, StatusIdle:
		return true
	}
	return false
}
