// Package protocol defines the wire shapes of the sync protocol: one
// concrete struct per event name instead of free-form maps, so a payload
// that fails shape validation can be dropped before it reaches the router.
package protocol

import "github.com/aaditya8979/syncy-v3/internal/domain"

// Inbound event names.
const (
	EvJoin         = "join"
	EvLeave        = "leave"
	EvRequestState = "request_state"
	EvPlay         = "play"
	EvPause        = "pause"
	EvSyncPosition = "sync_position"
	EvSongChange   = "song_change"
	EvNextSong     = "next_song"
	EvVote         = "vote"
)

// Outbound event names.
const (
	EvMembersUpdate  = "members_update"
	EvRoomState      = "room_state"
	EvPromotedToHost = "promoted_to_host"
)

// Envelope is the minimal frame read first to pick a handler.
type Envelope struct {
	Type string `json:"type"`
}

// Join subscribes the connection to a room, implicitly leaving any room the
// connection was in before.
type Join struct {
	RoomID   string `json:"room_id" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username"`
}

// RoomRef covers the events that carry nothing but a room id:
// leave, request_state and next_song.
type RoomRef struct {
	RoomID string `json:"room_id" validate:"required"`
}

// Transport is a play or pause at an explicit position.
type Transport struct {
	RoomID   string  `json:"room_id" validate:"required"`
	Position float64 `json:"position"`
}

// Sync is the periodic host heartbeat. ServerTime is rewritten to the
// receipt time before relaying; the client-supplied value is never trusted.
type Sync struct {
	RoomID     string  `json:"room_id" validate:"required"`
	Position   float64 `json:"position"`
	Status     string  `json:"status" validate:"required"`
	ServerTime int64   `json:"server_time"`
}

// SongChange swaps the room's current track. A null song empties the room's
// deck and parks it idle.
type SongChange struct {
	RoomID string        `json:"room_id" validate:"required"`
	Song   *domain.Track `json:"song"`
}

// Vote is a poll ballot. The server holds no poll state; the payload is
// relayed verbatim to the sender's room.
type Vote struct {
	PollID string `json:"poll_id" validate:"required"`
	UserID string `json:"user_id" validate:"required"`
	SongID string `json:"song_id" validate:"required"`
}

// MemberInfo is the wire form of one room member.
type MemberInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	RoomID   string `json:"room_id"`
	JoinedAt int64  `json:"joined_at"`
}

// MembersUpdate announces the current member list to a room.
type MembersUpdate struct {
	Type    string       `json:"type"`
	RoomID  string       `json:"room_id"`
	Members []MemberInfo `json:"members"`
}

// RoomState is the full snapshot sent to a joining or querying connection,
// with the playhead extrapolated to ServerTime (epoch milliseconds).
type RoomState struct {
	Type        string        `json:"type"`
	RoomID      string        `json:"room_id"`
	CurrentSong *domain.Track `json:"currentSong"`
	Position    float64       `json:"position"`
	Status      string        `json:"status"`
	ServerTime  int64         `json:"server_time"`
	Members     []MemberInfo  `json:"members"`
}

// SyncOut is the relayed transport/heartbeat update.
type SyncOut struct {
	Type       string  `json:"type"`
	RoomID     string  `json:"room_id"`
	Position   float64 `json:"position"`
	Status     string  `json:"status"`
	ServerTime int64   `json:"server_time"`
}

// SongChangeOut relays a track swap.
type SongChangeOut struct {
	Type   string        `json:"type"`
	RoomID string        `json:"room_id"`
	Song   *domain.Track `json:"song"`
}

// RoomOnly covers outbound events carrying just the room id:
// next_song and promoted_to_host.
type RoomOnly struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}
