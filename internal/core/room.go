package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

// memberSlot pairs a member's meta with its current transport endpoint.
type memberSlot struct {
	meta *domain.Member
	conn Conn
}

// Room is a threadsafe in-memory room. All playback fields are guarded by
// one mutex so every inbound event applies atomically; position and
// lastSync are only ever written together. The room never closes
// adapter-owned connections.
type Room struct {
	id domain.RoomID

	mu      sync.Mutex
	members map[domain.UserID]*memberSlot
	host    domain.UserID
	// closed is set when the store drops the room. A join that raced the
	// deletion and still holds this pointer must go back to the table.
	closed bool

	track    *domain.Track
	position float64
	status   domain.PlaybackStatus
	lastSync time.Time
}

func newRoom(id domain.RoomID, now time.Time) *Room {
	return &Room{
		id:       id,
		members:  make(map[domain.UserID]*memberSlot),
		status:   domain.StatusIdle,
		lastSync: now,
	}
}

func (r *Room) ID() domain.RoomID { return r.id }

// State is a consistent read-only view of a room, with the playhead already
// extrapolated to the capture instant.
type State struct {
	RoomID   domain.RoomID
	Track    *domain.Track
	Position float64
	Status   domain.PlaybackStatus
	At       time.Time
	Host     domain.UserID
	Members  []domain.Member
}

// JoinResult reports what a join changed. Closed means the store deleted
// the room between the caller's lookup and this call; nothing was changed
// and the caller must fetch a fresh room from the table.
type JoinResult struct {
	BecameHost bool
	Rejoin     bool
	Closed     bool
	State      State
}

// Join upserts the member for uid. A re-join keeps the original JoinedAt and
// only swaps the authoritative connection; the first member in becomes host.
func (r *Room) Join(uid domain.UserID, username string, cid domain.ConnID, conn Conn, now time.Time) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := JoinResult{}
	if r.closed {
		res.Closed = true
		return res
	}
	if slot, ok := r.members[uid]; ok {
		slot.meta.Username = username
		slot.meta.ConnID = cid
		slot.conn = conn
		res.Rejoin = true
	} else {
		r.members[uid] = &memberSlot{
			meta: domain.NewMember(uid, username, cid, now),
			conn: conn,
		}
	}
	if r.host == "" {
		r.host = uid
		res.BecameHost = true
	}
	res.State = r.snapshotLocked(now)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).
		Str("user", string(uid)).Bool("rejoin", res.Rejoin).Bool("host", res.BecameHost).
		Msg("member joined")
	return res
}

// LeaveResult reports what a departure changed.
type LeaveResult struct {
	Removed     bool
	Empty       bool
	HostChanged bool
	NewHost     domain.UserID
	NewHostConn Conn
	Members     []domain.Member
}

// Leave removes the member for uid, but only when cid is still that member's
// current connection; a stale connection departing is a no-op. When the
// departed user was host, the member with the earliest JoinedAt (ties broken
// by UserID) is promoted.
func (r *Room) Leave(uid domain.UserID, cid domain.ConnID) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := LeaveResult{}
	slot, ok := r.members[uid]
	if !ok || slot.meta.ConnID != cid {
		return res
	}
	delete(r.members, uid)
	res.Removed = true

	if len(r.members) == 0 {
		r.host = ""
		res.Empty = true
		return res
	}
	if r.host == uid {
		next := r.successorLocked()
		r.host = next.meta.UserID
		res.HostChanged = true
		res.NewHost = next.meta.UserID
		res.NewHostConn = next.conn
		log.Info().Str("module", "core.room").Str("room", string(r.id)).
			Str("user", string(next.meta.UserID)).Msg("host promoted")
	}
	res.Members = r.membersLocked()
	return res
}

// successorLocked picks the next host: earliest JoinedAt, then UserID.
func (r *Room) successorLocked() *memberSlot {
	var best *memberSlot
	for _, slot := range r.members {
		if best == nil {
			best = slot
			continue
		}
		switch {
		case slot.meta.JoinedAt.Before(best.meta.JoinedAt):
			best = slot
		case slot.meta.JoinedAt.Equal(best.meta.JoinedAt) && slot.meta.UserID < best.meta.UserID:
			best = slot
		}
	}
	return best
}

// SetPlayback records a transport-control or heartbeat update. lastSync is
// always the server's receipt time, never a client timestamp.
func (r *Room) SetPlayback(position float64, status domain.PlaybackStatus, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = position
	r.status = status
	r.lastSync = now
}

// SetTrack swaps the current track. A nil track means the queue ran dry:
// the room goes idle at position zero.
func (r *Room) SetTrack(t *domain.Track, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.track = t
	r.position = 0
	if t != nil {
		r.status = domain.StatusPlaying
	} else {
		r.status = domain.StatusIdle
	}
	r.lastSync = now
}

// Restart rewinds the playhead to zero without touching track or status.
// The caller follows up with SetTrack once it knows the next track.
func (r *Room) Restart(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.position = 0
	r.lastSync = now
}

// Snapshot returns a consistent view of the room as of now.
func (r *Room) Snapshot(now time.Time) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(now)
}

func (r *Room) snapshotLocked(now time.Time) State {
	return State{
		RoomID:   r.id,
		Track:    r.track,
		Position: Playhead(r.position, r.status, r.lastSync, now),
		Status:   r.status,
		At:       now,
		Host:     r.host,
		Members:  r.membersLocked(),
	}
}

// membersLocked returns member metas sorted by JoinedAt then UserID, so
// member lists on the wire are stable across snapshots.
func (r *Room) membersLocked() []domain.Member {
	out := make([]domain.Member, 0, len(r.members))
	for _, slot := range r.members {
		out = append(out, *slot.meta)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Host returns the current advisory host.
func (r *Room) Host() domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// Broadcast fans data out to every member's current connection except the
// one identified by except. Pass an empty ConnID to reach the whole room.
// Frames a connection cannot accept are dropped, never retried.
func (r *Room) Broadcast(except domain.ConnID, data Frame) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := PublishResult{}
	for _, slot := range r.members {
		if slot.meta.ConnID == except {
			continue
		}
		if err := slot.conn.TrySend(data); err != nil {
			res.Dropped++
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).
		Int("sent_to", res.SentTo).Int("dropped", res.Dropped).Msg("broadcast result")
	return res
}
