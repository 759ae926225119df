package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aaditya8979/syncy-v3/internal/core"
	"github.com/aaditya8979/syncy-v3/internal/domain"
	"github.com/aaditya8979/syncy-v3/internal/protocol"
)

// Router applies inbound events to room state and computes the fan-out.
// One method per event; every method is safe to call from any connection
// goroutine because all room mutation happens under the room's own lock.
//
// Transport-control events are deliberately not checked against the
// recorded host. Host identity is advisory (first joiner, reassigned on
// departure); the server's job is consistent relay and bookkeeping, not
// authorization.
type Router struct {
	Registry *Registry
	Rooms    *core.Store

	clock func() time.Time
}

func NewRouter(reg *Registry, rooms *core.Store) *Router {
	return &Router{Registry: reg, Rooms: rooms, clock: time.Now}
}

// Connect registers a fresh connection before any event is read from it.
func (rt *Router) Connect(cid domain.ConnID) {
	rt.Registry.Bind(cid)
}

// Join subscribes the connection to a room. If the connection was in a
// different room it leaves that one first; a re-join of the same room only
// refreshes the member's connection. The whole room gets a members_update
// and the joiner alone gets the full state snapshot.
func (rt *Router) Join(cid domain.ConnID, conn core.Conn, p protocol.Join) {
	uid := domain.UserID(p.UserID)
	rid := domain.RoomID(p.RoomID)
	now := rt.clock()

	if sess, ok := rt.Registry.Lookup(cid); ok && sess.RoomID != "" && sess.RoomID != rid {
		rt.departRoom(cid, sess.UserID, sess.RoomID)
	}

	// A join can race the last member's departure and reach a room pointer
	// the store already dropped; such a join fails closed and we fetch a
	// fresh room from the table.
	var room *core.Room
	var res core.JoinResult
	for {
		room = rt.Rooms.GetOrCreate(rid, now)
		res = room.Join(uid, p.Username, cid, conn, now)
		if !res.Closed {
			break
		}
	}
	rt.Registry.BindRoom(cid, uid, rid)

	rt.broadcast(room, "", membersUpdate(rid, res.State.Members))
	rt.send(conn, roomState(res.State))

	log.Info().Str("module", "app.router").Str("room", string(rid)).
		Str("user", string(uid)).Bool("host", res.BecameHost).Msg("join")
}

// RequestState replies with a snapshot to the requester only. Unknown room
// ids get no reply; the protocol is fire-and-forget.
func (rt *Router) RequestState(cid domain.ConnID, conn core.Conn, p protocol.RoomRef) {
	room, ok := rt.Rooms.Get(domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	rt.send(conn, roomState(room.Snapshot(rt.clock())))
}

// Play records a playing position and relays it to the room minus sender.
func (rt *Router) Play(cid domain.ConnID, p protocol.Transport) {
	rt.transport(cid, p, domain.StatusPlaying)
}

// Pause records a paused position and relays it to the room minus sender.
func (rt *Router) Pause(cid domain.ConnID, p protocol.Transport) {
	rt.transport(cid, p, domain.StatusPaused)
}

func (rt *Router) transport(cid domain.ConnID, p protocol.Transport, status domain.PlaybackStatus) {
	room, ok := rt.Rooms.Get(domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	now := rt.clock()
	room.SetPlayback(p.Position, status, now)
	rt.broadcast(room, cid, protocol.SyncOut{
		Type:       protocol.EvSyncPosition,
		RoomID:     p.RoomID,
		Position:   p.Position,
		Status:     string(status),
		ServerTime: now.UnixMilli(),
	})
}

// SyncPosition is the periodic host heartbeat: same state update as
// play/pause, relayed with server_time rewritten to the receipt time.
func (rt *Router) SyncPosition(cid domain.ConnID, p protocol.Sync) {
	status := domain.PlaybackStatus(p.Status)
	if !status.Valid() {
		log.Debug().Str("module", "app.router").Str("status", p.Status).Msg("dropped heartbeat with unknown status")
		return
	}
	room, ok := rt.Rooms.Get(domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	now := rt.clock()
	room.SetPlayback(p.Position, status, now)
	rt.broadcast(room, cid, protocol.SyncOut{
		Type:       protocol.EvSyncPosition,
		RoomID:     p.RoomID,
		Position:   p.Position,
		Status:     string(status),
		ServerTime: now.UnixMilli(),
	})
}

// SongChange swaps the current track (playing from zero) or, with a null
// song, parks the room idle. Relayed to the room minus sender.
func (rt *Router) SongChange(cid domain.ConnID, p protocol.SongChange) {
	room, ok := rt.Rooms.Get(domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	room.SetTrack(p.Song, rt.clock())
	rt.broadcast(room, cid, protocol.SongChangeOut{
		Type:   protocol.EvSongChange,
		RoomID: p.RoomID,
		Song:   p.Song,
	})
}

// NextSong rewinds the playhead to zero; the track swap itself arrives as a
// separate song_change from the caller.
func (rt *Router) NextSong(cid domain.ConnID, p protocol.RoomRef) {
	room, ok := rt.Rooms.Get(domain.RoomID(p.RoomID))
	if !ok {
		return
	}
	room.Restart(rt.clock())
	rt.broadcast(room, cid, protocol.RoomOnly{Type: protocol.EvNextSong, RoomID: p.RoomID})
}

// Vote relays a ballot verbatim to the sender's current room. The server
// keeps no poll state.
func (rt *Router) Vote(cid domain.ConnID, raw core.Frame) {
	sess, ok := rt.Registry.Lookup(cid)
	if !ok || sess.RoomID == "" {
		return
	}
	room, ok := rt.Rooms.Get(sess.RoomID)
	if !ok {
		return
	}
	room.Broadcast(cid, raw)
}

// Leave removes the connection's member from the named room. The room
// binding stays cleared so a later disconnect is a no-op.
func (rt *Router) Leave(cid domain.ConnID, p protocol.RoomRef) {
	sess, ok := rt.Registry.Lookup(cid)
	if !ok || sess.RoomID != domain.RoomID(p.RoomID) {
		return
	}
	rt.departRoom(cid, sess.UserID, sess.RoomID)
	rt.Registry.ClearRoom(cid)
}

// Disconnect runs the departure path for a closing connection using the
// room/user binding recorded at join time, then forgets the connection.
func (rt *Router) Disconnect(cid domain.ConnID) {
	sess, ok := rt.Registry.Lookup(cid)
	if !ok {
		return
	}
	if sess.RoomID != "" {
		rt.departRoom(cid, sess.UserID, sess.RoomID)
	}
	rt.Registry.Unbind(cid)
}

// departRoom is the single departure path shared by leave, disconnect and
// implicit leave-on-room-switch. A stale connection (no longer the member's
// current one) changes nothing. The last member out deletes the room; if
// the host left, the promoted member is notified directly and the rest get
// the new member list.
func (rt *Router) departRoom(cid domain.ConnID, uid domain.UserID, rid domain.RoomID) {
	room, ok := rt.Rooms.Get(rid)
	if !ok {
		return
	}
	res := room.Leave(uid, cid)
	if !res.Removed {
		return
	}
	if res.Empty {
		rt.Rooms.RemoveIfEmpty(rid)
		log.Info().Str("module", "app.router").Str("room", string(rid)).Msg("room closed")
		return
	}
	if res.HostChanged && res.NewHostConn != nil {
		rt.send(res.NewHostConn, protocol.RoomOnly{Type: protocol.EvPromotedToHost, RoomID: string(rid)})
	}
	rt.broadcast(room, "", membersUpdate(rid, res.Members))
}

func (rt *Router) send(conn core.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal outbound")
		return
	}
	_ = conn.TrySend(b)
}

func (rt *Router) broadcast(room *core.Room, except domain.ConnID, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Msg("marshal outbound")
		return
	}
	room.Broadcast(except, b)
}

func memberInfos(rid domain.RoomID, members []domain.Member) []protocol.MemberInfo {
	out := make([]protocol.MemberInfo, 0, len(members))
	for _, m := range members {
		out = append(out, protocol.MemberInfo{
			UserID:   string(m.UserID),
			Username: m.Username,
			RoomID:   string(rid),
			JoinedAt: m.JoinedAt.UnixMilli(),
		})
	}
	return out
}

func membersUpdate(rid domain.RoomID, members []domain.Member) protocol.MembersUpdate {
	return protocol.MembersUpdate{
		Type:    protocol.EvMembersUpdate,
		RoomID:  string(rid),
		Members: memberInfos(rid, members),
	}
}

func roomState(st core.State) protocol.RoomState {
	return protocol.RoomState{
		Type:        protocol.EvRoomState,
		RoomID:      string(st.RoomID),
		CurrentSong: st.Track,
		Position:    st.Position,
		Status:      string(st.Status),
		ServerTime:  st.At.UnixMilli(),
		Members:     memberInfos(st.RoomID, st.Members),
	}
}
