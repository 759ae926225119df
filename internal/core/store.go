package core

import (
	"sync"
	"time"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

// Store owns the table of live rooms. A room exists here exactly while it
// has members; per-room state is guarded by the room's own mutex and the
// table lock is only held for insertion, lookup and deletion.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[domain.RoomID]*Room)}
}

// GetOrCreate returns the room for id, creating an idle one on first use.
// When two connections race on a new id, exactly one creation wins.
func (s *Store) GetOrCreate(id domain.RoomID, now time.Time) *Room {
	s.mu.RLock()
	room, ok := s.rooms[id]
	s.mu.RUnlock()
	if ok {
		return room
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[id]; ok {
		return room
	}
	room = newRoom(id, now)
	s.rooms[id] = room
	return room
}

// Get returns the room for id without creating it.
func (s *Store) Get(id domain.RoomID) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

// RemoveIfEmpty deletes the room for id unless a concurrent join refilled
// it between the caller's emptiness check and this call. The room is marked
// closed under its own lock while the table lock is held, so a join still
// holding the stale pointer fails instead of landing on an orphan. Lock
// order is table then room, same as the join path.
func (s *Store) RemoveIfEmpty(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return
	}
	room.mu.Lock()
	empty := len(room.members) == 0
	if empty {
		room.closed = true
	}
	room.mu.Unlock()
	if empty {
		delete(s.rooms, id)
	}
}

// RoomInfo is a read-only row for the debug room listing.
type RoomInfo struct {
	ID          domain.RoomID `json:"room_id"`
	MemberCount int           `json:"member_count"`
}

func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, room := range s.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: room.MemberCount()})
	}
	return out
}

// Len reports how many rooms are live.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
