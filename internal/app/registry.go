package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

// Session is what the registry knows about one connection: the user it
// currently speaks for and the room it last joined. The room binding
// recorded here is what the disconnect path trusts, not whatever the
// connection claims in its final messages.
type Session struct {
	UserID domain.UserID
	RoomID domain.RoomID
}

// Registry maps transport connections to their logical identity. It holds
// no state beyond connection lifetime; Unbind clears everything.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ConnID]*Session)}
}

// Bind registers a fresh connection with no identity yet.
func (r *Registry) Bind(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[cid] = &Session{}
	log.Debug().Str("module", "app.registry").Str("conn", string(cid)).Msg("bound connection")
}

// Lookup returns a copy of the session for cid.
func (r *Registry) Lookup(cid domain.ConnID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[cid]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// BindRoom records that cid now speaks for uid inside rid.
func (r *Registry) BindRoom(cid domain.ConnID, uid domain.UserID, rid domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[cid]
	if !ok {
		s = &Session{}
		r.sessions[cid] = s
	}
	s.UserID = uid
	s.RoomID = rid
	log.Debug().Str("module", "app.registry").Str("conn", string(cid)).
		Str("user", string(uid)).Str("room", string(rid)).Msg("bound room")
}

// ClearRoom drops the room association but keeps the connection bound.
func (r *Registry) ClearRoom(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[cid]; ok {
		s.RoomID = ""
	}
}

// Unbind forgets the connection entirely.
func (r *Registry) Unbind(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, cid)
	log.Debug().Str("module", "app.registry").Str("conn", string(cid)).Msg("unbound connection")
}

// Len reports how many connections are bound.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
