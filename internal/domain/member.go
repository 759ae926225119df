package domain

import "time"

// Member represents a user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	UserID   UserID
	Username string
	// ConnID is the member's most recent connection. Older connections for
	// the same user stay open but are no longer authoritative.
	ConnID   ConnID
	JoinedAt time.Time
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(uid UserID, username string, cid ConnID, joinedAt time.Time) *Member {
	return &Member{UserID: uid, Username: username, ConnID: cid, JoinedAt: joinedAt}
}
