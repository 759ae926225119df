package core

import (
	"testing"
	"time"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

// nopConn is a throwaway transport for membership tests.
type nopConn struct{ sent int }

func (c *nopConn) TrySend(Frame) error { c.sent++; return nil }
func (c *nopConn) Close()              {}

func TestJoinFirstMemberBecomesHost(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)

	res := room.Join("alice", "Alice", "c1", &nopConn{}, now)
	if !res.BecameHost {
		t.Fatal("first joiner should become host")
	}
	if res.Rejoin {
		t.Fatal("first join reported as rejoin")
	}
	if room.Host() != "alice" {
		t.Fatalf("host = %q, want alice", room.Host())
	}

	res = room.Join("bob", "Bob", "c2", &nopConn{}, now.Add(time.Second))
	if res.BecameHost {
		t.Fatal("second joiner must not take over host")
	}
	if room.MemberCount() != 2 {
		t.Fatalf("member count = %d, want 2", room.MemberCount())
	}
}

func TestRejoinKeepsJoinedAtAndSwapsConn(t *testing.T) {
	t0 := time.Now()
	room := newRoom("r1", t0)
	room.Join("alice", "Alice", "c1", &nopConn{}, t0)

	res := room.Join("alice", "Alice", "c2", &nopConn{}, t0.Add(10*time.Second))
	if !res.Rejoin {
		t.Fatal("expected rejoin")
	}
	if room.MemberCount() != 1 {
		t.Fatalf("member count = %d, want 1", room.MemberCount())
	}
	m := res.State.Members[0]
	if !m.JoinedAt.Equal(t0) {
		t.Fatalf("joinedAt = %v, want original %v", m.JoinedAt, t0)
	}
	if m.ConnID != "c2" {
		t.Fatalf("connID = %q, want c2", m.ConnID)
	}
}

func TestLeaveStaleConnIsNoop(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)
	room.Join("alice", "Alice", "c1", &nopConn{}, now)
	room.Join("alice", "Alice", "c2", &nopConn{}, now)

	res := room.Leave("alice", "c1")
	if res.Removed {
		t.Fatal("stale connection must not remove the member")
	}
	if room.MemberCount() != 1 {
		t.Fatalf("member count = %d, want 1", room.MemberCount())
	}
	if room.Host() != "alice" {
		t.Fatal("host must be unaffected by stale departure")
	}
}

func TestLeaveLastMemberEmptiesRoom(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)
	room.Join("alice", "Alice", "c1", &nopConn{}, now)

	res := room.Leave("alice", "c1")
	if !res.Removed || !res.Empty {
		t.Fatalf("res = %+v, want removed and empty", res)
	}
	if room.Host() != "" {
		t.Fatal("empty room must have no host")
	}
}

func TestHostSuccessorEarliestJoin(t *testing.T) {
	t0 := time.Now()
	room := newRoom("r1", t0)
	room.Join("alice", "Alice", "c1", &nopConn{}, t0)
	room.Join("carol", "Carol", "c3", &nopConn{}, t0.Add(time.Second))
	room.Join("bob", "Bob", "c2", &nopConn{}, t0.Add(2*time.Second))

	res := room.Leave("alice", "c1")
	if !res.HostChanged {
		t.Fatal("host departure must promote a successor")
	}
	if res.NewHost != "carol" {
		t.Fatalf("new host = %q, want carol (earliest joinedAt)", res.NewHost)
	}
	if room.Host() != "carol" {
		t.Fatalf("stored host = %q, want carol", room.Host())
	}
	if len(res.Members) != 2 {
		t.Fatalf("remaining members = %d, want 2", len(res.Members))
	}
}

func TestHostSuccessorTieBreakByUserID(t *testing.T) {
	t0 := time.Now()
	room := newRoom("r1", t0)
	room.Join("zed", "Zed", "c0", &nopConn{}, t0)
	room.Join("carol", "Carol", "c1", &nopConn{}, t0.Add(time.Second))
	room.Join("bob", "Bob", "c2", &nopConn{}, t0.Add(time.Second))

	res := room.Leave("zed", "c0")
	if res.NewHost != "bob" {
		t.Fatalf("new host = %q, want bob (lexicographic tie-break)", res.NewHost)
	}
}

func TestNonHostDepartureKeepsHost(t *testing.T) {
	t0 := time.Now()
	room := newRoom("r1", t0)
	room.Join("alice", "Alice", "c1", &nopConn{}, t0)
	room.Join("bob", "Bob", "c2", &nopConn{}, t0.Add(time.Second))

	res := room.Leave("bob", "c2")
	if res.HostChanged {
		t.Fatal("non-host departure must not reassign host")
	}
	if room.Host() != "alice" {
		t.Fatalf("host = %q, want alice", room.Host())
	}
}

func TestBroadcastSkipsExcludedConn(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)
	a, b, c := &nopConn{}, &nopConn{}, &nopConn{}
	room.Join("alice", "Alice", "c1", a, now)
	room.Join("bob", "Bob", "c2", b, now)
	room.Join("carol", "Carol", "c3", c, now)

	res := room.Broadcast("c1", Frame(`{"type":"sync_position"}`))
	if res.SentTo != 2 {
		t.Fatalf("sent to %d, want 2", res.SentTo)
	}
	if a.sent != 0 {
		t.Fatal("sender must not receive its own broadcast")
	}
	if b.sent != 1 || c.sent != 1 {
		t.Fatalf("b=%d c=%d, want 1 each", b.sent, c.sent)
	}

	res = room.Broadcast("", Frame(`{"type":"members_update"}`))
	if res.SentTo != 3 {
		t.Fatalf("whole-room broadcast reached %d, want 3", res.SentTo)
	}
}

func TestSetTrack(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)
	room.SetPlayback(33, domain.StatusPlaying, now)

	track := &domain.Track{ID: "t1", Title: "Song", Artist: "Band", URL: "u", Source: "yt"}
	room.SetTrack(track, now)
	st := room.Snapshot(now)
	if st.Track != track || st.Position != 0 || st.Status != domain.StatusPlaying {
		t.Fatalf("after SetTrack: %+v", st)
	}

	room.SetTrack(nil, now)
	st = room.Snapshot(now)
	if st.Track != nil || st.Status != domain.StatusIdle || st.Position != 0 {
		t.Fatalf("after nil SetTrack: %+v", st)
	}
}

func TestRestartKeepsTrackAndStatus(t *testing.T) {
	now := time.Now()
	room := newRoom("r1", now)
	track := &domain.Track{ID: "t1"}
	room.SetTrack(track, now)
	room.SetPlayback(120, domain.StatusPlaying, now)

	room.Restart(now.Add(time.Second))
	st := room.Snapshot(now.Add(time.Second))
	if st.Position != 0 {
		t.Fatalf("position = %v, want 0", st.Position)
	}
	if st.Status != domain.StatusPlaying || st.Track != track {
		t.Fatalf("restart must not touch track or status: %+v", st)
	}
}

func TestMembersSortedByJoinedAt(t *testing.T) {
	t0 := time.Now()
	room := newRoom("r1", t0)
	room.Join("carol", "Carol", "c3", &nopConn{}, t0.Add(2*time.Second))
	room.Join("alice", "Alice", "c1", &nopConn{}, t0)
	room.Join("bob", "Bob", "c2", &nopConn{}, t0.Add(time.Second))

	st := room.Snapshot(t0.Add(3 * time.Second))
	got := []domain.UserID{st.Members[0].UserID, st.Members[1].UserID, st.Members[2].UserID}
	want := []domain.UserID{"alice", "bob", "carol"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member order = %v, want %v", got, want)
		}
	}
}
