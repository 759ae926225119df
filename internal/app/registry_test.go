package app

import "testing"

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("c1"); ok {
		t.Fatal("unknown connection must not resolve")
	}

	r.Bind("c1")
	sess, ok := r.Lookup("c1")
	if !ok || sess.UserID != "" || sess.RoomID != "" {
		t.Fatalf("fresh binding = %+v, want empty session", sess)
	}

	r.BindRoom("c1", "alice", "r1")
	sess, _ = r.Lookup("c1")
	if sess.UserID != "alice" || sess.RoomID != "r1" {
		t.Fatalf("bound session = %+v", sess)
	}

	r.ClearRoom("c1")
	sess, ok = r.Lookup("c1")
	if !ok || sess.UserID != "alice" || sess.RoomID != "" {
		t.Fatalf("after ClearRoom = %+v, want user kept and room cleared", sess)
	}

	r.Unbind("c1")
	if _, ok := r.Lookup("c1"); ok {
		t.Fatal("unbound connection must not resolve")
	}
	if r.Len() != 0 {
		t.Fatalf("registry holds %d sessions, want 0", r.Len())
	}
}

func TestBindRoomWithoutBind(t *testing.T) {
	r := NewRegistry()
	// A join racing ahead of connect bookkeeping still lands.
	r.BindRoom("c1", "alice", "r1")
	sess, ok := r.Lookup("c1")
	if !ok || sess.RoomID != "r1" {
		t.Fatalf("session = %+v", sess)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Bind("c1")
	r.BindRoom("c1", "alice", "r1")

	sess, _ := r.Lookup("c1")
	sess.RoomID = "tampered"

	fresh, _ := r.Lookup("c1")
	if fresh.RoomID != "r1" {
		t.Fatal("Lookup must hand out copies, not shared state")
	}
}
