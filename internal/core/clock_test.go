package core

import (
	"testing"
	"time"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

func TestPlayhead(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		position float64
		status   domain.PlaybackStatus
		elapsed  time.Duration
		want     float64
	}{
		{"playing advances", 10.0, domain.StatusPlaying, 5 * time.Second, 15.0},
		{"playing sub-second", 1.5, domain.StatusPlaying, 250 * time.Millisecond, 1.75},
		{"playing zero elapsed", 42.5, domain.StatusPlaying, 0, 42.5},
		{"paused frozen", 10.0, domain.StatusPaused, time.Hour, 10.0},
		{"idle frozen", 0, domain.StatusIdle, time.Hour, 0},
		{"clock behind lastSync clamps", 7.0, domain.StatusPlaying, -3 * time.Second, 7.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Playhead(tc.position, tc.status, base, base.Add(tc.elapsed))
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("Playhead = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlayheadIsPure(t *testing.T) {
	base := time.Now()
	room := newRoom("r1", base)
	room.SetPlayback(10, domain.StatusPlaying, base)

	for i := 0; i < 3; i++ {
		st := room.Snapshot(base.Add(4 * time.Second))
		if st.Position != 14 {
			t.Fatalf("snapshot %d: position = %v, want 14", i, st.Position)
		}
	}
	// Reading must not have advanced the stored position.
	st := room.Snapshot(base)
	if st.Position != 10 {
		t.Fatalf("stored position drifted to %v", st.Position)
	}
}
