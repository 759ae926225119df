package core

import (
	"time"

	"github.com/aaditya8979/syncy-v3/internal/domain"
)

// Playhead extrapolates a stored playback position to now. While playing,
// the position advances by the wall-clock time elapsed since lastSync;
// paused and idle rooms report the stored position unchanged. Elapsed time
// is clamped at zero so a lastSync slightly ahead of now cannot rewind the
// playhead. There is no upper clamp: overrun past the track end is the
// client's concern.
func Playhead(position float64, status domain.PlaybackStatus, lastSync, now time.Time) float64 {
	if status != domain.StatusPlaying {
		return position
	}
	elapsed := now.Sub(lastSync).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return position + elapsed
}
