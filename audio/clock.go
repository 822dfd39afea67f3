package audio

import (
	"math"
	"sync"
	"time"

	"github.com/chabad360/go-osc/osc"

	"go-daw/state"
)

// Seconds between the NTP epoch (1900) and the Unix epoch (1970)
const ntpUnixOffset = 2208988800

// TimetagImmediate tells the server to act as soon as the packet arrives
const TimetagImmediate osc.Timetag = 1

// The clock anchor is captured once at first use: a monotonic reference
// plus the wall-clock seconds at that moment. Every timetag derives from
// the monotonic elapsed time since the anchor, so NTP adjustments, DST,
// or manual clock changes mid-session cannot glitch playback timing.
var (
	anchorOnce sync.Once
	anchorMono time.Time
	anchorWall float64
)

func clockAnchor() (time.Time, float64) {
	anchorOnce.Do(func() {
		anchorMono = time.Now()
		anchorWall = float64(anchorMono.UnixNano()) / 1e9
	})
	return anchorMono, anchorWall
}

// TimeFromNow returns the absolute NTP timetag for "now + offset seconds"
func TimeFromNow(offsetSecs float64) osc.Timetag {
	mono, wall := clockAnchor()
	total := wall + time.Since(mono).Seconds() + offsetSecs
	secs := uint64(total) + ntpUnixOffset
	frac := uint64((total - math.Floor(total)) * float64(math.MaxUint32))
	return osc.Timetag(secs<<32 | frac)
}

// TicksPerSecond converts a tempo to scheduler ticks per second
func TicksPerSecond(bpm float64) float64 {
	return bpm / 60.0 * state.TicksPerBeat
}

// SecsPerTick is the wall-clock duration of one tick at the given tempo
func SecsPerTick(bpm float64) float64 {
	return 1.0 / TicksPerSecond(bpm)
}
