package audio

import (
	"time"

	"go-daw/debug"
	"go-daw/state"
)

type activeNote struct {
	instrument state.InstrumentID
	pitch      uint8
	remaining  int // ticks until note-off, relative to the pre-advance playhead
}

// Player converts elapsed wall-clock time into musical ticks and drives
// note scheduling. The fractional accumulator preserves sub-tick
// remainders, so total ticks over a session track elapsed time with no
// cumulative drift beyond f64 precision.
type Player struct {
	Playing  bool
	Playhead int
	Bpm      float64

	acc    float64
	active []activeNote
	rng    uint64
}

// NewPlayer creates a stopped player at tick 0
func NewPlayer() *Player {
	return &Player{Bpm: 120, rng: 12345}
}

// SeekTo moves the playhead and clears pending note-offs
func (p *Player) SeekTo(tick int) {
	p.Playhead = tick
	p.acc = 0
	p.active = nil
}

// ActiveNotes returns how many scheduled notes await their note-off
func (p *Player) ActiveNotes() int {
	return len(p.active)
}

// scanRange is one contiguous tick span to scan for note starts. base is
// the tick distance from the pre-advance playhead to the range start, so
// offsets stay correct across a loop wrap.
type scanRange struct {
	start, end int
	base       int
}

// Advance moves the playhead by the elapsed wall time, schedules every
// note whose start falls in the scanned span, and applies automation at
// the new position. Returns true when the playhead moved.
//
// On a loop wrap the span splits in two: [old, loopEnd) then
// [loopStart, wrapped). Both note scanning and automation honor the
// split, so a note at loopEnd-1 fires exactly once per pass and a note
// at loopStart fires immediately after the wrap.
func (p *Player) Advance(elapsed time.Duration, snap *state.Snapshot, seq *state.Sequencer, lanes []state.Lane, e *Engine) bool {
	if !p.Playing || p.Bpm <= 0 {
		return false
	}

	p.acc += elapsed.Seconds() * TicksPerSecond(p.Bpm)
	dt := int(p.acc)
	if dt <= 0 {
		return false
	}
	p.acc -= float64(dt)

	old := p.Playhead
	newTick := old + dt

	var ranges []scanRange
	base := 0
	start := old
	for seq.LoopEnabled && seq.LoopEnd > seq.LoopStart && newTick >= seq.LoopEnd {
		ranges = append(ranges, scanRange{start, seq.LoopEnd, base})
		base += seq.LoopEnd - start
		newTick = seq.LoopStart + (newTick - seq.LoopEnd)
		start = seq.LoopStart
	}
	ranges = append(ranges, scanRange{start, newTick, base})
	p.Playhead = newTick

	secsPerTick := SecsPerTick(p.Bpm)

	for si := range seq.Sequences {
		sq := &seq.Sequences[si]
		if snap.Instruments.Get(sq.InstrumentID) == nil {
			continue
		}
		for _, note := range sq.Notes {
			for _, r := range ranges {
				if note.Start >= r.start && note.Start < r.end {
					p.scheduleNote(sq, note, r, secsPerTick, snap, e)
				}
			}
		}
	}

	// Count down pending note-offs and release the ones that expire in
	// this span. Notes scheduled above are counted down too: their
	// remaining already includes the schedule-ahead offset.
	var offs []activeNote
	kept := p.active[:0]
	for _, n := range p.active {
		if n.remaining <= dt {
			offs = append(offs, n)
			continue
		}
		n.remaining -= dt
		kept = append(kept, n)
	}
	p.active = kept
	for _, n := range offs {
		if err := e.ReleaseVoice(snap, n.instrument, n.pitch, float64(n.remaining)*secsPerTick); err != nil {
			debug.Log("playback", "release %d/%d: %v", n.instrument, n.pitch, err)
		}
	}

	for i := range lanes {
		lane := &lanes[i]
		if !lane.Enabled {
			continue
		}
		if v, ok := lane.ValueAt(p.Playhead); ok {
			if err := e.ApplyAutomation(snap, lane.Target, v); err != nil {
				debug.Log("playback", "automation %s: %v", lane.Target.Kind, err)
			}
		}
	}

	return true
}

func (p *Player) scheduleNote(sq *state.Sequence, note state.Note, r scanRange, secsPerTick float64, snap *state.Snapshot, e *Engine) {
	// Probability gate (zero means always fire)
	if sq.Probability > 0 && p.randFloat() > sq.Probability {
		return
	}

	offsetTicks := r.base + (note.Start - r.start)
	offsetSecs := float64(offsetTicks) * secsPerTick

	// Swing delays off-beat eighths by up to a sixteenth
	if sq.Swing > 0 && (note.Start/(state.TicksPerBeat/2))%2 == 1 {
		offsetSecs += sq.Swing * float64(state.TicksPerBeat) / 4 * secsPerTick
	}
	// Humanize jitters timing by up to ±10 ms
	if sq.Humanize > 0 {
		offsetSecs += (p.randFloat()*2 - 1) * sq.Humanize * 0.01
	}
	if offsetSecs < 0 {
		offsetSecs = 0
	}

	velocity := float32(note.Velocity) / 127
	if err := e.SpawnVoice(snap, sq.InstrumentID, note.Pitch, velocity, offsetSecs); err != nil {
		debug.Log("playback", "spawn %d/%d: %v", sq.InstrumentID, note.Pitch, err)
		return
	}
	p.active = append(p.active, activeNote{
		instrument: sq.InstrumentID,
		pitch:      note.Pitch,
		remaining:  offsetTicks + note.Duration,
	})
}

// randFloat is a small LCG in [0,1): deterministic per player, cheap
// enough for the tick loop
func (p *Player) randFloat() float64 {
	p.rng = p.rng*6364136223846793005 + 1442695040888963407
	return float64(p.rng>>11) / float64(uint64(1)<<53)
}
