package audio

import (
	"math/rand"
	"testing"
	"time"

	"go-daw/state"
)

func playingPlayer(bpm float64) *Player {
	p := NewPlayer()
	p.Playing = true
	p.Bpm = bpm
	return p
}

// noteSpawnCount counts spawn bundles whose MIDI control node carries
// the given pitch
func noteSpawnCount(rec *recorder, pitch uint8) int {
	n := 0
	for _, m := range rec.byAddr("/s_new") {
		if m.Args[0] != "godaw_midi" {
			continue
		}
		if v, ok := m.paramValue("note"); ok && v == float32(pitch) {
			n++
		}
	}
	return n
}

func TestZeroElapsedYieldsZeroTicks(t *testing.T) {
	e, _ := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot()
	seq := state.Sequencer{}

	if p.Advance(0, &snap, &seq, nil, e) {
		t.Error("zero elapsed advanced the playhead")
	}
	if p.Playhead != 0 {
		t.Errorf("playhead = %d, want 0", p.Playhead)
	}
}

func TestDriftFreeOverTenSeconds(t *testing.T) {
	// S1: BPM=120, TPB=480, no loop. 10 s of 1 ms steps must land
	// within one tick of 9600.
	e, _ := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot()
	seq := state.Sequencer{}

	for i := 0; i < 10000; i++ {
		p.Advance(time.Millisecond, &snap, &seq, nil, e)
	}

	if p.Playhead < 9599 || p.Playhead > 9601 {
		t.Errorf("playhead after 10s = %d, want 9600±1", p.Playhead)
	}
}

func TestAccumulatorDriftUnderJitter(t *testing.T) {
	// S5: 1000 iterations with elapsed drawn from uniform(0.9ms, 1.1ms).
	// Total produced ticks must stay within one tick of the ideal.
	e, _ := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot()
	seq := state.Sequencer{}
	rng := rand.New(rand.NewSource(42))

	var total float64
	for i := 0; i < 1000; i++ {
		secs := 0.0009 + rng.Float64()*0.0002
		total += secs
		p.Advance(time.Duration(secs*float64(time.Second)), &snap, &seq, nil, e)
	}

	ideal := total * TicksPerSecond(120)
	diff := float64(p.Playhead) - ideal
	if diff < -1 || diff > 1 {
		t.Errorf("playhead %d drifted %.3f ticks from ideal %.3f", p.Playhead, diff, ideal)
	}
}

func TestLoopWrapSchedulesEachNoteOncePerPass(t *testing.T) {
	// S2: BPM=120, loop [0, 960). Notes at 0, 479, 959. Three seconds
	// is three passes; every note fires exactly three times, including
	// the loopEnd-1 boundary note and the loopStart note on wrap.
	e, rec := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot(state.NewInstrument(1, state.SourceSaw))
	seq := state.Sequencer{
		LoopEnabled: true,
		LoopEnd:     960,
		Sequences: []state.Sequence{{
			InstrumentID: 1,
			Notes: []state.Note{
				{Start: 0, Duration: 100, Pitch: 60, Velocity: 100},
				{Start: 479, Duration: 100, Pitch: 64, Velocity: 100},
				{Start: 959, Duration: 1, Pitch: 67, Velocity: 100},
			},
		}},
	}

	// One extra step absorbs the sub-tick remainder at the third wrap
	for i := 0; i < 3001; i++ {
		p.Advance(time.Millisecond, &snap, &seq, nil, e)
	}

	for _, pitch := range []uint8{60, 64, 67} {
		if got := noteSpawnCount(rec, pitch); got != 3 {
			t.Errorf("note %d scheduled %d times, want 3", pitch, got)
		}
	}
}

func TestLoopWrapPlayheadStaysInLoop(t *testing.T) {
	e, _ := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot()
	seq := state.Sequencer{LoopEnabled: true, LoopStart: 480, LoopEnd: 960}
	p.Playhead = 480

	for i := 0; i < 2000; i++ {
		p.Advance(time.Millisecond, &snap, &seq, nil, e)
	}
	if p.Playhead < 480 || p.Playhead >= 960 {
		t.Errorf("playhead %d escaped loop [480, 960)", p.Playhead)
	}
}

func TestNoteOffFiresAfterDuration(t *testing.T) {
	e, rec := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot(state.NewInstrument(1, state.SourceSaw))
	seq := state.Sequencer{
		Sequences: []state.Sequence{{
			InstrumentID: 1,
			Notes:        []state.Note{{Start: 0, Duration: 48, Pitch: 60, Velocity: 100}},
		}},
	}

	// 48 ticks at 960 ticks/s is 50 ms
	for i := 0; i < 100; i++ {
		p.Advance(time.Millisecond, &snap, &seq, nil, e)
	}

	gateDown := 0
	for _, m := range rec.byAddr("/n_set") {
		if v, ok := m.paramValue("gate"); ok && v == 0 {
			gateDown++
		}
	}
	if gateDown != 1 {
		t.Errorf("expected exactly one gate-down, got %d", gateDown)
	}
	if p.ActiveNotes() != 0 {
		t.Errorf("%d active notes remain after their duration", p.ActiveNotes())
	}
}

func TestReleaseAfterInstrumentDeletedDoesNotCrash(t *testing.T) {
	e, _ := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot(state.NewInstrument(1, state.SourceSaw))
	seq := state.Sequencer{
		Sequences: []state.Sequence{{
			InstrumentID: 1,
			Notes:        []state.Note{{Start: 0, Duration: 48, Pitch: 60, Velocity: 100}},
		}},
	}

	p.Advance(2*time.Millisecond, &snap, &seq, nil, e)

	// Instrument vanishes mid-note; the pending note-off must not crash
	deleted := state.NewSnapshot()
	for i := 0; i < 100; i++ {
		p.Advance(time.Millisecond, &deleted, &seq, nil, e)
	}
	if p.ActiveNotes() != 0 {
		t.Error("active note survived its duration")
	}
}

func TestSequenceForUnknownInstrumentSkipped(t *testing.T) {
	e, rec := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot() // no instruments
	seq := state.Sequencer{
		Sequences: []state.Sequence{{
			InstrumentID: 9,
			Notes:        []state.Note{{Start: 0, Duration: 48, Pitch: 60, Velocity: 100}},
		}},
	}

	for i := 0; i < 10; i++ {
		p.Advance(time.Millisecond, &snap, &seq, nil, e)
	}
	if len(rec.msgs) != 0 {
		t.Errorf("sequence without instrument produced %d messages", len(rec.msgs))
	}
}

func TestProbabilityZeroAlwaysFires(t *testing.T) {
	e, rec := newTestEngine()
	p := playingPlayer(120)
	snap := testSnapshot(state.NewInstrument(1, state.SourceSaw))
	seq := state.Sequencer{
		Sequences: []state.Sequence{{
			InstrumentID: 1,
			Notes:        []state.Note{{Start: 0, Duration: 10, Pitch: 60, Velocity: 100}},
		}},
	}

	p.Advance(2*time.Millisecond, &snap, &seq, nil, e)
	if got := noteSpawnCount(rec, 60); got != 1 {
		t.Errorf("unset probability suppressed the note (%d spawns)", got)
	}
}

func TestAutomationAppliedAtPlayhead(t *testing.T) {
	e, rec := newTestEngine()
	inst := state.NewInstrument(1, state.SourceSaw)
	inst.Filter = &state.Filter{Kind: state.FilterLpf, Cutoff: 1000, Resonance: 0.5}
	snap := testSnapshot(inst)
	if err := e.RebuildInstrument(&snap, 1); err != nil {
		t.Fatal(err)
	}
	rec.clear()

	lanes := []state.Lane{{
		Enabled: true,
		Target:  state.Target{Kind: state.TargetFilterCutoff, Instrument: 1},
		Points: []state.Point{
			{Tick: 0, Value: 100, Curve: state.CurveLinear},
			{Tick: 960, Value: 1060, Curve: state.CurveLinear},
		},
	}}

	p := playingPlayer(120)
	seq := state.Sequencer{}
	for i := 0; i < 100; i++ {
		p.Advance(time.Millisecond, &snap, &seq, lanes, e)
	}

	sets := rec.byAddr("/n_set")
	if len(sets) == 0 {
		t.Fatal("no automation /n_set emitted")
	}
	last := sets[len(sets)-1]
	v, ok := last.paramValue("cutoff")
	if !ok {
		t.Fatal("automation /n_set missing cutoff param")
	}
	want := 100 + float32(p.Playhead) // 1 per tick along the line
	if v < want-2 || v > want+2 {
		t.Errorf("cutoff at tick %d = %v, want ~%v", p.Playhead, v, want)
	}
}
