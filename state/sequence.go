package state

// TicksPerBeat is the musical time resolution: 480 ticks per quarter note
const TicksPerBeat = 480

// Note is one piano-roll note, in integer ticks
type Note struct {
	Start    int   `json:"start"`
	Duration int   `json:"duration"`
	Pitch    uint8 `json:"pitch"`
	Velocity uint8 `json:"velocity"`
}

// End returns the first tick after the note
func (n Note) End() int {
	return n.Start + n.Duration
}

// Sequence is the per-instrument piano roll
type Sequence struct {
	InstrumentID InstrumentID `json:"instrumentId"`
	Notes        []Note       `json:"notes"`

	// Feel controls, applied at schedule time
	Swing       float64 `json:"swing,omitempty"`       // 0..1, delays off-beat 8ths
	Humanize    float64 `json:"humanize,omitempty"`    // 0..1, random timing spread
	Probability float64 `json:"probability,omitempty"` // 0..1, chance a note fires (0 = always)
}

// Sequencer is the shared playback data: all sequences plus the loop region
type Sequencer struct {
	Sequences []Sequence `json:"sequences"`

	LoopEnabled bool `json:"loopEnabled"`
	LoopStart   int  `json:"loopStart"`
	LoopEnd     int  `json:"loopEnd"`
}

// Sequence returns the sequence for an instrument, or nil
func (s *Sequencer) Sequence(id InstrumentID) *Sequence {
	for i := range s.Sequences {
		if s.Sequences[i].InstrumentID == id {
			return &s.Sequences[i]
		}
	}
	return nil
}
