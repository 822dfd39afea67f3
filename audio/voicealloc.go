package audio

import (
	"time"

	"go-daw/state"
)

// MaxVoices is the default cap on simultaneous voices per instrument
const MaxVoices = 16

// releaseMargin covers the envelope tail grain after the nominal
// release time before a voice group may be freed
const releaseMargin = 1 * time.Second

// Voice is one live polyphonic voice chain: the server group holding
// its MIDI control node and source node, plus the control bus triple
// wiring them together.
type Voice struct {
	Instrument state.InstrumentID
	Pitch      uint8
	Velocity   float32

	GroupID    int32
	MidiNode   int32
	SourceNode int32

	FreqBus, GateBus, VelBus int

	SpawnTime       time.Time
	Released        bool
	ReleaseDeadline time.Time
}

// VoiceAllocator owns the per-instrument voice pools and the pooled
// control-bus triples. Audio thread only.
type VoiceAllocator struct {
	MaxVoices int

	buses   *BusAllocator
	chains  []*Voice
	busPool [][3]int
	nPools  int
}

// NewVoiceAllocator creates an allocator drawing control buses from the
// given bus allocator
func NewVoiceAllocator(buses *BusAllocator) *VoiceAllocator {
	return &VoiceAllocator{MaxVoices: MaxVoices, buses: buses}
}

// AllocControlBuses returns a (freq, gate, vel) triple, reusing a pooled
// triple when one is free
func (a *VoiceAllocator) AllocControlBuses() (int, int, int) {
	if n := len(a.busPool); n > 0 {
		t := a.busPool[n-1]
		a.busPool = a.busPool[:n-1]
		return t[0], t[1], t[2]
	}
	owner := VoiceBusOwner(a.nPools)
	a.nPools++
	freq := a.buses.GetOrAllocControl(owner, "freq")
	gate := a.buses.GetOrAllocControl(owner, "gate")
	vel := a.buses.GetOrAllocControl(owner, "vel")
	return freq, gate, vel
}

func (a *VoiceAllocator) releaseControlBuses(v *Voice) {
	a.busPool = append(a.busPool, [3]int{v.FreqBus, v.GateBus, v.VelBus})
}

// Add registers a freshly spawned voice
func (a *VoiceAllocator) Add(v *Voice) {
	a.chains = append(a.chains, v)
}

// Chains returns all live voices
func (a *VoiceAllocator) Chains() []*Voice {
	return a.chains
}

// CountFor returns the number of live voices (active and releasing) for
// an instrument
func (a *VoiceAllocator) CountFor(id state.InstrumentID) int {
	n := 0
	for _, v := range a.chains {
		if v.Instrument == id {
			n++
		}
	}
	return n
}

// Steal removes and returns the voices that must die before one more
// voice can spawn for the instrument. Victim order: releasing voices
// oldest-first, then active voices oldest-first.
func (a *VoiceAllocator) Steal(id state.InstrumentID) []*Voice {
	live := a.CountFor(id)
	if live < a.MaxVoices {
		return nil
	}
	need := live - a.MaxVoices + 1

	var victims []*Voice
	pick := func(released bool) {
		for len(victims) < need {
			var oldest *Voice
			for _, v := range a.chains {
				if v.Instrument != id || v.Released != released || contains(victims, v) {
					continue
				}
				if oldest == nil || v.SpawnTime.Before(oldest.SpawnTime) {
					oldest = v
				}
			}
			if oldest == nil {
				return
			}
			victims = append(victims, oldest)
		}
	}
	pick(true)
	pick(false)

	for _, v := range victims {
		a.remove(v)
		a.releaseControlBuses(v)
	}
	return victims
}

// MarkReleased flags the voice for (instrument, pitch) as releasing and
// returns it, or nil when no active voice matches. The voice stays in
// the pool as a steal candidate while its envelope fades.
func (a *VoiceAllocator) MarkReleased(id state.InstrumentID, pitch uint8, releaseSecs float64) *Voice {
	for _, v := range a.chains {
		if v.Instrument == id && v.Pitch == pitch && !v.Released {
			v.Released = true
			v.ReleaseDeadline = time.Now().
				Add(time.Duration(releaseSecs * float64(time.Second))).
				Add(releaseMargin)
			return v
		}
	}
	return nil
}

// CleanupExpired drops voices whose release envelope has fully expired;
// their server groups were already freed by the deferred /n_free.
func (a *VoiceAllocator) CleanupExpired(now time.Time) {
	kept := a.chains[:0]
	for _, v := range a.chains {
		if v.Released && now.After(v.ReleaseDeadline) {
			a.releaseControlBuses(v)
			continue
		}
		kept = append(kept, v)
	}
	a.chains = kept
}

// DrainAll removes and returns every voice; used on stop-all and shutdown
func (a *VoiceAllocator) DrainAll() []*Voice {
	out := a.chains
	a.chains = nil
	for _, v := range out {
		a.releaseControlBuses(v)
	}
	return out
}

// DrainFor removes and returns every voice of one instrument
func (a *VoiceAllocator) DrainFor(id state.InstrumentID) []*Voice {
	var out []*Voice
	kept := a.chains[:0]
	for _, v := range a.chains {
		if v.Instrument == id {
			out = append(out, v)
			a.releaseControlBuses(v)
			continue
		}
		kept = append(kept, v)
	}
	a.chains = kept
	return out
}

func (a *VoiceAllocator) remove(v *Voice) {
	for i, c := range a.chains {
		if c == v {
			a.chains = append(a.chains[:i], a.chains[i+1:]...)
			return
		}
	}
}

func contains(list []*Voice, v *Voice) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}
