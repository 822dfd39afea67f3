package audio

import (
	"testing"
	"time"

	"go-daw/state"
)

func makeVoice(inst state.InstrumentID, pitch uint8, spawn time.Time) *Voice {
	return &Voice{Instrument: inst, Pitch: pitch, SpawnTime: spawn}
}

func TestStealReturnsNilBelowCapacity(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.MaxVoices = 2
	a.Add(makeVoice(1, 60, time.Now()))

	if victims := a.Steal(1); victims != nil {
		t.Errorf("expected no steal below capacity, got %d victims", len(victims))
	}
}

func TestStealTakesOldestActive(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.MaxVoices = 2
	base := time.Now()
	a.Add(makeVoice(1, 60, base))
	a.Add(makeVoice(1, 62, base.Add(time.Millisecond)))

	victims := a.Steal(1)
	if len(victims) != 1 {
		t.Fatalf("expected 1 victim, got %d", len(victims))
	}
	if victims[0].Pitch != 60 {
		t.Errorf("expected oldest voice (pitch 60) stolen, got pitch %d", victims[0].Pitch)
	}
	if a.CountFor(1) != 1 {
		t.Errorf("expected 1 voice left, got %d", a.CountFor(1))
	}
}

func TestStealPrefersReleasingVoices(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.MaxVoices = 2
	base := time.Now()
	a.Add(makeVoice(1, 60, base)) // oldest but still active
	releasing := makeVoice(1, 62, base.Add(time.Millisecond))
	releasing.Released = true
	a.Add(releasing)

	victims := a.Steal(1)
	if len(victims) != 1 || victims[0].Pitch != 62 {
		t.Fatalf("expected releasing voice (pitch 62) stolen first, got %+v", victims)
	}
}

func TestStealIsPerInstrument(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.MaxVoices = 1
	a.Add(makeVoice(1, 60, time.Now()))
	a.Add(makeVoice(2, 64, time.Now()))

	victims := a.Steal(1)
	if len(victims) != 1 || victims[0].Instrument != 1 {
		t.Fatalf("steal crossed instruments: %+v", victims)
	}
	if a.CountFor(2) != 1 {
		t.Error("other instrument's voice was removed")
	}
}

func TestMarkReleasedFindsActiveVoice(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.Add(makeVoice(1, 60, time.Now()))

	v := a.MarkReleased(1, 60, 0.5)
	if v == nil {
		t.Fatal("expected voice marked released")
	}
	if !v.Released {
		t.Error("voice not flagged released")
	}
	if a.MarkReleased(1, 60, 0.5) != nil {
		t.Error("already-released voice matched again")
	}
	if a.MarkReleased(1, 99, 0.5) != nil {
		t.Error("nonexistent pitch matched")
	}
}

func TestCleanupExpiredDropsFadedVoices(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())
	a.Add(makeVoice(1, 60, time.Now()))
	a.MarkReleased(1, 60, 0)

	// Not yet expired: the release margin still applies
	a.CleanupExpired(time.Now())
	if a.CountFor(1) != 1 {
		t.Fatal("voice cleaned up before release margin elapsed")
	}

	a.CleanupExpired(time.Now().Add(releaseMargin + time.Second))
	if a.CountFor(1) != 0 {
		t.Error("expired voice not cleaned up")
	}
}

func TestControlBusTriplesPooled(t *testing.T) {
	a := NewVoiceAllocator(NewBusAllocator())

	f1, g1, v1 := a.AllocControlBuses()
	f2, g2, v2 := a.AllocControlBuses()
	all := map[int]bool{f1: true, g1: true, v1: true}
	for _, b := range []int{f2, g2, v2} {
		if all[b] {
			t.Fatalf("live triples share control bus %d", b)
		}
	}

	// Returning a voice's triple makes it the next allocation
	v := makeVoice(1, 60, time.Now())
	v.FreqBus, v.GateBus, v.VelBus = f2, g2, v2
	a.Add(v)
	a.DrainAll()

	f3, g3, v3 := a.AllocControlBuses()
	if f3 != f2 || g3 != g2 || v3 != v2 {
		t.Errorf("pooled triple not reused: got (%d,%d,%d) want (%d,%d,%d)", f3, g3, v3, f2, g2, v2)
	}
}
