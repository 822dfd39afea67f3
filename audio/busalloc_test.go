package audio

import (
	"testing"

	"go-daw/state"
)

func TestGetOrAllocAudioIdempotent(t *testing.T) {
	a := NewBusAllocator()
	owner := InstrumentOwner(state.InstrumentID(1))

	first := a.GetOrAllocAudio(owner, "source_out")
	second := a.GetOrAllocAudio(owner, "source_out")
	if first != second {
		t.Errorf("GetOrAllocAudio not idempotent: %d then %d", first, second)
	}
	if first < audioBusBase {
		t.Errorf("audio bus %d below reserved base %d", first, audioBusBase)
	}
}

func TestNoTwoOwnersShareABus(t *testing.T) {
	a := NewBusAllocator()
	seen := map[int]BusOwner{}

	for id := 1; id <= 8; id++ {
		owner := InstrumentOwner(state.InstrumentID(id))
		for _, port := range []string{"source_out", "filter_out", "fx_out_1"} {
			idx := a.GetOrAllocAudio(owner, port)
			if prev, ok := seen[idx]; ok {
				t.Fatalf("bus %d held by both owner %d and owner %d", idx, prev, owner)
			}
			seen[idx] = owner
		}
	}

	// Control region is independent: indices may numerically overlap
	// the audio region but must be disjoint among control owners
	ctl := map[int]BusOwner{}
	for id := 1; id <= 8; id++ {
		owner := InstrumentOwner(state.InstrumentID(id))
		idx := a.GetOrAllocControl(owner, "lfo_out")
		if prev, ok := ctl[idx]; ok {
			t.Fatalf("control bus %d held by both owner %d and owner %d", idx, prev, owner)
		}
		ctl[idx] = owner
	}
}

func TestMixerSentinelOwnersShareNamespace(t *testing.T) {
	a := NewBusAllocator()

	// Instrument and mixer-bus allocations interleave; sentinel owners
	// must never collide with instrument owners regardless of count
	instBus := a.GetOrAllocAudio(InstrumentOwner(1), "source_out")
	mixBus := a.GetOrAllocAudio(MixerBusOwner(1), "bus")
	if instBus == mixBus {
		t.Errorf("instrument and mixer bus share index %d", instBus)
	}
	if MixerBusOwner(1) == InstrumentOwner(1) {
		t.Error("sentinel owner collides with instrument owner")
	}

	again := a.GetOrAllocAudio(MixerBusOwner(1), "bus")
	if again != mixBus {
		t.Errorf("mixer bus allocation not idempotent: %d then %d", mixBus, again)
	}
}

func TestFreeThenAllocReusesIndexLIFO(t *testing.T) {
	a := NewBusAllocator()
	owner := InstrumentOwner(1)

	idx := a.GetOrAllocAudio(owner, "source_out")
	a.Free(owner)
	reused := a.GetOrAllocAudio(InstrumentOwner(2), "source_out")
	if reused != idx {
		t.Errorf("freed index %d not reused, got %d", idx, reused)
	}

	// Free returns all of an owner's ports, most recent first
	o3 := InstrumentOwner(3)
	b1 := a.GetOrAllocAudio(o3, "a")
	b2 := a.GetOrAllocAudio(o3, "b")
	a.Free(o3)
	got := a.GetOrAllocAudio(InstrumentOwner(4), "x")
	if got != b1 && got != b2 {
		t.Errorf("expected a reused index from {%d,%d}, got %d", b1, b2, got)
	}
}

func TestFreeReclaimsBothRegions(t *testing.T) {
	a := NewBusAllocator()
	owner := InstrumentOwner(1)
	audio := a.GetOrAllocAudio(owner, "source_out")
	control := a.GetOrAllocControl(owner, "lfo_out")

	a.Free(owner)

	if _, ok := a.GetAudio(owner, "source_out"); ok {
		t.Error("audio bus still assigned after Free")
	}
	if _, ok := a.GetControl(owner, "lfo_out"); ok {
		t.Error("control bus still assigned after Free")
	}

	if got := a.GetOrAllocAudio(InstrumentOwner(2), "p"); got != audio {
		t.Errorf("audio index %d not reused, got %d", audio, got)
	}
	if got := a.GetOrAllocControl(InstrumentOwner(2), "p"); got != control {
		t.Errorf("control index %d not reused, got %d", control, got)
	}
}

func TestResetRestartsFromBases(t *testing.T) {
	a := NewBusAllocator()
	for id := 1; id <= 4; id++ {
		a.GetOrAllocAudio(InstrumentOwner(state.InstrumentID(id)), "source_out")
	}
	a.Reset()
	if got := a.GetOrAllocAudio(InstrumentOwner(1), "source_out"); got != audioBusBase {
		t.Errorf("after reset expected base %d, got %d", audioBusBase, got)
	}
	if got := a.GetOrAllocControl(InstrumentOwner(1), "lfo_out"); got != controlBusBase {
		t.Errorf("after reset expected base %d, got %d", controlBusBase, got)
	}
}
