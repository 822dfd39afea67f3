package audio

import (
	"math"
	"sort"

	"go-daw/state"
)

// Server-side bus reservations. Hardware I/O occupies the first audio
// buses, so dynamic audio allocation starts above them. Control buses
// have no reservation.
const (
	audioBusBase   = 16
	controlBusBase = 0
)

// BusOwner keys an allocation. Instrument ids map directly; mixer buses
// and voices use sentinel ranges so all owners share one namespace and
// can never collide however many instruments exist.
type BusOwner int32

// MixerBusOwner returns the sentinel owner for a mixer bus
func MixerBusOwner(busID int) BusOwner {
	return BusOwner(math.MaxInt32 - int32(busID))
}

// VoiceBusOwner returns the sentinel owner for the nth voice-bus triple
func VoiceBusOwner(n int) BusOwner {
	return BusOwner(math.MaxInt32/2 + int32(n))
}

// InstrumentOwner returns the owner for an instrument id
func InstrumentOwner(id state.InstrumentID) BusOwner {
	return BusOwner(id)
}

type busKey struct {
	owner BusOwner
	port  string
}

type busPool struct {
	next    int
	free    []int
	byKey   map[busKey]int
}

func newBusPool(base int) *busPool {
	return &busPool{next: base, byKey: make(map[busKey]int)}
}

func (p *busPool) alloc(key busKey) int {
	if idx, ok := p.byKey[key]; ok {
		return idx
	}
	var idx int
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = p.next
		p.next++
	}
	p.byKey[key] = idx
	return idx
}

func (p *busPool) get(key busKey) (int, bool) {
	idx, ok := p.byKey[key]
	return idx, ok
}

func (p *busPool) freeOwner(owner BusOwner) {
	// Collect keys first; map iteration order is random but the free
	// list must be deterministic for reproducible reallocation.
	var keys []busKey
	for k := range p.byKey {
		if k.owner == owner {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].port < keys[j].port })
	for _, k := range keys {
		p.free = append(p.free, p.byKey[k])
		delete(p.byKey, k)
	}
}

// BusAllocator hands out disjoint bus indices from the audio and control
// regions of the server, with reclamation. Owned exclusively by the
// audio thread.
type BusAllocator struct {
	audio   *busPool
	control *busPool
}

// NewBusAllocator creates an allocator with server-default reservations
func NewBusAllocator() *BusAllocator {
	return &BusAllocator{
		audio:   newBusPool(audioBusBase),
		control: newBusPool(controlBusBase),
	}
}

// GetOrAllocAudio returns the audio bus for (owner, port), allocating on
// first use. Idempotent for the same key.
func (a *BusAllocator) GetOrAllocAudio(owner BusOwner, port string) int {
	return a.audio.alloc(busKey{owner, port})
}

// GetOrAllocControl returns the control bus for (owner, port)
func (a *BusAllocator) GetOrAllocControl(owner BusOwner, port string) int {
	return a.control.alloc(busKey{owner, port})
}

// GetAudio looks up an existing audio bus without allocating
func (a *BusAllocator) GetAudio(owner BusOwner, port string) (int, bool) {
	return a.audio.get(busKey{owner, port})
}

// GetControl looks up an existing control bus without allocating
func (a *BusAllocator) GetControl(owner BusOwner, port string) (int, bool) {
	return a.control.get(busKey{owner, port})
}

// Free returns every index held by the owner, in both regions, to the
// free lists (LIFO: the most recently freed index is reused first)
func (a *BusAllocator) Free(owner BusOwner) {
	a.audio.freeOwner(owner)
	a.control.freeOwner(owner)
}

// Reset re-initializes both regions; used on server restart so a fresh
// graph reproduces the same assignments
func (a *BusAllocator) Reset() {
	a.audio = newBusPool(audioBusBase)
	a.control = newBusPool(controlBusBase)
}
