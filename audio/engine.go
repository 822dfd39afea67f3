package audio

import (
	"os/exec"
	"time"

	"github.com/chabad360/go-osc/osc"

	"go-daw/state"
)

// SuperCollider group ids for execution ordering. Children of a lower
// group always run before children of a higher one.
const (
	GroupSources    int32 = 100
	GroupProcessing int32 = 200
	GroupOutput     int32 = 300
	GroupRecord     int32 = 400
	GroupLimiter    int32 = 999
)

// ServerStatus tracks the scsynth process and connection lifecycle
type ServerStatus int

const (
	StatusStopped ServerStatus = iota
	StatusStarting
	StatusRunning
	StatusConnected
	StatusUnresponsive
	StatusError
)

func (s ServerStatus) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusConnected:
		return "connected"
	case StatusUnresponsive:
		return "unresponsive"
	case StatusError:
		return "error"
	}
	return "stopped"
}

// StripNodes holds the live server node ids for one instrument's signal
// chain, by named slot. Effects contains only the enabled slots, in
// declarative order; EffectIDs is the parallel list of their stable ids
// so automation resolves slots by identity, never by chain position.
type StripNodes struct {
	Source  int32 // 0 when the source spawns per-voice
	Lfo     int32
	Filter  int32
	Effects []int32
	EffectIDs []state.EffectID
	Output  int32
}

// EffectNode resolves an effect slot's node by stable id
func (s *StripNodes) EffectNode(id state.EffectID) (int32, bool) {
	for i, eid := range s.EffectIDs {
		if eid == id {
			return s.Effects[i], true
		}
	}
	return 0, false
}

func (s *StripNodes) allNodeIDs() []int32 {
	var ids []int32
	if s.Source != 0 {
		ids = append(ids, s.Source)
	}
	if s.Lfo != 0 {
		ids = append(ids, s.Lfo)
	}
	if s.Filter != 0 {
		ids = append(ids, s.Filter)
	}
	ids = append(ids, s.Effects...)
	ids = append(ids, s.Output)
	return ids
}

type sendKey struct {
	instrument state.InstrumentID
	bus        int
}

// Engine mirrors the declarative instrument model into a node graph on
// the DSP server and owns every live server identity: node maps, bus
// allocations, voice pools. It runs entirely on the audio thread.
type Engine struct {
	conn    Conn
	monitor *Monitor
	status  ServerStatus

	process *exec.Cmd // scsynth, when we launched it

	buses  *BusAllocator
	voices *VoiceAllocator

	nextNodeID int32

	nodes     map[state.InstrumentID]*StripNodes
	sendNodes map[sendKey]int32
	busNodes  map[int]int32 // mixer bus id -> output node

	groupsCreated bool
	limiterNode   int32
	meterNode     int32
	analysisNodes []int32

	buffers    map[state.BufferID]int32
	nextBufnum int32

	recording *recording

	synthdefDir string

	lastStatusSent time.Time
	statusMisses   int
}

// NewEngine creates a disconnected engine
func NewEngine(monitor *Monitor) *Engine {
	buses := NewBusAllocator()
	return &Engine{
		monitor:    monitor,
		buses:      buses,
		voices:     NewVoiceAllocator(buses),
		nextNodeID: 1000,
		nodes:      make(map[state.InstrumentID]*StripNodes),
		sendNodes:  make(map[sendKey]int32),
		busNodes:   make(map[int]int32),
		buffers:    make(map[state.BufferID]int32),
		nextBufnum: 0,
	}
}

// Status returns the server lifecycle state
func (e *Engine) Status() ServerStatus {
	return e.status
}

// Connected reports whether OSC traffic can flow
func (e *Engine) Connected() bool {
	return e.conn != nil
}

// ServerRunning reports whether we own a live scsynth process
func (e *Engine) ServerRunning() bool {
	return e.process != nil
}

// Nodes returns the strip node set for an instrument, or nil
func (e *Engine) Nodes(id state.InstrumentID) *StripNodes {
	return e.nodes[id]
}

// Voices exposes the voice allocator (for tests and the scheduler)
func (e *Engine) Voices() *VoiceAllocator {
	return e.voices
}

// Buses exposes the bus allocator
func (e *Engine) Buses() *BusAllocator {
	return e.buses
}

func (e *Engine) nextNode() int32 {
	id := e.nextNodeID
	e.nextNodeID++
	return id
}

// PollReply returns the next decoded server reply, nil-safe when no
// transport is open
func (e *Engine) PollReply(timeout time.Duration) (*osc.Message, bool) {
	if e.conn == nil {
		return nil, false
	}
	return e.conn.PollReply(timeout)
}
