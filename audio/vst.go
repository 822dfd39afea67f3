package audio

import (
	"fmt"

	"github.com/pkg/errors"

	"go-daw/state"
)

// vstUgenIndex is the VSTPlugin UGen position inside the wrapper
// synthdefs; it is the first and only UGen there
const vstUgenIndex int32 = 0

func (e *Engine) vstNode(id state.InstrumentID, target VstTarget) (int32, bool) {
	nodes, ok := e.nodes[id]
	if !ok {
		return 0, false
	}
	if target.Source {
		if nodes.Source == 0 {
			return 0, false
		}
		return nodes.Source, true
	}
	return nodes.EffectNode(target.Effect)
}

func (e *Engine) sendUnitCmd(nodeID int32, cmd string, args ...interface{}) error {
	full := append([]interface{}{nodeID, vstUgenIndex, cmd}, args...)
	return e.conn.SendMessage("/u_cmd", full...)
}

func (e *Engine) sendVstiNoteOn(id state.InstrumentID, pitch uint8, velocity float32) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok || nodes.Source == 0 {
		return errors.Errorf("no VST source node for instrument %d", id)
	}
	vel := byte(velocity * 127)
	return e.sendUnitCmd(nodes.Source, "/midi_msg", []byte{0x90, pitch, vel})
}

func (e *Engine) sendVstiNoteOff(id state.InstrumentID, pitch uint8) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok || nodes.Source == 0 {
		return errors.Errorf("no VST source node for instrument %d", id)
	}
	return e.sendUnitCmd(nodes.Source, "/midi_msg", []byte{0x80, pitch, 0})
}

// SetVstParam writes one plugin parameter by index
func (e *Engine) SetVstParam(id state.InstrumentID, target VstTarget, index int32, value float32) error {
	if !e.Connected() {
		return nil
	}
	node, ok := e.vstNode(id, target)
	if !ok {
		return errors.Errorf("no VST node for instrument %d", id)
	}
	return e.sendUnitCmd(node, "/set", index, value)
}

// QueryVstParams asks the plugin for its parameter count and returns a
// synthetic placeholder list. The server does not reply to param
// queries over OSC, so discovery is synthesized at a fixed size and the
// names refine as /vst_param replies trickle in.
func (e *Engine) QueryVstParams(id state.InstrumentID, target VstTarget) ([]VstParam, error) {
	if node, ok := e.vstNode(id, target); ok && e.Connected() {
		if err := e.sendUnitCmd(node, "/param_query", int32(0), int32(128)); err != nil {
			return nil, err
		}
	}
	params := make([]VstParam, 128)
	for i := range params {
		params[i] = VstParam{
			Index:   int32(i),
			Name:    fmt.Sprintf("Param %d", i),
			Default: 0.5,
		}
	}
	return params, nil
}
