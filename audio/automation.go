package audio

import (
	"go-daw/state"
)

// ApplyAutomation writes an interpolated lane value to the live node it
// targets. Targets resolve through the strip's named slots, so a lane
// aimed at an effect keeps hitting that effect however many disabled
// slots precede it. Lanes whose target has no live node are skipped.
func (e *Engine) ApplyAutomation(snap *state.Snapshot, target state.Target, value float32) error {
	if !e.Connected() {
		return nil
	}
	tt := TimeFromNow(0)

	switch target.Kind {
	case state.TargetInstrumentLevel:
		if nodes, ok := e.nodes[target.Instrument]; ok {
			return e.conn.SetParamsBundled(nodes.Output, tt,
				ParamValue{"level", value * snap.Session.MasterLevel})
		}

	case state.TargetInstrumentPan:
		if nodes, ok := e.nodes[target.Instrument]; ok {
			return e.conn.SetParamsBundled(nodes.Output, tt, ParamValue{"pan", value})
		}

	case state.TargetFilterCutoff:
		if nodes, ok := e.nodes[target.Instrument]; ok && nodes.Filter != 0 {
			return e.conn.SetParamsBundled(nodes.Filter, tt, ParamValue{"cutoff", value})
		}

	case state.TargetFilterResonance:
		if nodes, ok := e.nodes[target.Instrument]; ok && nodes.Filter != 0 {
			return e.conn.SetParamsBundled(nodes.Filter, tt, ParamValue{"resonance", value})
		}

	case state.TargetEffectParam:
		if nodes, ok := e.nodes[target.Instrument]; ok {
			if node, live := nodes.EffectNode(target.Effect); live {
				return e.conn.SetParamsBundled(node, tt, ParamValue{target.Param, value})
			}
		}

	case state.TargetLfoRate:
		if nodes, ok := e.nodes[target.Instrument]; ok && nodes.Lfo != 0 {
			return e.conn.SetParamsBundled(nodes.Lfo, tt, ParamValue{"rate", value})
		}

	case state.TargetLfoDepth:
		if nodes, ok := e.nodes[target.Instrument]; ok && nodes.Lfo != 0 {
			return e.conn.SetParamsBundled(nodes.Lfo, tt, ParamValue{"depth", value})
		}

	case state.TargetSendLevel:
		if node, ok := e.sendNodes[sendKey{target.Instrument, target.Bus}]; ok {
			return e.conn.SetParamsBundled(node, tt, ParamValue{"level", value})
		}

	case state.TargetBusLevel:
		if node, ok := e.busNodes[target.Bus]; ok {
			return e.conn.SetParamsBundled(node, tt, ParamValue{"level", value})
		}

	case state.TargetSampleRate:
		// Per-voice: every live voice of the instrument owns a source
		// node, which is why voices must track it
		for _, v := range e.voices.Chains() {
			if v.Instrument == target.Instrument {
				if err := e.conn.SetParamsBundled(v.SourceNode, tt, ParamValue{"rate", value}); err != nil {
					return err
				}
			}
		}

	case state.TargetMasterLevel:
		for id, nodes := range e.nodes {
			inst := snap.Instruments.Get(id)
			if inst == nil {
				continue
			}
			if err := e.conn.SetParamsBundled(nodes.Output, tt,
				ParamValue{"level", inst.Level * value}); err != nil {
				return err
			}
		}
	}
	return nil
}
