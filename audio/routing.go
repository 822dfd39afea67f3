package audio

import (
	"fmt"

	"github.com/pkg/errors"

	"go-daw/debug"
	"go-daw/state"
)

// createGroups pre-allocates the execution-order groups. Creation order
// matches numeric order so add-to-tail placement yields Sources →
// Processing → Output → Record → Limiter.
func (e *Engine) createGroups() error {
	if e.groupsCreated {
		return nil
	}
	for _, g := range []int32{GroupSources, GroupProcessing, GroupOutput, GroupRecord, GroupLimiter} {
		if err := e.conn.SendMessage("/g_new", g, addToTail, int32(0)); err != nil {
			return errors.Wrapf(err, "creating group %d", g)
		}
	}
	e.groupsCreated = true
	return nil
}

// ensureMasterChain creates the safety limiter and the meter/analysis
// taps on the master bus, inside the limiter group so they run last
func (e *Engine) ensureMasterChain() error {
	if e.limiterNode != 0 {
		return nil
	}
	e.limiterNode = e.nextNode()
	if err := e.conn.SendMessage("/s_new", "godaw_limiter", e.limiterNode, addToTail, GroupLimiter,
		"in", float32(0), "out", float32(0)); err != nil {
		return errors.Wrap(err, "creating limiter")
	}
	e.meterNode = e.nextNode()
	if err := e.conn.SendMessage("/s_new", "godaw_meter", e.meterNode, addToTail, GroupLimiter,
		"in", float32(0)); err != nil {
		return errors.Wrap(err, "creating meter")
	}
	for _, def := range []string{"godaw_spectrum", "godaw_lufs", "godaw_scope"} {
		node := e.nextNode()
		if err := e.conn.SendMessage("/s_new", def, node, addToTail, GroupLimiter,
			"in", float32(0)); err != nil {
			return errors.Wrapf(err, "creating %s", def)
		}
		e.analysisNodes = append(e.analysisNodes, node)
	}
	return nil
}

// busAudioBus returns the dedicated audio bus for a mixer bus, using a
// sentinel owner so mixer and instrument allocations share one namespace
func (e *Engine) busAudioBus(busID int) int {
	return e.buses.GetOrAllocAudio(MixerBusOwner(busID), "bus")
}

// instrumentOutBus resolves where a strip's output node writes
func (e *Engine) instrumentOutBus(inst *state.Instrument) float32 {
	if inst.OutputBus == state.OutputMaster {
		return 0
	}
	return float32(e.busAudioBus(inst.OutputBus))
}

// RebuildAll tears down and rebuilds the complete node graph from the
// snapshot. Bus allocations are keyed by owner and survive the rebuild,
// so the same snapshot always reproduces the same bus assignments.
func (e *Engine) RebuildAll(snap *state.Snapshot) error {
	if !e.Connected() {
		return nil
	}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(e.createGroups())
	keep(e.ensureMasterChain())
	keep(e.rebuildBusOutputs(&snap.Session))

	// Drop strips whose instruments are gone, voices first so no voice
	// keeps writing to a freed bus
	for id := range e.nodes {
		if snap.Instruments.Get(id) == nil {
			e.ReleaseInstrumentVoices(id)
			keep(e.teardownInstrument(id))
			e.buses.Free(InstrumentOwner(id))
		}
	}
	for i := range snap.Instruments.List {
		keep(e.RebuildInstrument(snap, snap.Instruments.List[i].ID))
	}
	return firstErr
}

// RebuildInstrument tears down and rebuilds one instrument's strip.
// Used for every topology change: source type, filter presence, effect
// add/remove/reorder/toggle, send toggles. A rebuild that fails midway
// leaves the strip inconsistent; the recovery is another rebuild.
func (e *Engine) RebuildInstrument(snap *state.Snapshot, id state.InstrumentID) error {
	if !e.Connected() {
		return nil
	}
	inst := snap.Instruments.Get(id)
	if inst == nil {
		return errors.Errorf("no instrument with id %d", id)
	}
	if err := e.teardownInstrument(id); err != nil {
		debug.Log("routing", "teardown %d: %v", id, err)
	}
	return e.buildInstrument(snap, inst)
}

func (e *Engine) teardownInstrument(id state.InstrumentID) error {
	nodes, ok := e.nodes[id]
	if !ok {
		return nil
	}
	var firstErr error
	for _, nid := range nodes.allNodeIDs() {
		if err := e.conn.SendMessage("/n_free", nid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for key, nid := range e.sendNodes {
		if key.instrument != id {
			continue
		}
		if err := e.conn.SendMessage("/n_free", nid); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.sendNodes, key)
	}
	delete(e.nodes, id)
	return firstErr
}

func (e *Engine) buildInstrument(snap *state.Snapshot, inst *state.Instrument) error {
	owner := InstrumentOwner(inst.ID)
	sourceOut := e.buses.GetOrAllocAudio(owner, "source_out")
	current := sourceOut

	nodes := &StripNodes{}
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Sample sources need their buffer on the server before any voice
	// can reference it
	if inst.Source == state.SourceSample && inst.SamplePath != "" {
		if _, err := e.LoadSample(inst.SampleBuffer, inst.SamplePath); err != nil {
			debug.Log("routing", "sample load %d: %v", inst.ID, err)
		}
	}

	// Persistent sources get a single long-lived node; voiced sources
	// are spawned per note and only reserve the shared output bus here.
	if inst.Source.Persistent() {
		nodes.Source = e.nextNode()
		params := append([]ParamValue{}, toParamValues(inst.SourceParams)...)
		params = append(params, ParamValue{"out", float32(sourceOut)})
		keep(e.conn.SendBundle(TimetagImmediate,
			msgSynthNew(inst.Source.SynthDef(), nodes.Source, addToTail, GroupSources, params...)))
	}

	if inst.Lfo.Enabled {
		lfoBus := e.buses.GetOrAllocControl(owner, "lfo_out")
		nodes.Lfo = e.nextNode()
		keep(e.conn.SendBundle(TimetagImmediate,
			msgSynthNew("godaw_lfo", nodes.Lfo, addToTail, GroupProcessing,
				ParamValue{"rate", inst.Lfo.Rate},
				ParamValue{"depth", inst.Lfo.Depth},
				ParamValue{"out", float32(lfoBus)})))
	}

	if inst.Filter != nil {
		filterOut := e.buses.GetOrAllocAudio(owner, "filter_out")
		nodes.Filter = e.nextNode()
		params := []ParamValue{
			{"in", float32(current)},
			{"out", float32(filterOut)},
			{"cutoff", inst.Filter.Cutoff},
			{"resonance", inst.Filter.Resonance},
		}
		if inst.Lfo.Enabled && inst.Lfo.Target == state.LfoCutoff {
			if lfoBus, ok := e.buses.GetControl(owner, "lfo_out"); ok {
				params = append(params, ParamValue{"cutoff_mod_in", float32(lfoBus)})
			}
		}
		keep(e.conn.SendBundle(TimetagImmediate,
			msgSynthNew(inst.Filter.Kind.SynthDef(), nodes.Filter, addToTail, GroupProcessing, params...)))
		current = filterOut
	}

	// Enabled effects only, in declarative order. Disabled slots are
	// skipped entirely so they never occupy a bus or a chain position.
	for _, fx := range inst.EnabledEffects() {
		fxOut := e.buses.GetOrAllocAudio(owner, fmt.Sprintf("fx_out_%d", fx.ID))
		node := e.nextNode()
		params := append([]ParamValue{}, toParamValues(fx.Params)...)
		params = append(params,
			ParamValue{"in", float32(current)},
			ParamValue{"out", float32(fxOut)})
		keep(e.conn.SendBundle(TimetagImmediate,
			msgSynthNew(fx.Kind.SynthDef(), node, addToTail, GroupProcessing, params...)))
		nodes.Effects = append(nodes.Effects, node)
		nodes.EffectIDs = append(nodes.EffectIDs, fx.ID)
		current = fxOut
	}

	// The output node always exists; it carries the mixer strip params
	nodes.Output = e.nextNode()
	outParams := []ParamValue{
		{"in", float32(current)},
		{"out", e.instrumentOutBus(inst)},
	}
	outParams = append(outParams, e.mixerParams(snap, inst)...)
	if inst.Lfo.Enabled && inst.Lfo.Target == state.LfoPan {
		if lfoBus, ok := e.buses.GetControl(owner, "lfo_out"); ok {
			outParams = append(outParams, ParamValue{"pan_mod_in", float32(lfoBus)})
		}
	}
	keep(e.conn.SendBundle(TimetagImmediate,
		msgSynthNew("godaw_output", nodes.Output, addToTail, GroupOutput, outParams...)))

	for _, send := range inst.Sends {
		if !send.Enabled {
			continue
		}
		node := e.nextNode()
		keep(e.conn.SendBundle(TimetagImmediate,
			msgSynthNew("godaw_send", node, addToTail, GroupOutput,
				ParamValue{"in", float32(current)},
				ParamValue{"out", float32(e.busAudioBus(send.BusID))},
				ParamValue{"level", send.Level})))
		e.sendNodes[sendKey{inst.ID, send.BusID}] = node
	}

	e.nodes[inst.ID] = nodes
	return firstErr
}

// rebuildBusOutputs recreates the mixer-bus output nodes
func (e *Engine) rebuildBusOutputs(session *state.Session) error {
	var firstErr error
	for _, nid := range e.busNodes {
		if err := e.conn.SendMessage("/n_free", nid); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.busNodes = make(map[int]int32)
	for _, bus := range session.Buses {
		node := e.nextNode()
		err := e.conn.SendBundle(TimetagImmediate,
			msgSynthNew("godaw_bus_out", node, addToTail, GroupOutput,
				ParamValue{"in", float32(e.busAudioBus(bus.ID))},
				ParamValue{"out", 0},
				ParamValue{"level", bus.Level},
				ParamValue{"pan", bus.Pan},
				ParamValue{"mute", boolParam(bus.Mute)}))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		e.busNodes[bus.ID] = node
	}
	return firstErr
}

// mixerParams computes the effective output-node parameters for a strip.
// Solo and master mute are global: any engaged solo silences every
// non-soloed strip, and master mute gates all outputs uniformly.
func (e *Engine) mixerParams(snap *state.Snapshot, inst *state.Instrument) []ParamValue {
	anySolo := snap.Instruments.AnySolo()
	muted := inst.Mute || !inst.Active || snap.Session.MasterMute || (anySolo && !inst.Solo)
	return []ParamValue{
		{"level", inst.Level * snap.Session.MasterLevel},
		{"pan", inst.Pan},
		{"mute", boolParam(muted)},
	}
}

// UpdateAllMixerParams is the incremental path for level, pan, mute,
// solo, and master changes: one bundled /n_set per instrument output
// node, no teardown. It must touch every strip because solo and master
// are global.
func (e *Engine) UpdateAllMixerParams(snap *state.Snapshot) error {
	if !e.Connected() {
		return nil
	}
	var firstErr error
	for i := range snap.Instruments.List {
		inst := &snap.Instruments.List[i]
		nodes, ok := e.nodes[inst.ID]
		if !ok {
			continue
		}
		err := e.conn.SetParamsBundled(nodes.Output, TimeFromNow(0), e.mixerParams(snap, inst)...)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SetBusMixerParams updates one mixer bus output node
func (e *Engine) SetBusMixerParams(busID int, level, pan float32, mute bool) error {
	if !e.Connected() {
		return nil
	}
	node, ok := e.busNodes[busID]
	if !ok {
		return errors.Errorf("no output node for bus %d", busID)
	}
	return e.conn.SetParamsBundled(node, TimeFromNow(0),
		ParamValue{"level", level},
		ParamValue{"pan", pan},
		ParamValue{"mute", boolParam(mute)})
}

// SetSourceParam sets a parameter on a persistent source node
func (e *Engine) SetSourceParam(id state.InstrumentID, param string, value float32) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok || nodes.Source == 0 {
		return errors.Errorf("no source node for instrument %d", id)
	}
	return e.conn.SetParamsBundled(nodes.Source, TimeFromNow(0), ParamValue{param, value})
}

// SetFilterParam sets a parameter on the strip's filter node
func (e *Engine) SetFilterParam(id state.InstrumentID, param string, value float32) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok || nodes.Filter == 0 {
		return errors.Errorf("no filter node for instrument %d", id)
	}
	return e.conn.SetParamsBundled(nodes.Filter, TimeFromNow(0), ParamValue{param, value})
}

// SetEffectParam sets a parameter on an effect node, addressed by
// stable effect id so disabled slots cannot shift the target
func (e *Engine) SetEffectParam(id state.InstrumentID, effect state.EffectID, param string, value float32) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok {
		return errors.Errorf("no nodes for instrument %d", id)
	}
	node, ok := nodes.EffectNode(effect)
	if !ok {
		return errors.Errorf("no live node for effect %d of instrument %d", effect, id)
	}
	return e.conn.SetParamsBundled(node, TimeFromNow(0), ParamValue{param, value})
}

// SetLfoParam sets a parameter on the strip's LFO node
func (e *Engine) SetLfoParam(id state.InstrumentID, param string, value float32) error {
	if !e.Connected() {
		return nil
	}
	nodes, ok := e.nodes[id]
	if !ok || nodes.Lfo == 0 {
		return errors.Errorf("no lfo node for instrument %d", id)
	}
	return e.conn.SetParamsBundled(nodes.Lfo, TimeFromNow(0), ParamValue{param, value})
}

func toParamValues(params []state.Param) []ParamValue {
	out := make([]ParamValue, len(params))
	for i, p := range params {
		out[i] = ParamValue{p.Name, p.Value}
	}
	return out
}

func boolParam(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
