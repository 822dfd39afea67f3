package audio

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"go-daw/state"
)

// antiClickFade is the gate-down fade applied before freeing a stolen
// voice, so the steal is inaudible
const antiClickFade = 0.005

// pitchToFreq converts a MIDI pitch to Hz for the given A4 tuning
func pitchToFreq(pitch uint8, tuningA4 float64) float64 {
	return tuningA4 * math.Pow(2, (float64(pitch)-69)/12)
}

// SpawnVoice realizes a note for an instrument at now + offsetSecs. The
// whole voice chain (group, MIDI control node, source node) goes out as
// one bundle sharing the note's absolute timetag.
func (e *Engine) SpawnVoice(snap *state.Snapshot, id state.InstrumentID, pitch uint8, velocity float32, offsetSecs float64) error {
	inst := snap.Instruments.Get(id)
	if inst == nil {
		return errors.Errorf("spawn voice: no instrument with id %d", id)
	}

	// Persistent sources have no per-note chain
	if inst.Source == state.SourceAudioIn || inst.Source == state.SourceBusIn {
		return nil
	}
	if inst.Source == state.SourceVst {
		return e.sendVstiNoteOn(id, pitch, velocity)
	}
	if !e.Connected() {
		return nil
	}

	// Steal before allocating so the stolen group is freed first and no
	// orphan nodes survive the swap
	for _, victim := range e.voices.Steal(id) {
		if err := e.antiClickFree(victim); err != nil {
			return err
		}
	}

	owner := InstrumentOwner(id)
	sourceOut := e.buses.GetOrAllocAudio(owner, "source_out")
	freqBus, gateBus, velBus := e.voices.AllocControlBuses()

	groupID := e.nextNode()
	midiNode := e.nextNode()
	sourceNode := e.nextNode()

	freq := pitchToFreq(pitch, snap.Session.TuningA4)

	midiParams := []ParamValue{
		{"note", float32(pitch)},
		{"freq", float32(freq)},
		{"vel", velocity},
		{"gate", 1},
		{"freq_out", float32(freqBus)},
		{"gate_out", float32(gateBus)},
		{"vel_out", float32(velBus)},
	}

	srcParams := append([]ParamValue{}, toParamValues(inst.SourceParams)...)
	srcParams = append(srcParams,
		ParamValue{"freq_in", float32(freqBus)},
		ParamValue{"gate_in", float32(gateBus)},
		ParamValue{"vel_in", float32(velBus)},
		ParamValue{"attack", inst.AmpEnvelope.Attack},
		ParamValue{"decay", inst.AmpEnvelope.Decay},
		ParamValue{"sustain", inst.AmpEnvelope.Sustain},
		ParamValue{"release", inst.AmpEnvelope.Release},
		ParamValue{"out", float32(sourceOut)},
	)
	if inst.Source == state.SourceSample {
		if bufnum, ok := e.buffers[inst.SampleBuffer]; ok {
			srcParams = append(srcParams, ParamValue{"bufnum", float32(bufnum)})
		}
	}
	if inst.Lfo.Enabled {
		if modIn := inst.Lfo.Target.ModInputParam(); modIn != "" {
			if lfoBus, ok := e.buses.GetControl(owner, "lfo_out"); ok {
				srcParams = append(srcParams, ParamValue{modIn, float32(lfoBus)})
			}
		}
	}

	err := e.conn.SendBundle(TimeFromNow(offsetSecs),
		msgGroupNew(groupID, addToTail, GroupSources),
		msgSynthNew("godaw_midi", midiNode, addToTail, groupID, midiParams...),
		msgSynthNew(inst.Source.SynthDef(), sourceNode, addToTail, groupID, srcParams...),
	)
	if err != nil {
		return errors.Wrap(err, "spawning voice")
	}

	e.voices.Add(&Voice{
		Instrument: id,
		Pitch:      pitch,
		Velocity:   velocity,
		GroupID:    groupID,
		MidiNode:   midiNode,
		SourceNode: sourceNode,
		FreqBus:    freqBus,
		GateBus:    gateBus,
		VelBus:     velBus,
		SpawnTime:  time.Now(),
	})
	return nil
}

// ReleaseVoice begins the note-off for (instrument, pitch): gate goes to
// zero at now + offsetSecs, and the voice group is freed after the
// envelope release plus a safety margin. The voice stays registered as a
// steal candidate while it fades. Releasing a note whose instrument was
// deleted mid-note is a no-op.
func (e *Engine) ReleaseVoice(snap *state.Snapshot, id state.InstrumentID, pitch uint8, offsetSecs float64) error {
	inst := snap.Instruments.Get(id)
	if inst != nil && inst.Source == state.SourceVst {
		return e.sendVstiNoteOff(id, pitch)
	}
	if !e.Connected() {
		return nil
	}

	releaseSecs := float64(1.0)
	if inst != nil {
		releaseSecs = float64(inst.AmpEnvelope.Release)
	}

	voice := e.voices.MarkReleased(id, pitch, offsetSecs+releaseSecs)
	if voice == nil {
		return nil
	}

	if err := e.conn.SetParamsBundled(voice.MidiNode, TimeFromNow(offsetSecs),
		ParamValue{"gate", 0}); err != nil {
		return errors.Wrap(err, "releasing voice")
	}
	// Deferred free after the envelope tail; the margin absorbs grain
	cleanup := TimeFromNow(offsetSecs + releaseSecs + releaseMargin.Seconds())
	return e.conn.SendBundle(cleanup, msgNodeFree(voice.GroupID))
}

// ReleaseAllVoices frees every live voice group immediately. This is the
// cancellation primitive for sounding audio.
func (e *Engine) ReleaseAllVoices() {
	voices := e.voices.DrainAll()
	if !e.Connected() {
		return
	}
	for _, v := range voices {
		if err := e.conn.SendMessage("/n_free", v.GroupID); err != nil {
			return
		}
	}
}

// ReleaseInstrumentVoices frees every live voice of one instrument
func (e *Engine) ReleaseInstrumentVoices(id state.InstrumentID) {
	voices := e.voices.DrainFor(id)
	if !e.Connected() {
		return
	}
	for _, v := range voices {
		_ = e.conn.SendMessage("/n_free", v.GroupID)
	}
}

// antiClickFree kills a stolen voice. Active voices get a brief gate
// fade before the free; already-releasing voices are freed immediately
// (the server silently ignores the later deferred free).
func (e *Engine) antiClickFree(v *Voice) error {
	if v.Released {
		return e.conn.SendMessage("/n_free", v.GroupID)
	}
	if err := e.conn.SetParamsBundled(v.MidiNode, TimeFromNow(0), ParamValue{"gate", 0}); err != nil {
		return err
	}
	return e.conn.SendBundle(TimeFromNow(antiClickFade), msgNodeFree(v.GroupID))
}
