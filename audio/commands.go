package audio

import "go-daw/state"

// Cmd is a command sent from the UI thread to the audio thread. The
// variants form a sealed set: commands either carry their own data or
// rely on snapshots previously delivered via the Update* variants.
type Cmd interface{ cmd() }

// VstTarget addresses the VST host slot within an instrument
type VstTarget struct {
	Effect   state.EffectID // meaningful when !Source
	Source   bool
}

// ── State snapshots ──────────────────────────────────────────────

// CmdUpdateShadowState replaces the audio thread's instrument/session
// view wholesale
type CmdUpdateShadowState struct{ Snapshot state.Snapshot }

// CmdUpdateSequences replaces the piano-roll data and loop region
type CmdUpdateSequences struct{ Sequencer state.Sequencer }

// CmdUpdateAutomation replaces the automation lanes
type CmdUpdateAutomation struct{ Lanes []state.Lane }

// ── Transport ────────────────────────────────────────────────────

type CmdSetPlaying struct{ Playing bool }
type CmdSeekTo struct{ Tick int }
type CmdSetBpm struct{ Bpm float64 }

// ── Voices ───────────────────────────────────────────────────────

type CmdSpawnVoice struct {
	Instrument state.InstrumentID
	Pitch      uint8
	Velocity   float32
}

type CmdReleaseVoice struct {
	Instrument state.InstrumentID
	Pitch      uint8
}

type CmdReleaseAllVoices struct{}

// ── Parameters (incremental, no rebuild) ─────────────────────────

type CmdSetSourceParam struct {
	Instrument state.InstrumentID
	Param      string
	Value      float32
}

type CmdSetFilterParam struct {
	Instrument state.InstrumentID
	Param      string
	Value      float32
}

type CmdSetEffectParam struct {
	Instrument state.InstrumentID
	Effect     state.EffectID
	Param      string
	Value      float32
}

type CmdSetLfoParam struct {
	Instrument state.InstrumentID
	Param      string
	Value      float32
}

type CmdSetInstrumentMixerParams struct {
	Instrument state.InstrumentID
	Level, Pan float32
	Mute, Solo bool
}

type CmdSetMasterParams struct {
	Level float32
	Mute  bool
}

type CmdSetBusMixerParams struct {
	Bus   int
	Level float32
	Pan   float32
	Mute  bool
}

// ── Routing ──────────────────────────────────────────────────────

// CmdRebuildRouting tears down and rebuilds the whole node graph from
// the current shadow state
type CmdRebuildRouting struct{}

// CmdRebuildInstrumentRouting rebuilds one instrument's strip
type CmdRebuildInstrumentRouting struct{ Instrument state.InstrumentID }

// CmdUpdateMixerParams runs the incremental mixer path over all strips
type CmdUpdateMixerParams struct{}

// ── Server lifecycle ─────────────────────────────────────────────

type CmdConnectServer struct{ Addr string }
type CmdDisconnectServer struct{}
type CmdStartServer struct{}
type CmdStopServer struct{}

// ── Recording ────────────────────────────────────────────────────

type CmdStartRecording struct{ Path string }
type CmdStopRecording struct{}

// ── VST ──────────────────────────────────────────────────────────

type CmdQueryVstParams struct {
	Instrument state.InstrumentID
	Target     VstTarget
}

type CmdSetVstParam struct {
	Instrument state.InstrumentID
	Target     VstTarget
	Index      int32
	Value      float32
}

// CmdShutdown asks the audio thread to release voices and exit
type CmdShutdown struct{}

func (CmdUpdateShadowState) cmd()         {}
func (CmdUpdateSequences) cmd()           {}
func (CmdUpdateAutomation) cmd()          {}
func (CmdSetPlaying) cmd()                {}
func (CmdSeekTo) cmd()                    {}
func (CmdSetBpm) cmd()                    {}
func (CmdSpawnVoice) cmd()                {}
func (CmdReleaseVoice) cmd()              {}
func (CmdReleaseAllVoices) cmd()          {}
func (CmdSetSourceParam) cmd()            {}
func (CmdSetFilterParam) cmd()            {}
func (CmdSetEffectParam) cmd()            {}
func (CmdSetLfoParam) cmd()               {}
func (CmdSetInstrumentMixerParams) cmd()  {}
func (CmdSetMasterParams) cmd()           {}
func (CmdSetBusMixerParams) cmd()         {}
func (CmdRebuildRouting) cmd()            {}
func (CmdRebuildInstrumentRouting) cmd()  {}
func (CmdUpdateMixerParams) cmd()         {}
func (CmdConnectServer) cmd()             {}
func (CmdDisconnectServer) cmd()          {}
func (CmdStartServer) cmd()               {}
func (CmdStopServer) cmd()                {}
func (CmdStartRecording) cmd()            {}
func (CmdStopRecording) cmd()             {}
func (CmdQueryVstParams) cmd()            {}
func (CmdSetVstParam) cmd()               {}
func (CmdShutdown) cmd()                  {}

// Feedback is published by the audio thread for the UI to drain.
// High-frequency variants (playhead) may be dropped under backpressure;
// status and error variants never are.
type Feedback interface{ feedback() }

type FbPlayheadPosition struct{ Tick int }

type FbBpmUpdate struct{ Bpm float64 }

type FbServerStatus struct {
	Status        ServerStatus
	Message       string
	ServerRunning bool
}

type FbRecordingState struct {
	Recording   bool
	ElapsedSecs uint64
}

type FbTransportError struct{ Message string }

// VstParam is one discovered plugin parameter
type VstParam struct {
	Index   int32
	Name    string
	Default float32
}

type FbVstParamsDiscovered struct {
	Instrument state.InstrumentID
	Target     VstTarget
	Params     []VstParam
}

func (FbPlayheadPosition) feedback()    {}
func (FbBpmUpdate) feedback()           {}
func (FbServerStatus) feedback()        {}
func (FbRecordingState) feedback()      {}
func (FbTransportError) feedback()      {}
func (FbVstParamsDiscovered) feedback() {}

// droppable reports whether a feedback variant may be discarded when
// the outbound queue is full
func droppable(f Feedback) bool {
	switch f.(type) {
	case FbPlayheadPosition, FbBpmUpdate, FbRecordingState:
		return true
	}
	return false
}
