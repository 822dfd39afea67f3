package audio

import (
	"time"

	"go-daw/debug"
	"go-daw/state"
)

// tickPeriod is the scheduler cadence. Notes are emitted with absolute
// future timetags, so loop jitter never reaches audible timing as long
// as each iteration completes within the schedule-ahead window.
const tickPeriod = time.Millisecond

// audioThread owns the engine, the player, and the shadow state. It is
// the only goroutine that touches any of them.
type audioThread struct {
	engine   *Engine
	player   *Player
	cmds     <-chan Cmd
	feedback chan Feedback

	snapshot  state.Snapshot
	sequencer state.Sequencer
	lanes     []state.Lane

	lastTick     time.Time
	lastPlayhead int
	lastStatus   ServerStatus
	lastRecOn    bool
	lastRecSecs  uint64

	disableAudio bool
}

func (t *audioThread) run() {
	defer close(t.feedback)
	t.lastTick = time.Now()
	timer := time.NewTimer(tickPeriod)
	defer timer.Stop()

	for {
		// Apply everything already queued before any tick work, so a
		// parameter change sent at tick T is in force when notes
		// starting at T are scheduled
	drain:
		for {
			select {
			case cmd, ok := <-t.cmds:
				if !ok || t.handle(cmd) {
					t.shutdown()
					return
				}
			default:
				break drain
			}
		}

		now := time.Now()
		elapsed := now.Sub(t.lastTick)
		if elapsed >= tickPeriod {
			t.lastTick = now
			if t.player.Advance(elapsed, &t.snapshot, &t.sequencer, t.lanes, t.engine) {
				t.publishPlayhead()
			}
		}

		t.pollEngine(now)

		// Combined wait: wake on the next command or the next tick
		// boundary, whichever comes first
		timer.Reset(tickPeriod)
		select {
		case cmd, ok := <-t.cmds:
			if !ok || t.handle(cmd) {
				t.shutdown()
				return
			}
		case <-timer.C:
		}
	}
}

func (t *audioThread) shutdown() {
	t.engine.ReleaseAllVoices()
	t.engine.StopServer()
	debug.Log("audio", "audio thread exiting")
}

// handle applies one command; returns true on shutdown
func (t *audioThread) handle(cmd Cmd) bool {
	switch c := cmd.(type) {
	case CmdUpdateShadowState:
		t.snapshot = c.Snapshot

	case CmdUpdateSequences:
		t.sequencer = c.Sequencer

	case CmdUpdateAutomation:
		t.lanes = c.Lanes

	case CmdSetPlaying:
		t.player.Playing = c.Playing

	case CmdSeekTo:
		t.player.SeekTo(c.Tick)
		t.engine.ReleaseAllVoices()
		t.publishPlayhead()

	case CmdSetBpm:
		t.player.Bpm = c.Bpm
		t.publish(FbBpmUpdate{Bpm: c.Bpm})

	case CmdSpawnVoice:
		t.report(t.engine.SpawnVoice(&t.snapshot, c.Instrument, c.Pitch, c.Velocity, 0))

	case CmdReleaseVoice:
		t.report(t.engine.ReleaseVoice(&t.snapshot, c.Instrument, c.Pitch, 0))

	case CmdReleaseAllVoices:
		t.engine.ReleaseAllVoices()
		t.player.SeekTo(t.player.Playhead)

	case CmdSetSourceParam:
		t.report(t.engine.SetSourceParam(c.Instrument, c.Param, c.Value))

	case CmdSetFilterParam:
		t.report(t.engine.SetFilterParam(c.Instrument, c.Param, c.Value))

	case CmdSetEffectParam:
		t.report(t.engine.SetEffectParam(c.Instrument, c.Effect, c.Param, c.Value))

	case CmdSetLfoParam:
		t.report(t.engine.SetLfoParam(c.Instrument, c.Param, c.Value))

	case CmdSetInstrumentMixerParams:
		if inst := t.snapshot.Instruments.Get(c.Instrument); inst != nil {
			inst.Level, inst.Pan, inst.Mute, inst.Solo = c.Level, c.Pan, c.Mute, c.Solo
		}
		t.report(t.engine.UpdateAllMixerParams(&t.snapshot))

	case CmdSetMasterParams:
		t.snapshot.Session.MasterLevel = c.Level
		t.snapshot.Session.MasterMute = c.Mute
		t.report(t.engine.UpdateAllMixerParams(&t.snapshot))

	case CmdSetBusMixerParams:
		for i := range t.snapshot.Session.Buses {
			if t.snapshot.Session.Buses[i].ID == c.Bus {
				t.snapshot.Session.Buses[i].Level = c.Level
				t.snapshot.Session.Buses[i].Pan = c.Pan
				t.snapshot.Session.Buses[i].Mute = c.Mute
			}
		}
		t.report(t.engine.SetBusMixerParams(c.Bus, c.Level, c.Pan, c.Mute))

	case CmdRebuildRouting:
		t.report(t.engine.RebuildAll(&t.snapshot))

	case CmdRebuildInstrumentRouting:
		t.report(t.engine.RebuildInstrument(&t.snapshot, c.Instrument))

	case CmdUpdateMixerParams:
		t.report(t.engine.UpdateAllMixerParams(&t.snapshot))

	case CmdConnectServer:
		if err := t.engine.Connect(c.Addr, t.disableAudio); err != nil {
			t.publishStatus(err.Error())
		} else {
			t.report(t.engine.RebuildAll(&t.snapshot))
			t.publishStatus("connected")
		}

	case CmdDisconnectServer:
		t.engine.Disconnect()
		t.publishStatus("disconnected")

	case CmdStartServer:
		if err := t.engine.StartServer(); err != nil {
			t.publishStatus(err.Error())
		} else {
			t.publishStatus("server started")
		}

	case CmdStopServer:
		t.engine.StopServer()
		t.publishStatus("server stopped")

	case CmdStartRecording:
		if err := t.engine.StartRecording(c.Path); err != nil {
			t.report(err)
		} else {
			t.publish(FbRecordingState{Recording: true})
		}

	case CmdStopRecording:
		if _, ok := t.engine.StopRecording(); ok {
			t.publish(FbRecordingState{Recording: false})
		}

	case CmdQueryVstParams:
		params, err := t.engine.QueryVstParams(c.Instrument, c.Target)
		if err != nil {
			t.report(err)
			break
		}
		t.publish(FbVstParamsDiscovered{Instrument: c.Instrument, Target: c.Target, Params: params})

	case CmdSetVstParam:
		t.report(t.engine.SetVstParam(c.Instrument, c.Target, c.Index, c.Value))

	case CmdShutdown:
		return true
	}
	return false
}

func (t *audioThread) pollEngine(now time.Time) {
	t.engine.PollStatus(now)

	for {
		msg, ok := t.engine.PollReply(0)
		if !ok {
			break
		}
		switch msg.Address {
		case "/status.reply":
			t.engine.HandleStatusReply()
		case "/fail":
			debug.Log("server", "server reported failure: %v", msg.Arguments)
		}
	}

	t.engine.Voices().CleanupExpired(now)

	if st := t.engine.Status(); st != t.lastStatus {
		t.publishStatus(st.String())
	}

	recOn := t.engine.IsRecording()
	recSecs := uint64(t.engine.RecordingElapsed().Seconds())
	if recOn != t.lastRecOn || (recOn && recSecs != t.lastRecSecs) {
		t.lastRecOn, t.lastRecSecs = recOn, recSecs
		t.publish(FbRecordingState{Recording: recOn, ElapsedSecs: recSecs})
	}
}

func (t *audioThread) publishPlayhead() {
	if t.player.Playhead == t.lastPlayhead {
		return
	}
	t.lastPlayhead = t.player.Playhead
	t.publish(FbPlayheadPosition{Tick: t.player.Playhead})
}

func (t *audioThread) publishStatus(message string) {
	t.lastStatus = t.engine.Status()
	t.publish(FbServerStatus{
		Status:        t.lastStatus,
		Message:       message,
		ServerRunning: t.engine.ServerRunning(),
	})
}

// report surfaces an engine error as a transport error without killing
// the loop; nil errors are ignored
func (t *audioThread) report(err error) {
	if err == nil {
		return
	}
	debug.Log("audio", "%v", err)
	t.publish(FbTransportError{Message: err.Error()})
}

// publish delivers feedback to the UI. When the queue is full, meters
// and playhead updates displace the oldest entry; status and error
// messages block until the UI drains.
func (t *audioThread) publish(f Feedback) {
	select {
	case t.feedback <- f:
		return
	default:
	}
	if droppable(f) {
		select {
		case <-t.feedback:
		default:
		}
		select {
		case t.feedback <- f:
		default:
		}
		return
	}
	t.feedback <- f
}
