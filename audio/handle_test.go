package audio

import (
	"testing"
	"time"

	"go-daw/state"
)

// drainUntil reads feedback until pred matches or the deadline passes
func drainUntil(t *testing.T, h *Handle, timeout time.Duration, pred func(Feedback) bool) bool {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case fb, ok := <-h.Feedback():
			if !ok {
				return false
			}
			if pred(fb) {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func TestAudioThreadAdvancesWithoutServer(t *testing.T) {
	// The disable-audio path: the scheduler must advance and publish
	// playhead feedback with no server communication at all
	h := Start(Options{DisableAudio: true})

	snap := state.NewSnapshot()
	snap.Instruments.List = []state.Instrument{state.NewInstrument(1, state.SourceSaw)}
	h.Send(CmdUpdateShadowState{Snapshot: snap})
	h.Send(CmdUpdateSequences{Sequencer: state.Sequencer{}})
	h.Send(CmdSetBpm{Bpm: 120})
	h.Send(CmdSetPlaying{Playing: true})

	moved := drainUntil(t, h, 2*time.Second, func(fb Feedback) bool {
		if p, ok := fb.(FbPlayheadPosition); ok {
			return p.Tick > 0
		}
		return false
	})
	if !moved {
		t.Error("playhead never advanced")
	}

	h.Shutdown()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-h.Feedback():
			if !ok {
				return
			}
		case <-deadline:
			t.Error("feedback channel did not close after shutdown")
			return
		}
	}
}

func TestCommandsApplyInOrder(t *testing.T) {
	h := Start(Options{DisableAudio: true})
	defer h.Shutdown()

	// Two BPM changes in order; the second must win
	h.Send(CmdSetBpm{Bpm: 90})
	h.Send(CmdSetBpm{Bpm: 140})

	var last float64
	drainUntil(t, h, 2*time.Second, func(fb Feedback) bool {
		if b, ok := fb.(FbBpmUpdate); ok {
			last = b.Bpm
			return b.Bpm == 140
		}
		return false
	})
	if last != 140 {
		t.Errorf("last applied bpm = %v, want 140", last)
	}
}

func TestDroppableClassification(t *testing.T) {
	if !droppable(FbPlayheadPosition{}) {
		t.Error("playhead feedback must be droppable")
	}
	if droppable(FbServerStatus{}) {
		t.Error("status feedback must never be droppable")
	}
	if droppable(FbTransportError{}) {
		t.Error("error feedback must never be droppable")
	}
}
