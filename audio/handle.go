package audio

import (
	"go-daw/state"
)

// Channel bounds for the command/feedback boundary. Inbound sends block
// briefly when full; outbound overflow drops the oldest droppable entry.
const (
	cmdQueueSize      = 256
	feedbackQueueSize = 256
)

// Options configures the audio thread at startup
type Options struct {
	DisableAudio bool
	SynthdefDir  string
	MaxVoices    int // 0 = default
}

// Handle is the UI thread's only access to the audio engine: commands
// in, feedback out. The UI never touches engine memory directly.
type Handle struct {
	cmds     chan Cmd
	feedback chan Feedback
	monitor  *Monitor
}

// Start spawns the audio thread and returns its handle
func Start(opts Options) *Handle {
	monitor := NewMonitor()
	engine := NewEngine(monitor)
	engine.SetSynthdefDir(opts.SynthdefDir)
	if opts.MaxVoices > 0 {
		engine.Voices().MaxVoices = opts.MaxVoices
	}

	cmds := make(chan Cmd, cmdQueueSize)
	feedback := make(chan Feedback, feedbackQueueSize)

	t := &audioThread{
		engine:       engine,
		player:       NewPlayer(),
		cmds:         cmds,
		feedback:     feedback,
		snapshot:     state.NewSnapshot(),
		disableAudio: opts.DisableAudio,
	}

	h := &Handle{
		cmds:     cmds,
		feedback: feedback,
		monitor:  monitor,
	}
	go t.run()
	return h
}

// Send enqueues a command, blocking briefly when the queue is full.
// FIFO order is preserved: commands sent N, N+1 apply in that order.
func (h *Handle) Send(cmd Cmd) {
	h.cmds <- cmd
}

// TrySend enqueues without blocking; reports whether the command fit
func (h *Handle) TrySend(cmd Cmd) bool {
	select {
	case h.cmds <- cmd:
		return true
	default:
		return false
	}
}

// Feedback returns the channel of engine feedback. It closes when the
// audio thread exits.
func (h *Handle) Feedback() <-chan Feedback {
	return h.feedback
}

// Monitor returns the shared meter/scope surface
func (h *Handle) Monitor() *Monitor {
	return h.monitor
}

// Shutdown asks the audio thread to release voices and exit, then
// closes the command channel. Safe to call once.
func (h *Handle) Shutdown() {
	h.Send(CmdShutdown{})
	close(h.cmds)
}
