package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-daw/audio"
	"go-daw/state"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	playStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// Model is the status front-end: it drains engine feedback and renders
// transport, server state, and meters. All audio intent goes out as
// commands through the handle.
type Model struct {
	Handle *audio.Handle

	playing   bool
	playhead  int
	bpm       float64
	status    audio.ServerStatus
	statusMsg string
	lastError string
	recording bool
	recSecs   uint64
	quitting  bool
}

// FeedbackMsg wraps one engine feedback event
type FeedbackMsg struct{ Feedback audio.Feedback }

// feedbackClosedMsg signals the audio thread has exited
type feedbackClosedMsg struct{}

type meterTickMsg struct{}

// NewModel creates the status model for a running engine
func NewModel(handle *audio.Handle, bpm float64) Model {
	return Model{Handle: handle, bpm: bpm}
}

func listenFeedback(h *audio.Handle) tea.Cmd {
	return func() tea.Msg {
		fb, ok := <-h.Feedback()
		if !ok {
			return feedbackClosedMsg{}
		}
		return FeedbackMsg{Feedback: fb}
	}
}

func meterTick() tea.Cmd {
	return tea.Tick(time.Second/30, func(time.Time) tea.Msg {
		return meterTickMsg{}
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenFeedback(m.Handle), meterTick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Handle.Shutdown()
			return m, tea.Quit
		case " ", "space":
			m.playing = !m.playing
			m.Handle.Send(audio.CmdSetPlaying{Playing: m.playing})
			if !m.playing {
				m.Handle.Send(audio.CmdReleaseAllVoices{})
			}
		case "0":
			m.Handle.Send(audio.CmdSeekTo{Tick: 0})
		case "+", "=":
			m.bpm++
			m.Handle.Send(audio.CmdSetBpm{Bpm: m.bpm})
		case "-":
			if m.bpm > 20 {
				m.bpm--
				m.Handle.Send(audio.CmdSetBpm{Bpm: m.bpm})
			}
		case "c":
			m.Handle.Send(audio.CmdConnectServer{Addr: "127.0.0.1:57110"})
		case "r":
			if m.recording {
				m.Handle.Send(audio.CmdStopRecording{})
			} else {
				m.Handle.Send(audio.CmdStartRecording{Path: "recording.wav"})
			}
		}

	case FeedbackMsg:
		m.apply(msg.Feedback)
		return m, listenFeedback(m.Handle)

	case feedbackClosedMsg:
		return m, tea.Quit

	case meterTickMsg:
		return m, meterTick()
	}
	return m, nil
}

func (m *Model) apply(fb audio.Feedback) {
	switch f := fb.(type) {
	case audio.FbPlayheadPosition:
		m.playhead = f.Tick
	case audio.FbBpmUpdate:
		m.bpm = f.Bpm
	case audio.FbServerStatus:
		m.status = f.Status
		m.statusMsg = f.Message
	case audio.FbRecordingState:
		m.recording = f.Recording
		m.recSecs = f.ElapsedSecs
	case audio.FbTransportError:
		m.lastError = f.Message
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("go-daw"))
	b.WriteString("\n\n")

	transport := "stopped"
	if m.playing {
		transport = playStyle.Render("playing")
	}
	beat := m.playhead / state.TicksPerBeat
	tick := m.playhead % state.TicksPerBeat
	b.WriteString(fmt.Sprintf("%s %s   %s %d.%03d   %s %.0f\n",
		labelStyle.Render("transport"), valueStyle.Render(transport),
		labelStyle.Render("playhead"), beat, tick,
		labelStyle.Render("bpm"), m.bpm))

	statusLine := m.status.String()
	if m.statusMsg != "" {
		statusLine += " — " + m.statusMsg
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("server"), valueStyle.Render(statusLine)))

	l, r := m.Handle.Monitor().Meter()
	b.WriteString(fmt.Sprintf("%s %s %s\n",
		labelStyle.Render("meter"), meterBar(l), meterBar(r)))

	if m.recording {
		b.WriteString(fmt.Sprintf("%s %ds\n", errStyle.Render("● rec"), m.recSecs))
	}
	if m.lastError != "" {
		b.WriteString(errStyle.Render("error: "+m.lastError) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("space play/stop · 0 rewind · +/- bpm · c connect · r record · q quit"))
	return b.String()
}

func meterBar(level float32) string {
	const width = 20
	n := int(level * width)
	if n > width {
		n = width
	}
	if n < 0 {
		n = 0
	}
	return meterStyle.Render(strings.Repeat("█", n) + strings.Repeat("░", width-n))
}
