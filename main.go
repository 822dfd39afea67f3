package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-daw/audio"
	"go-daw/config"
	"go-daw/debug"
	"go-daw/midi"
	"go-daw/tui"
)

func main() {
	var (
		serverAddr   string
		disableAudio bool
		midiPort     string
		debugLog     bool
	)
	flag.StringVar(&serverAddr, "scsynth", "", "scsynth UDP address (overrides config)")
	flag.BoolVar(&disableAudio, "no-audio", false, "run without server communication")
	flag.StringVar(&midiPort, "midi", "", "MIDI input port name (overrides config)")
	flag.BoolVar(&debugLog, "debug", false, "write debug log")
	flag.Parse()

	if debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}
	if serverAddr == "" {
		serverAddr = cfg.Server.Addr
	}
	if midiPort == "" {
		midiPort = cfg.Midi.PortName
	}
	if cfg.DisableAudio {
		disableAudio = true
	}

	handle := audio.Start(audio.Options{
		DisableAudio: disableAudio,
		SynthdefDir:  cfg.Server.SynthdefDir,
	})

	if cfg.Server.AutoStart && !disableAudio {
		handle.Send(audio.CmdStartServer{})
	}
	handle.Send(audio.CmdConnectServer{Addr: serverAddr})
	handle.Send(audio.CmdSetBpm{Bpm: cfg.UI.LastBpm})

	// Live MIDI keyboard → voice commands. Best effort: running without
	// a keyboard is normal.
	if kb, err := midi.OpenKeyboard(midiPort); err == nil {
		defer kb.Close()
		go routeNotes(kb, handle)
	} else if midiPort != "" {
		debug.Log("midi", "keyboard open: %v", err)
	}

	model := tui.NewModel(handle, cfg.UI.LastBpm)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}

// routeNotes turns live keyboard input into immediate voice commands
// for the first instrument
func routeNotes(kb *midi.Keyboard, handle *audio.Handle) {
	for evt := range kb.Notes() {
		if evt.Velocity > 0 {
			handle.TrySend(audio.CmdSpawnVoice{
				Instrument: 1,
				Pitch:      evt.Note,
				Velocity:   float32(evt.Velocity) / 127,
			})
		} else {
			handle.TrySend(audio.CmdReleaseVoice{Instrument: 1, Pitch: evt.Note})
		}
	}
}
