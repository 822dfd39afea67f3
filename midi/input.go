package midi

import (
	"strings"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// NoteEvent is one keyboard note-on or note-off
type NoteEvent struct {
	Note     uint8
	Velocity uint8 // 0 means note-off
	Channel  uint8
}

// Keyboard listens to a MIDI input port and delivers note events. The
// channel drops events when full rather than blocking the driver
// callback.
type Keyboard struct {
	port     drivers.In
	stopFunc func()
	notes    chan NoteEvent
}

// Ports lists available MIDI input port names
func Ports() []string {
	var names []string
	for _, in := range gomidi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// OpenKeyboard opens the named input port; an empty name picks the
// first available port
func OpenKeyboard(portName string) (*Keyboard, error) {
	var port drivers.In
	for _, in := range gomidi.GetInPorts() {
		if portName == "" || strings.Contains(in.String(), portName) {
			port = in
			break
		}
	}
	if port == nil {
		return nil, errors.Errorf("no MIDI input port matching %q", portName)
	}

	kb := &Keyboard{port: port, notes: make(chan NoteEvent, 32)}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity uint8
		switch {
		case msg.GetNoteOn(&channel, &note, &velocity):
			select {
			case kb.notes <- NoteEvent{Note: note, Velocity: velocity, Channel: channel}:
			default:
			}
		case msg.GetNoteOff(&channel, &note, &velocity):
			select {
			case kb.notes <- NoteEvent{Note: note, Velocity: 0, Channel: channel}:
			default:
			}
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening MIDI input")
	}
	kb.stopFunc = stop
	return kb, nil
}

// Notes returns the incoming note event channel
func (kb *Keyboard) Notes() <-chan NoteEvent {
	return kb.notes
}

// Close stops listening and closes the note channel
func (kb *Keyboard) Close() error {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
	close(kb.notes)
	return nil
}
