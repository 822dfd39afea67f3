package state

// NumMixerBuses is the fixed count of auxiliary mixer buses
const NumMixerBuses = 4

// MixerBus is one auxiliary mix bus (sends land here)
type MixerBus struct {
	ID    int     `json:"id"` // 1-based; 0 is the master
	Name  string  `json:"name"`
	Level float32 `json:"level"`
	Pan   float32 `json:"pan"`
	Mute  bool    `json:"mute"`
}

// Session holds global mix and tuning state
type Session struct {
	MasterLevel float32    `json:"masterLevel"`
	MasterMute  bool       `json:"masterMute"`
	Buses       []MixerBus `json:"buses"`
	TuningA4    float64    `json:"tuningA4"`
}

// NewSession creates a session with defaults
func NewSession() Session {
	s := Session{
		MasterLevel: 0.8,
		TuningA4:    440,
	}
	for i := 1; i <= NumMixerBuses; i++ {
		s.Buses = append(s.Buses, MixerBus{ID: i, Level: 0.8})
	}
	return s
}

// Snapshot is the unit of shadow-state replacement sent to the audio
// thread. It is always swapped wholesale, never mutated in place, so
// structural changes can't race against the tick loop.
type Snapshot struct {
	Instruments Instruments `json:"instruments"`
	Session     Session     `json:"session"`
}

// NewSnapshot creates an empty snapshot with session defaults
func NewSnapshot() Snapshot {
	return Snapshot{Session: NewSession()}
}
