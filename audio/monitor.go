package audio

import (
	"sync"
	"time"
)

// Buffer bounds for the monitor streams
const (
	scopeBufferSize = 200
	spectrumBands   = 7
)

// Monitor is the shared meter/scope surface between the audio thread
// (writer) and the UI thread (reader). Stale reads are fine; each write
// holds the lock only long enough to copy a few words, so readers are
// never blocked for long and values are never torn.
type Monitor struct {
	mu sync.RWMutex

	peakL, peakR float32
	spectrum     [spectrumBands]float32
	lufs         [4]float32 // peakL, peakR, rmsL, rmsR
	scope        []float32  // ring, newest last

	serverCPU float32
	latencyMs float32

	statusSentAt time.Time
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{scope: make([]float32, 0, scopeBufferSize)}
}

// SetMeter stores the master peak pair
func (m *Monitor) SetMeter(l, r float32) {
	m.mu.Lock()
	m.peakL, m.peakR = l, r
	m.mu.Unlock()
}

// Meter returns the master peak pair
func (m *Monitor) Meter() (float32, float32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peakL, m.peakR
}

// SetSpectrum stores the 7-band spectrum snapshot
func (m *Monitor) SetSpectrum(bands [spectrumBands]float32) {
	m.mu.Lock()
	m.spectrum = bands
	m.mu.Unlock()
}

// Spectrum returns the 7-band spectrum snapshot
func (m *Monitor) Spectrum() [spectrumBands]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spectrum
}

// SetLufs stores loudness data (peakL, peakR, rmsL, rmsR)
func (m *Monitor) SetLufs(peakL, peakR, rmsL, rmsR float32) {
	m.mu.Lock()
	m.lufs = [4]float32{peakL, peakR, rmsL, rmsR}
	m.mu.Unlock()
}

// Lufs returns loudness data (peakL, peakR, rmsL, rmsR)
func (m *Monitor) Lufs() (float32, float32, float32, float32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lufs[0], m.lufs[1], m.lufs[2], m.lufs[3]
}

// PushScope appends one oscilloscope sample, evicting the oldest when full
func (m *Monitor) PushScope(v float32) {
	m.mu.Lock()
	if len(m.scope) >= scopeBufferSize {
		copy(m.scope, m.scope[1:])
		m.scope[len(m.scope)-1] = v
	} else {
		m.scope = append(m.scope, v)
	}
	m.mu.Unlock()
}

// Scope returns a copy of the oscilloscope ring, oldest first
func (m *Monitor) Scope() []float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]float32, len(m.scope))
	copy(out, m.scope)
	return out
}

// SetServerCPU stores the server's average CPU load from /status.reply
func (m *Monitor) SetServerCPU(v float32) {
	m.mu.Lock()
	m.serverCPU = v
	m.mu.Unlock()
}

// ServerCPU returns the server's average CPU load
func (m *Monitor) ServerCPU() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.serverCPU
}

// MarkStatusSent records when /status went out, for latency measurement
func (m *Monitor) MarkStatusSent() {
	m.mu.Lock()
	m.statusSentAt = time.Now()
	m.mu.Unlock()
}

// MarkStatusReply computes round-trip latency from the last MarkStatusSent
func (m *Monitor) MarkStatusReply() {
	m.mu.Lock()
	if !m.statusSentAt.IsZero() {
		m.latencyMs = float32(time.Since(m.statusSentAt).Seconds() * 1000)
		m.statusSentAt = time.Time{}
	}
	m.mu.Unlock()
}

// LatencyMs returns the last measured OSC round-trip in milliseconds
func (m *Monitor) LatencyMs() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latencyMs
}
