package audio

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"go-daw/debug"
	"go-daw/state"
)

// Common scsynth install locations, tried in order
var scsynthPaths = []string{
	"scsynth",
	"/Applications/SuperCollider.app/Contents/Resources/scsynth",
	"/usr/local/bin/scsynth",
	"/usr/bin/scsynth",
}

// statusPollInterval is how often /status is sent while connected
const statusPollInterval = time.Second

// statusMissLimit is how many unanswered polls mark the server unresponsive
const statusMissLimit = 3

// StartServer launches scsynth listening on UDP 57110
func (e *Engine) StartServer() error {
	if e.process != nil {
		return errors.New("server already running")
	}
	e.status = StatusStarting
	for _, path := range scsynthPaths {
		cmd := exec.Command(path, "-u", "57110")
		if err := cmd.Start(); err != nil {
			continue
		}
		e.process = cmd
		e.status = StatusRunning
		// Give the server time to bind its socket
		time.Sleep(500 * time.Millisecond)
		return nil
	}
	e.status = StatusError
	return errors.New("could not find scsynth; install SuperCollider")
}

// StopServer disconnects and kills the scsynth process if we own one
func (e *Engine) StopServer() {
	e.Disconnect()
	if e.process != nil {
		_ = e.process.Process.Kill()
		_, _ = e.process.Process.Wait()
		e.process = nil
	}
	e.status = StatusStopped
}

// Connect opens the OSC transport, subscribes to notifications, creates
// the execution-order groups, and loads synthdefs. With disableAudio set
// a null transport is installed instead and no packets leave the process.
func (e *Engine) Connect(addr string, disableAudio bool) error {
	if e.conn != nil {
		return errors.New("already connected")
	}
	if disableAudio {
		e.conn = nullConn{}
	} else {
		conn, err := newUDPConn(addr, e.monitor)
		if err != nil {
			e.status = StatusError
			return err
		}
		e.conn = conn
	}
	e.status = StatusConnected
	e.statusMisses = 0

	if err := e.conn.SendMessage("/notify", int32(1)); err != nil {
		debug.Log("server", "notify failed: %v", err)
	}
	if err := e.createGroups(); err != nil {
		return err
	}
	if err := e.ensureMasterChain(); err != nil {
		return err
	}
	if e.synthdefDir != "" {
		if err := e.LoadSynthdefs(e.synthdefDir); err != nil {
			// Missing synthdefs are a warning, not a failed connect
			debug.Log("server", "synthdef load: %v", err)
		}
	}
	return nil
}

// Disconnect frees every node we created, resets allocation state, and
// closes the transport. Bus assignments restart from scratch so a
// reconnect with the same snapshot reproduces the same layout.
func (e *Engine) Disconnect() {
	if e.conn == nil {
		return
	}
	e.ReleaseAllVoices()
	for id := range e.nodes {
		_ = e.teardownInstrument(id)
	}
	for _, nid := range e.busNodes {
		_ = e.conn.SendMessage("/n_free", nid)
	}
	if e.limiterNode != 0 {
		_ = e.conn.SendMessage("/n_free", e.limiterNode)
	}
	if e.meterNode != 0 {
		_ = e.conn.SendMessage("/n_free", e.meterNode)
	}
	for _, nid := range e.analysisNodes {
		_ = e.conn.SendMessage("/n_free", nid)
	}
	_ = e.conn.Close()

	e.conn = nil
	e.nodes = make(map[state.InstrumentID]*StripNodes)
	e.sendNodes = make(map[sendKey]int32)
	e.busNodes = make(map[int]int32)
	e.buses.Reset()
	e.voices = NewVoiceAllocator(e.buses)
	e.groupsCreated = false
	e.limiterNode = 0
	e.meterNode = 0
	e.analysisNodes = nil
	e.recording = nil

	if e.process != nil {
		e.status = StatusRunning
	} else {
		e.status = StatusStopped
	}
}

// SetSynthdefDir sets the directory scanned for .scsyndef files at connect
func (e *Engine) SetSynthdefDir(dir string) {
	e.synthdefDir = dir
}

// LoadSynthdefs sends every .scsyndef file in dir to the server via /d_recv
func (e *Engine) LoadSynthdefs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "reading synthdef dir")
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".scsyndef" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return errors.Wrapf(err, "reading %s", entry.Name())
		}
		if err := e.conn.SendMessage("/d_recv", data); err != nil {
			return errors.Wrapf(err, "sending %s", entry.Name())
		}
	}
	return nil
}

// LoadSample loads a sound file into a server buffer and returns the
// buffer number. The server reads the file itself via /b_allocRead.
func (e *Engine) LoadSample(id state.BufferID, path string) (int32, error) {
	if !e.Connected() {
		return 0, errors.New("not connected")
	}
	if bufnum, ok := e.buffers[id]; ok {
		return bufnum, nil
	}
	bufnum := e.nextBufnum
	e.nextBufnum++
	if err := e.conn.SendMessage("/b_allocRead", bufnum, path, int32(0), int32(0)); err != nil {
		return 0, errors.Wrap(err, "loading sample")
	}
	e.buffers[id] = bufnum
	return bufnum, nil
}

// PollStatus sends a periodic /status and tracks missed replies. Call
// once per scheduler iteration; HandleStatusReply clears the miss count.
func (e *Engine) PollStatus(now time.Time) {
	if !e.Connected() {
		return
	}
	if now.Sub(e.lastStatusSent) < statusPollInterval {
		return
	}
	e.lastStatusSent = now
	e.monitor.MarkStatusSent()
	if err := e.conn.SendMessage("/status"); err != nil {
		debug.Log("server", "status poll: %v", err)
		return
	}
	e.statusMisses++
	if e.statusMisses > statusMissLimit && e.status == StatusConnected {
		e.status = StatusUnresponsive
	}
}

// HandleStatusReply notes a live server
func (e *Engine) HandleStatusReply() {
	e.statusMisses = 0
	if e.status == StatusUnresponsive {
		e.status = StatusConnected
	}
}

type recording struct {
	node    int32
	bufnum  int32
	path    string
	started time.Time
}

// recordBufferFrames sizes the disk-streaming ring buffer
const recordBufferFrames = 65536

// StartRecording opens a file on the server for streaming and spawns
// the disk-out node in the record group
func (e *Engine) StartRecording(path string) error {
	if !e.Connected() {
		return errors.New("not connected")
	}
	if e.recording != nil {
		return errors.New("already recording")
	}
	bufnum := e.nextBufnum
	e.nextBufnum++
	if err := e.conn.SendMessage("/b_alloc", bufnum, int32(recordBufferFrames), int32(2)); err != nil {
		return errors.Wrap(err, "allocating record buffer")
	}
	if err := e.conn.SendMessage("/b_write", bufnum, path, "wav", "float",
		int32(0), int32(0), int32(1)); err != nil {
		return errors.Wrap(err, "opening record file")
	}
	node := e.nextNode()
	if err := e.conn.SendMessage("/s_new", "godaw_record", node, addToTail, GroupRecord,
		"bufnum", float32(bufnum), "in", float32(0)); err != nil {
		return errors.Wrap(err, "creating record node")
	}
	e.recording = &recording{node: node, bufnum: bufnum, path: path, started: time.Now()}
	return nil
}

// StopRecording tears down the disk-out chain and returns the file path
func (e *Engine) StopRecording() (string, bool) {
	if e.recording == nil {
		return "", false
	}
	rec := e.recording
	e.recording = nil
	_ = e.conn.SendMessage("/n_free", rec.node)
	_ = e.conn.SendMessage("/b_close", rec.bufnum)
	_ = e.conn.SendMessage("/b_free", rec.bufnum)
	return rec.path, true
}

// IsRecording reports whether a disk recording is active
func (e *Engine) IsRecording() bool {
	return e.recording != nil
}

// RecordingElapsed returns how long the current recording has run
func (e *Engine) RecordingElapsed() time.Duration {
	if e.recording == nil {
		return 0
	}
	return time.Since(e.recording.started)
}
