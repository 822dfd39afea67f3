package audio

import (
	"time"

	"github.com/chabad360/go-osc/osc"
)

// recordedMsg is one message captured by the recorder, with the bundle
// timetag it was sent under (0 for bare messages)
type recordedMsg struct {
	Addr    string
	Args    []interface{}
	Timetag osc.Timetag
}

// recorder is a Conn that captures all traffic for assertions
type recorder struct {
	msgs    []recordedMsg
	bundles [][]recordedMsg
}

func (r *recorder) SendMessage(addr string, args ...interface{}) error {
	r.msgs = append(r.msgs, recordedMsg{Addr: addr, Args: args})
	return nil
}

func (r *recorder) SendBundle(tt osc.Timetag, msgs ...*osc.Message) error {
	var group []recordedMsg
	for _, m := range msgs {
		rm := recordedMsg{Addr: m.Address, Args: m.Arguments, Timetag: tt}
		r.msgs = append(r.msgs, rm)
		group = append(group, rm)
	}
	r.bundles = append(r.bundles, group)
	return nil
}

func (r *recorder) SetParamsBundled(nodeID int32, tt osc.Timetag, params ...ParamValue) error {
	args := []interface{}{nodeID}
	for _, p := range params {
		args = append(args, p.Name, p.Value)
	}
	return r.SendBundle(tt, &osc.Message{Address: "/n_set", Arguments: args})
}

func (r *recorder) PollReply(time.Duration) (*osc.Message, bool) { return nil, false }

func (r *recorder) Close() error { return nil }

func (r *recorder) clear() {
	r.msgs = nil
	r.bundles = nil
}

func (r *recorder) count(addr string) int {
	n := 0
	for _, m := range r.msgs {
		if m.Addr == addr {
			n++
		}
	}
	return n
}

func (r *recorder) byAddr(addr string) []recordedMsg {
	var out []recordedMsg
	for _, m := range r.msgs {
		if m.Addr == addr {
			out = append(out, m)
		}
	}
	return out
}

// paramValue extracts a named float param from /s_new or /n_set args
func (m recordedMsg) paramValue(name string) (float32, bool) {
	for i := 0; i < len(m.Args)-1; i++ {
		if s, ok := m.Args[i].(string); ok && s == name {
			if v, ok := m.Args[i+1].(float32); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// nodeArg returns the first argument as a node id
func (m recordedMsg) nodeArg() int32 {
	if len(m.Args) == 0 {
		return 0
	}
	if v, ok := m.Args[0].(int32); ok {
		return v
	}
	return 0
}

// newTestEngine returns a connected engine backed by a recorder
func newTestEngine() (*Engine, *recorder) {
	e := NewEngine(NewMonitor())
	rec := &recorder{}
	e.conn = rec
	e.status = StatusConnected
	return e, rec
}
