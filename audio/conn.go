package audio

import (
	"net"
	"time"

	"github.com/chabad360/go-osc/osc"
	"github.com/pkg/errors"

	"go-daw/debug"
)

// ParamValue is one (name, value) pair for an /n_set
type ParamValue struct {
	Name  string
	Value float32
}

// Conn is the engine's transport seam to the DSP server. The real
// implementation speaks OSC over UDP; tests substitute a recorder and
// the disable-audio flag substitutes a null connection.
type Conn interface {
	// SendMessage transmits a single message, fire-and-forget
	SendMessage(addr string, args ...interface{}) error
	// SendBundle transmits messages sharing one absolute NTP timetag
	SendBundle(tt osc.Timetag, msgs ...*osc.Message) error
	// SetParamsBundled emits a single timestamped /n_set for a node
	SetParamsBundled(nodeID int32, tt osc.Timetag, params ...ParamValue) error
	// PollReply returns the next decoded server reply, or false on timeout
	PollReply(timeout time.Duration) (*osc.Message, bool)
	Close() error
}

// udpConn is the production transport: one datagram socket owned by the
// audio thread, plus a reader goroutine that fans monitoring replies
// into the Monitor and queues the rest for PollReply.
type udpConn struct {
	conn    *net.UDPConn
	monitor *Monitor
	replies chan *osc.Message
	done    chan struct{}
}

func newUDPConn(addr string, monitor *Monitor) (*udpConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolving server address")
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, errors.Wrap(err, "dialing server")
	}
	c := &udpConn{
		conn:    conn,
		monitor: monitor,
		replies: make(chan *osc.Message, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *udpConn) SendMessage(addr string, args ...interface{}) error {
	msg := &osc.Message{Address: addr, Arguments: args}
	data, err := msg.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	_, err = c.conn.Write(data)
	return err
}

func (c *udpConn) SendBundle(tt osc.Timetag, msgs ...*osc.Message) error {
	bundle := &osc.Bundle{Timetag: tt}
	for _, m := range msgs {
		bundle.Elements = append(bundle.Elements, m)
	}
	data, err := bundle.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encoding bundle")
	}
	_, err = c.conn.Write(data)
	return err
}

func (c *udpConn) SetParamsBundled(nodeID int32, tt osc.Timetag, params ...ParamValue) error {
	args := make([]interface{}, 0, 1+2*len(params))
	args = append(args, nodeID)
	for _, p := range params {
		args = append(args, p.Name, p.Value)
	}
	return c.SendBundle(tt, &osc.Message{Address: "/n_set", Arguments: args})
}

func (c *udpConn) PollReply(timeout time.Duration) (*osc.Message, bool) {
	if timeout <= 0 {
		select {
		case msg := <-c.replies:
			return msg, true
		default:
			return nil, false
		}
	}
	select {
	case msg := <-c.replies:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (c *udpConn) Close() error {
	close(c.done)
	return c.conn.Close()
}

func (c *udpConn) readLoop() {
	buf := make([]byte, 8192)
	for {
		select {
		case <-c.done:
			return
		default:
		}
		c.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, err := c.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		c.dispatch(buf[:n])
	}
}

// dispatch decodes a received packet and routes its messages. Malformed
// packets are dropped.
func (c *udpConn) dispatch(data []byte) {
	if len(data) == 0 {
		return
	}
	if data[0] == '#' {
		bundle, err := osc.NewBundleFromData(data)
		if err != nil {
			debug.Log("osc", "dropping malformed bundle: %v", err)
			return
		}
		for _, el := range bundle.Elements {
			if msg, ok := el.(*osc.Message); ok {
				c.route(msg)
			}
		}
		return
	}
	msg, err := osc.NewMessageFromData(data)
	if err != nil {
		debug.Log("osc", "dropping malformed reply: %v", err)
		return
	}
	c.route(msg)
}

func (c *udpConn) route(msg *osc.Message) {
	switch msg.Address {
	case "/meter":
		if len(msg.Arguments) >= 6 {
			c.monitor.SetMeter(floatArg(msg.Arguments, 2), floatArg(msg.Arguments, 4))
		}
	case "/spectrum":
		if len(msg.Arguments) >= 2+spectrumBands {
			var bands [spectrumBands]float32
			for i := range bands {
				bands[i] = floatArg(msg.Arguments, 2+i)
			}
			c.monitor.SetSpectrum(bands)
		}
	case "/lufs":
		if len(msg.Arguments) >= 6 {
			c.monitor.SetLufs(
				floatArg(msg.Arguments, 2), floatArg(msg.Arguments, 4),
				floatArg(msg.Arguments, 3), floatArg(msg.Arguments, 5))
		}
	case "/scope":
		if len(msg.Arguments) >= 3 {
			c.monitor.PushScope(floatArg(msg.Arguments, 2))
		}
	case "/status.reply":
		if len(msg.Arguments) >= 6 {
			c.monitor.SetServerCPU(floatArg(msg.Arguments, 5))
		}
		c.monitor.MarkStatusReply()
		c.queueReply(msg)
	default:
		c.queueReply(msg)
	}
}

func (c *udpConn) queueReply(msg *osc.Message) {
	select {
	case c.replies <- msg:
	default:
		// reply queue full; drop rather than block the reader
	}
}

func floatArg(args []interface{}, i int) float32 {
	if i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case float32:
		return v
	case int32:
		return float32(v)
	case float64:
		return float32(v)
	}
	return 0
}

func intArg(args []interface{}, i int) int32 {
	if i >= len(args) {
		return 0
	}
	switch v := args[i].(type) {
	case int32:
		return v
	case float32:
		return int32(v)
	case int64:
		return int32(v)
	}
	return 0
}

// nullConn satisfies Conn without touching the network. Used when the
// disable-audio flag is set: the scheduler still advances so UI timing
// stays testable, but nothing reaches a server.
type nullConn struct{}

func (nullConn) SendMessage(string, ...interface{}) error { return nil }
func (nullConn) SendBundle(osc.Timetag, ...*osc.Message) error {
	return nil
}
func (nullConn) SetParamsBundled(int32, osc.Timetag, ...ParamValue) error {
	return nil
}
func (nullConn) PollReply(time.Duration) (*osc.Message, bool) { return nil, false }
func (nullConn) Close() error                                 { return nil }
