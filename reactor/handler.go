// File: reactor/handler.go
// Author: momentics <momentics@gmail.com>
//
// Completion callbacks consumed by the protocol layer.

package reactor

// CloseReason tells OnClose why a connection was destroyed.
type CloseReason uint8

const (
	ClosePeer     CloseReason = iota + 1 // orderly shutdown or hangup from the peer
	CloseError                           // read/write/poller error
	CloseTimeout                         // idle longer than Config.IdleTimeout
	CloseShutdown                        // reactor destroyed with the connection open
)

func (r CloseReason) String() string {
	switch r {
	case ClosePeer:
		return "peer-closed"
	case CloseError:
		return "error"
	case CloseTimeout:
		return "timeout"
	case CloseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Handler is attached to a Conn at admission. All methods run on the
// connection's owning shard and must not block.
type Handler interface {
	// OnOpen runs once the socket is registered with the shard's poller.
	OnOpen(c *Conn)
	// OnData receives every unconsumed byte of the read buffer and returns how
	// many were consumed. Replies are staged with c.Stage.
	OnData(c *Conn, in []byte) (consumed int)
	// OnFlushed runs after the whole staged write buffer reached the socket.
	OnFlushed(c *Conn, n int)
	// OnClose runs after the socket is closed; err is set for CloseError.
	OnClose(c *Conn, reason CloseReason, err error)
}

// HandlerFuncs adapts optional functions to Handler. Nil fields are no-ops;
// a nil Data consumes nothing.
type HandlerFuncs struct {
	Open    func(c *Conn)
	Data    func(c *Conn, in []byte) int
	Flushed func(c *Conn, n int)
	Close   func(c *Conn, reason CloseReason, err error)
}

func (h HandlerFuncs) OnOpen(c *Conn) {
	if h.Open != nil {
		h.Open(c)
	}
}

func (h HandlerFuncs) OnData(c *Conn, in []byte) int {
	if h.Data != nil {
		return h.Data(c, in)
	}
	return 0
}

func (h HandlerFuncs) OnFlushed(c *Conn, n int) {
	if h.Flushed != nil {
		h.Flushed(c, n)
	}
}

func (h HandlerFuncs) OnClose(c *Conn, reason CloseReason, err error) {
	if h.Close != nil {
		h.Close(c, reason, err)
	}
}

// EchoHandler writes back whatever it reads. New input is staged only while
// the write buffer is empty; otherwise it waits in the read buffer until the
// previous reply is flushed.
type EchoHandler struct{}

func (EchoHandler) OnOpen(*Conn) {}

func (EchoHandler) OnData(c *Conn, in []byte) int {
	if c.Pending() > 0 {
		return 0
	}
	return c.Stage(in)
}

func (EchoHandler) OnFlushed(*Conn, int) {}

func (EchoHandler) OnClose(*Conn, CloseReason, error) {}
