package wsconn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"

	"github.com/wampd/wampd/internal/idgen"
	"github.com/wampd/wampd/pkg/wampmsg"
)

// ErrClosed is returned by Send/Read/Ping once Close has run.
var ErrClosed = fmt.Errorf("wsconn: connection closed")

// Conn wraps a negotiated WebSocket connection carrying one WAMP session.
// Close is safe to call concurrently with Send; sendMu coordinates them so
// a write never races the socket teardown.
type Conn struct {
	id          uint64
	conn        *ws.Conn
	subprotocol string
	encoding    wampmsg.Encoding
	remoteAddr  string
	connectedAt time.Time

	sent     atomic.Int64
	received atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.RWMutex // coordinates Send/Read/Ping with Close
	closed atomic.Bool
}

// New wraps an already-accepted *ws.Conn. subprotocol must be one already
// validated by NegotiateSubprotocol.
func New(wsConn *ws.Conn, subprotocol, remoteAddr string) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		id:          idgen.New(),
		conn:        wsConn,
		subprotocol: subprotocol,
		encoding:    encodingFor(subprotocol),
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (c *Conn) ID() uint64                 { return c.id }
func (c *Conn) Subprotocol() string        { return c.subprotocol }
func (c *Conn) Encoding() wampmsg.Encoding  { return c.encoding }
func (c *Conn) RemoteAddr() string         { return c.remoteAddr }
func (c *Conn) ConnectedAt() time.Time     { return c.connectedAt }
func (c *Conn) MessagesSent() int64        { return c.sent.Load() }
func (c *Conn) MessagesReceived() int64    { return c.received.Load() }
func (c *Conn) Context() context.Context   { return c.ctx }
func (c *Conn) IsClosed() bool             { return c.closed.Load() }

// wireType picks the WebSocket frame type per encoding: msgpack travels as
// binary, JSON as text.
func (c *Conn) wireType() ws.MessageType {
	if c.encoding == wampmsg.EncodingMsgpack {
		return ws.MessageBinary
	}
	return ws.MessageText
}

// Send writes an already-encoded WAMP message frame.
func (c *Conn) Send(data []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.conn.Write(c.ctx, c.wireType(), data); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// Read blocks for the next frame and returns its raw bytes. Close cancels
// the context to unblock a pending Read, so Read does not take sendMu.
func (c *Conn) Read() ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return nil, err
	}
	c.received.Add(1)
	return data, nil
}

// Ping sends a WebSocket ping frame.
func (c *Conn) Ping(ctx context.Context) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed.Load() {
		return ErrClosed
	}
	return c.conn.Ping(ctx)
}

// Close tears the connection down with the given WAMP close detail. Safe to
// call more than once; only the first call has effect.
func (c *Conn) Close(code ws.StatusCode, reason string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed.Swap(true) {
		return ErrClosed
	}
	c.cancel()
	return c.conn.Close(code, reason)
}
