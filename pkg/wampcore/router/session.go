package router

import (
	"sync"
	"time"

	"github.com/wampd/wampd/pkg/wampcore/realm"
	"github.com/wampd/wampd/pkg/wampmsg"
	"github.com/wampd/wampd/pkg/wsconn"
)

// State is the Connection Handler's lifecycle state.
type State int

const (
	Initializing State = iota
	Connected
	ShuttingDown
	Disconnected
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Connected:
		return "connected"
	case ShuttingDown:
		return "shutting-down"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is one peer's router-side connection: transport handle, realm
// binding, and protocol state. Sends are serialized through sendMu so the
// publish/RPC dispatch loops (running on other sessions' goroutines) never
// interleave a frame with this session's own read loop's replies.
type Session struct {
	id          uint64
	conn        *wsconn.Conn
	realm       *realm.Realm
	realmName   string
	connectedAt time.Time

	mu    sync.Mutex
	state State

	sendMu sync.Mutex
}

func newSession(id uint64, conn *wsconn.Conn) *Session {
	return &Session{
		id:          id,
		conn:        conn,
		connectedAt: time.Now(),
		state:       Initializing,
	}
}

func (s *Session) ID() uint64 { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// send encodes and writes a message using this session's negotiated
// encoding. Safe for concurrent use by the dispatch loops of other sessions
// delivering EVENT/INVOCATION frames.
func (s *Session) send(msg wampmsg.Message) error {
	data, err := wampmsg.Encode(msg, s.conn.Encoding())
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.Send(data)
}

// initiateShutdown moves a Connected session to ShuttingDown and emits
// GOODBYE(system_shutdown). A no-op outside the Connected state.
func (s *Session) initiateShutdown() error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return nil
	}
	s.state = ShuttingDown
	s.mu.Unlock()

	return s.send(wampmsg.Goodbye{Details: map[string]wampmsg.Value{}, Reason: ReasonSystemShutdown})
}
