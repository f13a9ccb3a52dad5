// Package router implements the router-side Connection Handler: the
// per-session protocol state machine that turns decoded WAMP frames into
// realm broker/dealer operations and back into outbound frames.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	ws "github.com/coder/websocket"

	"github.com/wampd/wampd/internal/idgen"
	"github.com/wampd/wampd/pkg/logging"
	"github.com/wampd/wampd/pkg/metrics"
	"github.com/wampd/wampd/pkg/wampcore/realm"
	"github.com/wampd/wampd/pkg/wampmsg"
	"github.com/wampd/wampd/pkg/wsconn"
)

// Router owns the realm table and every connected session. It accepts
// upgraded WebSocket connections and drives each one's state machine on its
// own goroutine.
type Router struct {
	realms *realm.Table
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[uint64]*Session
}

func New(realms *realm.Table, logger *slog.Logger) *Router {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Router{
		realms:   realms,
		logger:   logger,
		sessions: map[uint64]*Session{},
	}
}

// ServeHTTP upgrades the request to a WebSocket connection negotiated for a
// WAMP subprotocol, then runs that session's lifecycle to completion on a
// new goroutine.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := wsconn.Accept(w, req)
	if err != nil {
		r.logger.Warn("wamp upgrade rejected", "error", err, "remote_addr", req.RemoteAddr)
		return
	}
	go r.serve(conn)
}

// Shutdown initiates a graceful GOODBYE handshake with every connected
// session. It does not wait for the handshake to complete.
func (r *Router) Shutdown() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if err := s.initiateShutdown(); err != nil {
			r.logger.Warn("shutdown goodbye failed", "session", s.id, "error", err)
		}
	}
}

// SessionCount reports the number of sessions currently tracked, regardless
// of state.
func (r *Router) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Router) addSession(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

func (r *Router) removeSession(id uint64) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *Router) lookupSession(id uint64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// serve runs one connection's full lifecycle: handshake, then the Connected
// message loop, then teardown. It owns conn and closes it on every exit path.
func (r *Router) serve(conn *wsconn.Conn) {
	session := newSession(idgen.New(), conn)

	ream, abortReason, err := r.handshake(session)
	if err != nil {
		r.logger.Warn("wamp handshake failed", "session", session.id, "error", err, "reason", abortReason)
		_ = session.send(wampmsg.Abort{Details: map[string]wampmsg.Value{}, Reason: abortReason})
		_ = conn.Close(ws.StatusProtocolError, abortReason)
		return
	}

	session.realm = ream
	session.realmName = ream.Name
	ream.Join(session.id)
	r.addSession(session)
	r.logger.Info("session connected", "session", session.id, "realm", ream.Name, "remote_addr", conn.RemoteAddr())
	if metrics.SessionsTotal != nil {
		_ = metrics.SessionsTotal.Inc()
	}
	if metrics.ActiveSessions != nil {
		if vec, err := metrics.ActiveSessions.WithLabels(ream.Name); err == nil {
			vec.Inc()
		}
	}

	r.loop(session)

	session.setState(Disconnected)
	ream.Leave(session.id)
	r.removeSession(session.id)
	_ = conn.Close(ws.StatusNormalClosure, "")
	r.logger.Info("session disconnected", "session", session.id, "realm", ream.Name)
	if metrics.ActiveSessions != nil {
		if vec, err := metrics.ActiveSessions.WithLabels(ream.Name); err == nil {
			vec.Dec()
		}
	}
}

// handshake blocks for the first frame, which must be a valid HELLO for a
// known realm; anything else aborts the connection before it ever reaches
// Connected.
func (r *Router) handshake(session *Session) (*realm.Realm, string, error) {
	data, err := session.conn.Read()
	if err != nil {
		return nil, ReasonNetworkFailure, err
	}
	msg, err := wampmsg.Decode(data, session.conn.Encoding())
	if err != nil {
		return nil, ReasonInvalidURI, err
	}
	hello, ok := msg.(wampmsg.Hello)
	if !ok {
		return nil, ReasonNotAuthorized, ErrHandshakeRejected
	}
	ream, err := r.realms.Get(hello.Realm)
	if err != nil {
		return nil, ReasonNoSuchRealm, err
	}

	session.setState(Connected)
	if err := session.send(wampmsg.Welcome{Session: session.id, Details: map[string]wampmsg.Value{}}); err != nil {
		return nil, ReasonNetworkFailure, err
	}
	return ream, "", nil
}

// loop reads frames until the transport closes or the session reaches
// Disconnected via a GOODBYE exchange.
func (r *Router) loop(session *Session) {
	for {
		data, err := session.conn.Read()
		if err != nil {
			return
		}
		msg, err := wampmsg.Decode(data, session.conn.Encoding())
		if err != nil {
			r.logger.Warn("decode failure, terminating session", "session", session.id, "error", err)
			return
		}

		done := r.dispatch(session, msg)
		if done {
			return
		}
	}
}
