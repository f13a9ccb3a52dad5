// Package wampclient is the peer-side counterpart to pkg/wampcore/router: a
// single-transport session that performs the WAMP handshake and exposes
// publish/subscribe/call/register operations, correlating replies via
// request-id keyed completions resolved by a dedicated receive task.
package wampclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	ws "github.com/coder/websocket"

	"github.com/wampd/wampd/pkg/logging"
	"github.com/wampd/wampd/pkg/wampmsg"
	"github.com/wampd/wampd/pkg/wsconn"
)

// SubscribeHandler is invoked on the receive task for every EVENT matching
// a subscription. It must not block; offload work to another goroutine.
type SubscribeHandler func(args []interface{}, kwargs map[string]interface{})

// RegisterHandler is invoked on the receive task for every INVOCATION
// matching a registration. Its return value becomes the YIELD sent back,
// or an ERROR if it returns a non-nil error.
type RegisterHandler func(args []interface{}, kwargs map[string]interface{}) ([]interface{}, map[string]interface{}, error)

// Session owns one WebSocket connection and the WAMP handshake performed
// over it. Each operation blocks its caller until the correlated reply
// arrives and then returns the result directly; no completion handle is
// returned. A dedicated goroutine reads frames and resolves the pending
// requests independently.
type Session struct {
	conn      *wsconn.Conn
	sessionID uint64
	logger    *slog.Logger

	reqID atomic.Uint64

	pending *pendingTable

	subsMu sync.RWMutex
	subs   map[uint64]SubscribeHandler

	regsMu sync.RWMutex
	regs   map[uint64]RegisterHandler

	errs chan *wampmsg.Error

	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// Connect dials url, negotiates a WAMP subprotocol, and performs the
// handshake against realmName. It blocks until WELCOME or ABORT arrives;
// once it returns successfully the receive task is already running.
func Connect(ctx context.Context, url, realmName string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	conn, err := wsconn.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("wampclient: dial: %w", err)
	}

	s := &Session{
		conn:         conn,
		logger:       logger,
		pending:      newPendingTable(),
		subs:         map[uint64]SubscribeHandler{},
		regs:         map[uint64]RegisterHandler{},
		errs:         make(chan *wampmsg.Error, 32),
		shutdownDone: make(chan struct{}),
	}

	if err := s.handshake(realmName); err != nil {
		_ = conn.Close(ws.StatusProtocolError, "handshake failed")
		return nil, err
	}

	go s.recvLoop()
	return s, nil
}

func (s *Session) handshake(realmName string) error {
	if err := s.send(wampmsg.Hello{Realm: realmName, Details: map[string]wampmsg.Value{}}); err != nil {
		return err
	}
	data, err := s.conn.Read()
	if err != nil {
		return err
	}
	msg, err := wampmsg.Decode(data, s.conn.Encoding())
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case wampmsg.Welcome:
		s.sessionID = m.Session
		return nil
	case wampmsg.Abort:
		return &RemoteError{Reason: m.Reason}
	default:
		return ErrHandshakeRejected
	}
}

// SessionID returns the router-assigned session ID, valid after Connect
// succeeds.
func (s *Session) SessionID() uint64 { return s.sessionID }

// Errors returns the channel of ERROR frames that arrived without a
// matching pending request: late replies, duplicates, or router-initiated
// errors. Never closed except when the transport terminates.
func (s *Session) Errors() <-chan *wampmsg.Error { return s.errs }

func (s *Session) nextRequestID() uint64 { return s.reqID.Add(1) }

func (s *Session) send(msg wampmsg.Message) error {
	data, err := wampmsg.Encode(msg, s.conn.Encoding())
	if err != nil {
		return err
	}
	return s.conn.Send(data)
}

// Shutdown sends GOODBYE(system_shutdown) and blocks until the router's
// GOODBYE arrives or ctx is done. If the transport closes before the
// router's GOODBYE arrives, Shutdown returns only when ctx is done.
func (s *Session) Shutdown(ctx context.Context) error {
	var err error
	started := false
	s.shutdownOnce.Do(func() {
		started = true
		err = s.send(wampmsg.Goodbye{Details: map[string]wampmsg.Value{}, Reason: "wamp.error.system_shutdown"})
	})
	if !started {
		return ErrAlreadyShutdown
	}
	if err != nil {
		return err
	}
	select {
	case <-s.shutdownDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recvLoop is the dedicated receive task: it owns all reads off the
// transport and is the only goroutine that resolves pending completions,
// dispatches event/invocation callbacks, or pushes to the errors channel.
func (s *Session) recvLoop() {
	defer close(s.errs)
	for {
		data, err := s.conn.Read()
		if err != nil {
			s.pending.terminateAll(ErrTransportClosed)
			return
		}
		msg, err := wampmsg.Decode(data, s.conn.Encoding())
		if err != nil {
			s.logger.Warn("wampclient: decode failure, closing session", "error", err)
			s.pending.terminateAll(err)
			return
		}

		switch m := msg.(type) {
		case wampmsg.Subscribed:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Unsubscribed:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Published:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Registered:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Unregistered:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Result:
			s.pending.resolve(m.Request, pendingReply{msg: m})
		case wampmsg.Error:
			remote := &RemoteError{Reason: m.Reason, Args: wampmsg.ValueList(m.Args), Kwargs: wampmsg.ValueDict(m.Kwargs)}
			if !s.pending.resolve(m.Request, pendingReply{err: remote}) {
				mCopy := m
				select {
				case s.errs <- &mCopy:
				default:
					s.logger.Warn("wampclient: unsolicited error channel full, dropping", "reason", m.Reason)
				}
			}
		case wampmsg.Event:
			s.dispatchEvent(m)
		case wampmsg.Invocation:
			s.dispatchInvocation(m)
		case wampmsg.Goodbye:
			s.shutdownOnce.Do(func() {})
			close(s.shutdownDone)
			_ = s.conn.Close(ws.StatusNormalClosure, "")
			return
		default:
			s.logger.Warn("wampclient: unexpected message on receive task", "tag", msg.Tag())
		}
	}
}

func (s *Session) dispatchEvent(m wampmsg.Event) {
	s.subsMu.RLock()
	handler, ok := s.subs[m.Subscription]
	s.subsMu.RUnlock()
	if !ok {
		return
	}
	handler(wampmsg.ValueList(m.Args), wampmsg.ValueDict(m.Kwargs))
}

func (s *Session) dispatchInvocation(m wampmsg.Invocation) {
	s.regsMu.RLock()
	handler, ok := s.regs[m.Registration]
	s.regsMu.RUnlock()
	if !ok {
		_ = s.send(wampmsg.Error{RequestType: wampmsg.TagInvocation, Request: m.Request, Details: map[string]wampmsg.Value{}, Reason: "wamp.error.no_such_registration"})
		return
	}

	args, kwargs, err := handler(wampmsg.ValueList(m.Args), wampmsg.ValueDict(m.Kwargs))
	if err != nil {
		reason := "wamp.error.invalid_argument"
		if re, ok := err.(*RemoteError); ok {
			reason = re.Reason
		}
		_ = s.send(wampmsg.Error{RequestType: wampmsg.TagInvocation, Request: m.Request, Details: map[string]wampmsg.Value{}, Reason: reason})
		return
	}

	yield := wampmsg.Yield{Request: m.Request, Options: map[string]wampmsg.Value{}}
	yield.Args = wampmsg.ListFromNative(args)
	yield.Kwargs = wampmsg.DictFromNative(kwargs)
	if err := s.send(yield); err != nil {
		s.logger.Warn("wampclient: yield send failed", "error", err)
	}
}
