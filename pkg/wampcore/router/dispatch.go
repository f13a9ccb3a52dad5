package router

import (
	"errors"

	"github.com/wampd/wampd/internal/idgen"
	"github.com/wampd/wampd/pkg/metrics"
	"github.com/wampd/wampd/pkg/wampcore/realm"
	"github.com/wampd/wampd/pkg/wampcore/trie"
	"github.com/wampd/wampd/pkg/wampmsg"
)

// dispatch handles one decoded frame from a Connected session. It returns
// true when the session has reached Disconnected and the read loop should
// stop.
func (r *Router) dispatch(session *Session, msg wampmsg.Message) bool {
	switch m := msg.(type) {
	case wampmsg.Subscribe:
		r.handleSubscribe(session, m)
	case wampmsg.Unsubscribe:
		r.handleUnsubscribe(session, m)
	case wampmsg.Publish:
		r.handlePublish(session, m)
	case wampmsg.Register:
		r.handleRegister(session, m)
	case wampmsg.Unregister:
		r.handleUnregister(session, m)
	case wampmsg.Call:
		r.handleCall(session, m)
	case wampmsg.Yield:
		r.handleYield(session, m)
	case wampmsg.Error:
		r.handleError(session, m)
	case wampmsg.Goodbye:
		return r.handleGoodbye(session, m)
	default:
		r.logger.Warn("invalid message type while connected", "session", session.id, "tag", msg.Tag(), "error", ErrInvalidMessageType)
		_ = session.send(wampmsg.Abort{Details: map[string]wampmsg.Value{}, Reason: ReasonInvalidMessageType})
		return true
	}
	return false
}

func (r *Router) handleSubscribe(session *Session, m wampmsg.Subscribe) {
	id, err := session.realm.Subs.Subscribe(m.Topic, matchPolicy(m.Options), session.id)
	if err != nil {
		r.sendError(session, wampmsg.TagSubscribe, m.Request, reasonFor(err))
		return
	}
	if err := session.send(wampmsg.Subscribed{Request: m.Request, Subscription: id}); err != nil {
		r.logger.Warn("send subscribed failed", "session", session.id, "error", err)
	}
}

func (r *Router) handleUnsubscribe(session *Session, m wampmsg.Unsubscribe) {
	err := session.realm.Subs.Unsubscribe(m.Subscription, session.id)
	if err != nil {
		r.sendError(session, wampmsg.TagUnsubscribe, m.Request, reasonFor(err))
		return
	}
	if err := session.send(wampmsg.Unsubscribed{Request: m.Request}); err != nil {
		r.logger.Warn("send unsubscribed failed", "session", session.id, "error", err)
	}
}

// handlePublish dispatches EVENT to every matching subscriber other than
// the publisher, drawing one publication ID shared across all of them and
// echoed back in PUBLISHED.
func (r *Router) handlePublish(session *Session, m wampmsg.Publish) {
	matches := session.realm.Subs.Filter(m.Topic)
	publication := idgen.New()

	for _, entry := range matches {
		if entry.Owner == session.id {
			continue
		}
		recipient, ok := r.lookupSession(entry.Owner)
		if !ok {
			continue
		}
		details := map[string]wampmsg.Value{}
		if entry.Policy != trie.Strict {
			details["topic"] = wampmsg.Str(m.Topic)
		}
		event := wampmsg.Event{
			Subscription: entry.ID,
			Publication:  publication,
			Details:      details,
		}
		event.Args = m.Args
		event.Kwargs = m.Kwargs
		if err := recipient.send(event); err != nil {
			r.logger.Warn("event delivery failed", "session", recipient.id, "error", err)
		}
		if metrics.MessagesRoutedTotal != nil {
			if vec, err := metrics.MessagesRoutedTotal.WithLabels("event"); err == nil {
				_ = vec.Inc()
			}
		}
	}

	if metrics.PublicationsTotal != nil {
		if vec, err := metrics.PublicationsTotal.WithLabels(session.realmName); err == nil {
			_ = vec.Inc()
		}
	}

	r.logger.Debug("publish dispatched", "session", session.id, "topic", m.Topic, "publication", publication, "recipients", len(matches))

	if acknowledge(m.Options) {
		if err := session.send(wampmsg.Published{Request: m.Request, Publication: publication}); err != nil {
			r.logger.Warn("send published failed", "session", session.id, "error", err)
		}
	}
}

func (r *Router) handleRegister(session *Session, m wampmsg.Register) {
	id, err := session.realm.Regs.Register(m.Procedure, matchPolicy(m.Options), invocationPolicy(m.Options), session.id)
	if err != nil {
		r.sendError(session, wampmsg.TagRegister, m.Request, reasonFor(err))
		return
	}
	if err := session.send(wampmsg.Registered{Request: m.Request, Registration: id}); err != nil {
		r.logger.Warn("send registered failed", "session", session.id, "error", err)
	}
}

func (r *Router) handleUnregister(session *Session, m wampmsg.Unregister) {
	err := session.realm.Regs.Unregister(m.Registration, session.id)
	if err != nil {
		r.sendError(session, wampmsg.TagUnregister, m.Request, reasonFor(err))
		return
	}
	if err := session.send(wampmsg.Unregistered{Request: m.Request}); err != nil {
		r.logger.Warn("send unregistered failed", "session", session.id, "error", err)
	}
}

// handleCall picks one registrant per the registration's invocation policy
// and forwards an INVOCATION, recording the pending entry keyed by the
// fresh invocation ID so the eventual YIELD/ERROR can be routed back.
func (r *Router) handleCall(session *Session, m wampmsg.Call) {
	matches := session.realm.Regs.Lookup(m.Procedure)
	entry, ok := session.realm.Regs.Pick(matches)
	if !ok {
		r.sendError(session, wampmsg.TagCall, m.Request, ReasonNoSuchProcedure)
		return
	}
	callee, ok := r.lookupSession(entry.Owner)
	if !ok {
		r.sendError(session, wampmsg.TagCall, m.Request, ReasonNoEligibleCallee)
		return
	}

	invocation := session.realm.Regs.NewInvocation(m.Request, session.id)
	inv := wampmsg.Invocation{
		Request:      invocation,
		Registration: entry.ID,
		Details:      map[string]wampmsg.Value{},
	}
	if entry.Policy != trie.Strict {
		inv.Details["procedure"] = wampmsg.Str(m.Procedure)
	}
	inv.Args = m.Args
	inv.Kwargs = m.Kwargs

	r.logger.Debug("call dispatched", "session", session.id, "procedure", m.Procedure, "invocation", invocation, "callee", callee.id)
	if metrics.CallsTotal != nil {
		if vec, err := metrics.CallsTotal.WithLabels(session.realmName); err == nil {
			_ = vec.Inc()
		}
	}
	if metrics.MessagesRoutedTotal != nil {
		if vec, err := metrics.MessagesRoutedTotal.WithLabels("invocation"); err == nil {
			_ = vec.Inc()
		}
	}

	if err := callee.send(inv); err != nil {
		r.logger.Warn("invocation delivery failed", "session", callee.id, "error", err)
		r.sendError(session, wampmsg.TagCall, m.Request, ReasonNetworkFailure)
	}
}

func (r *Router) handleYield(session *Session, m wampmsg.Yield) {
	pending, ok := session.realm.Regs.ResolveInvocation(m.Request)
	if !ok {
		r.logger.Warn("yield for unknown invocation dropped", "session", session.id, "invocation", m.Request)
		return
	}
	caller, ok := r.lookupSession(pending.Caller)
	if !ok {
		return
	}
	result := wampmsg.Result{Request: pending.CallRequest, Details: map[string]wampmsg.Value{}}
	result.Args = m.Args
	result.Kwargs = m.Kwargs
	if err := caller.send(result); err != nil {
		r.logger.Warn("result delivery failed", "session", caller.id, "error", err)
	}
}

// handleError routes an ERROR reply to an INVOCATION (request type
// TagInvocation) back to the original caller as an ERROR for the original
// CALL request.
func (r *Router) handleError(session *Session, m wampmsg.Error) {
	if m.RequestType != wampmsg.TagInvocation {
		r.logger.Warn("unsolicited error dropped", "session", session.id, "request_type", m.RequestType)
		return
	}
	pending, ok := session.realm.Regs.ResolveInvocation(m.Request)
	if !ok {
		return
	}
	caller, ok := r.lookupSession(pending.Caller)
	if !ok {
		return
	}
	errMsg := wampmsg.Error{RequestType: wampmsg.TagCall, Request: pending.CallRequest, Details: map[string]wampmsg.Value{}, Reason: m.Reason}
	errMsg.Args = m.Args
	errMsg.Kwargs = m.Kwargs
	if err := caller.send(errMsg); err != nil {
		r.logger.Warn("error delivery failed", "session", caller.id, "error", err)
	}
}

// handleGoodbye completes the transitions Connected->Disconnected and
// ShuttingDown->Disconnected, replying in the former case only.
func (r *Router) handleGoodbye(session *Session, m wampmsg.Goodbye) bool {
	state := session.State()
	if state == Connected {
		_ = session.send(wampmsg.Goodbye{Details: map[string]wampmsg.Value{}, Reason: ReasonGoodbyeAndOut})
	}
	session.setState(Disconnected)
	r.logger.Debug("goodbye received", "session", session.id, "reason", m.Reason, "prior_state", state)
	return true
}

func (r *Router) sendError(session *Session, requestType wampmsg.Tag, request uint64, reason string) {
	if metrics.ErrorsTotal != nil {
		if vec, err := metrics.ErrorsTotal.WithLabels(reason); err == nil {
			_ = vec.Inc()
		}
	}
	err := session.send(wampmsg.Error{RequestType: requestType, Request: request, Details: map[string]wampmsg.Value{}, Reason: reason})
	if err != nil {
		r.logger.Warn("send error frame failed", "session", session.id, "error", err)
	}
}

// reasonFor maps a realm sentinel error to its wire reason URI.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, realm.ErrNoSuchSubscription):
		return ReasonNoSuchSubscription
	case errors.Is(err, realm.ErrNoSuchRegistration):
		return ReasonNoSuchRegistration
	case errors.Is(err, realm.ErrNoSuchProcedure):
		return ReasonNoSuchProcedure
	case errors.Is(err, realm.ErrProcedureAlreadyExists):
		return ReasonProcedureAlreadyExists
	case errors.Is(err, realm.ErrInvalidURI):
		return ReasonInvalidURI
	default:
		return ReasonInvalidArgument
	}
}
