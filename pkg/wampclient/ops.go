package wampclient

import (
	"github.com/wampd/wampd/pkg/wampcore/trie"
	"github.com/wampd/wampd/pkg/wampmsg"
)

// Subscription is the handle Subscribe returns; pass it to Unsubscribe.
type Subscription struct{ ID uint64 }

// Registration is the handle Register returns; pass it to Unregister.
type Registration struct{ ID uint64 }

func matchOptions(policy trie.MatchingPolicy) map[string]wampmsg.Value {
	opts := map[string]wampmsg.Value{}
	switch policy {
	case trie.Prefix:
		opts["match"] = wampmsg.Str("prefix")
	case trie.Wildcard:
		opts["match"] = wampmsg.Str("wildcard")
	}
	return opts
}

// Subscribe asks the router for standing interest in pattern under policy.
// handler is invoked on the receive task for every matching EVENT.
func (s *Session) Subscribe(pattern string, policy trie.MatchingPolicy, handler SubscribeHandler) (*Subscription, error) {
	reqID := s.nextRequestID()
	ch := s.pending.register(reqID)
	if err := s.send(wampmsg.Subscribe{Request: reqID, Options: matchOptions(policy), Topic: pattern}); err != nil {
		s.pending.abandon(reqID)
		return nil, err
	}
	reply := <-ch
	if reply.err != nil {
		return nil, reply.err
	}
	subscribed := reply.msg.(wampmsg.Subscribed)

	s.subsMu.Lock()
	s.subs[subscribed.Subscription] = handler
	s.subsMu.Unlock()

	return &Subscription{ID: subscribed.Subscription}, nil
}

// Unsubscribe withdraws a prior Subscribe.
func (s *Session) Unsubscribe(sub *Subscription) error {
	reqID := s.nextRequestID()
	ch := s.pending.register(reqID)
	if err := s.send(wampmsg.Unsubscribe{Request: reqID, Subscription: sub.ID}); err != nil {
		s.pending.abandon(reqID)
		return err
	}
	reply := <-ch
	if reply.err != nil {
		return reply.err
	}

	s.subsMu.Lock()
	delete(s.subs, sub.ID)
	s.subsMu.Unlock()
	return nil
}

// Publish sends an event to every subscriber of topic. When ack is false
// the publish is fire-and-forget and the returned publication ID is zero.
func (s *Session) Publish(topic string, args []interface{}, kwargs map[string]interface{}, ack bool) (uint64, error) {
	options := map[string]wampmsg.Value{}
	if ack {
		options["acknowledge"] = wampmsg.Bool(true)
	}

	msg := wampmsg.Publish{Request: s.nextRequestID(), Options: options, Topic: topic}
	msg.Args = wampmsg.ListFromNative(args)
	msg.Kwargs = wampmsg.DictFromNative(kwargs)

	if !ack {
		return 0, s.send(msg)
	}

	ch := s.pending.register(msg.Request)
	if err := s.send(msg); err != nil {
		s.pending.abandon(msg.Request)
		return 0, err
	}
	reply := <-ch
	if reply.err != nil {
		return 0, reply.err
	}
	published := reply.msg.(wampmsg.Published)
	return published.Publication, nil
}

// Register offers handler as a callee for pattern under matching and
// invocation policy.
func (s *Session) Register(pattern string, matching trie.MatchingPolicy, invocation InvocationPolicy, handler RegisterHandler) (*Registration, error) {
	options := matchOptions(matching)
	if invocation != Single {
		options["invoke"] = wampmsg.Str(invocation.wireValue())
	}

	reqID := s.nextRequestID()
	ch := s.pending.register(reqID)
	if err := s.send(wampmsg.Register{Request: reqID, Options: options, Procedure: pattern}); err != nil {
		s.pending.abandon(reqID)
		return nil, err
	}
	reply := <-ch
	if reply.err != nil {
		return nil, reply.err
	}
	registered := reply.msg.(wampmsg.Registered)

	s.regsMu.Lock()
	s.regs[registered.Registration] = handler
	s.regsMu.Unlock()

	return &Registration{ID: registered.Registration}, nil
}

// Unregister withdraws a prior Register.
func (s *Session) Unregister(reg *Registration) error {
	reqID := s.nextRequestID()
	ch := s.pending.register(reqID)
	if err := s.send(wampmsg.Unregister{Request: reqID, Registration: reg.ID}); err != nil {
		s.pending.abandon(reqID)
		return err
	}
	reply := <-ch
	if reply.err != nil {
		return reply.err
	}

	s.regsMu.Lock()
	delete(s.regs, reg.ID)
	s.regsMu.Unlock()
	return nil
}

// Call invokes procedure and blocks for its result. A *RemoteError is
// returned when the callee (or the dealer) replies with ERROR.
func (s *Session) Call(procedure string, args []interface{}, kwargs map[string]interface{}) ([]interface{}, map[string]interface{}, error) {
	msg := wampmsg.Call{Request: s.nextRequestID(), Options: map[string]wampmsg.Value{}, Procedure: procedure}
	msg.Args = wampmsg.ListFromNative(args)
	msg.Kwargs = wampmsg.DictFromNative(kwargs)

	ch := s.pending.register(msg.Request)
	if err := s.send(msg); err != nil {
		s.pending.abandon(msg.Request)
		return nil, nil, err
	}
	reply := <-ch
	if reply.err != nil {
		return nil, nil, reply.err
	}
	result := reply.msg.(wampmsg.Result)
	return wampmsg.ValueList(result.Args), wampmsg.ValueDict(result.Kwargs), nil
}
