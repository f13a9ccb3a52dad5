package wampclient

import (
	"sync"

	"github.com/wampd/wampd/pkg/wampmsg"
)

// pendingReply is what the receive task hands back to a blocked caller:
// either the correlated reply message, or an error (transport failure, or
// a RemoteError translated from an ERROR frame).
type pendingReply struct {
	msg wampmsg.Message
	err error
}

// pendingTable is the one mapping per reply kind the design notes call for,
// collapsed into a single map since request IDs are never reused while an
// entry is live (they're drawn from one monotonically increasing counter).
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint64]chan pendingReply
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: map[uint64]chan pendingReply{}}
}

// register allocates the completion channel for requestID. Must be called
// before the request is sent, so a reply racing the send is never missed.
func (t *pendingTable) register(requestID uint64) chan pendingReply {
	ch := make(chan pendingReply, 1)
	t.mu.Lock()
	t.entries[requestID] = ch
	t.mu.Unlock()
	return ch
}

// resolve delivers a reply to the entry for requestID, if still pending.
// Reports false when no entry exists, so the caller can route an
// unmatched ERROR to the unsolicited-error channel instead.
func (t *pendingTable) resolve(requestID uint64, reply pendingReply) bool {
	t.mu.Lock()
	ch, ok := t.entries[requestID]
	if ok {
		delete(t.entries, requestID)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	ch <- reply
	return true
}

// abandon removes requestID without delivering anything, used when sending
// the request fails so no reply will ever resolve the entry.
func (t *pendingTable) abandon(requestID uint64) {
	t.mu.Lock()
	delete(t.entries, requestID)
	t.mu.Unlock()
}

// terminateAll delivers err to every still-pending entry, used when the
// transport closes.
func (t *pendingTable) terminateAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = map[uint64]chan pendingReply{}
	t.mu.Unlock()
	for _, ch := range entries {
		ch <- pendingReply{err: err}
	}
}
