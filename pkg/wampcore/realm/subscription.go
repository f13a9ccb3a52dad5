package realm

import (
	"sync"

	"github.com/wampd/wampd/pkg/wampcore/trie"
)

// SubscriptionManager assigns stable subscription IDs on top of the pattern
// trie and remembers enough about each one (pattern, bucket kind) that a
// bare ID is sufficient to unsubscribe later.
type SubscriptionManager struct {
	mu      sync.RWMutex
	trie    *trie.Trie
	byOwner map[uint64]map[uint64]subRecord // owner session -> subscription id -> record
}

type subRecord struct {
	pattern  string
	isPrefix bool
}

func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		trie:    trie.New(),
		byOwner: map[uint64]map[uint64]subRecord{},
	}
}

// Subscribe inserts pattern into the trie under policy, owned by session,
// and returns the bucket ID the caller should remember for Unsubscribe.
func (m *SubscriptionManager) Subscribe(pattern string, policy trie.MatchingPolicy, session uint64) (uint64, error) {
	id, err := m.trie.Insert(pattern, session, policy)
	if err != nil {
		return 0, ErrInvalidURI
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	owned, ok := m.byOwner[session]
	if !ok {
		owned = map[uint64]subRecord{}
		m.byOwner[session] = owned
	}
	owned[id] = subRecord{pattern: pattern, isPrefix: policy == trie.Prefix}
	return id, nil
}

// Unsubscribe removes session's ownership of subscription id.
func (m *SubscriptionManager) Unsubscribe(id uint64, session uint64) error {
	m.mu.Lock()
	owned, ok := m.byOwner[session]
	if !ok {
		m.mu.Unlock()
		return ErrNoSuchSubscription
	}
	rec, ok := owned[id]
	if !ok {
		m.mu.Unlock()
		return ErrNoSuchSubscription
	}
	delete(owned, id)
	if len(owned) == 0 {
		delete(m.byOwner, session)
	}
	m.mu.Unlock()

	if _, err := m.trie.Remove(rec.pattern, session, rec.isPrefix); err != nil {
		return ErrNoSuchSubscription
	}
	return nil
}

// Filter returns every (session, subscription id, policy) whose pattern
// matches topic, in the trie's defined traversal order.
func (m *SubscriptionManager) Filter(topic string) []trie.Entry {
	return m.trie.Filter(topic)
}

// ReleaseSession withdraws every subscription owned by session, used on
// disconnect cleanup.
func (m *SubscriptionManager) ReleaseSession(session uint64) {
	m.mu.Lock()
	owned := m.byOwner[session]
	delete(m.byOwner, session)
	m.mu.Unlock()

	for id, rec := range owned {
		_, _ = m.trie.Remove(rec.pattern, session, rec.isPrefix)
		_ = id
	}
}
