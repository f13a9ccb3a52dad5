package router

import (
	"github.com/wampd/wampd/pkg/wampcore/realm"
	"github.com/wampd/wampd/pkg/wampcore/trie"
	"github.com/wampd/wampd/pkg/wampmsg"
)

// matchPolicy reads the "match" option SUBSCRIBE/REGISTER carry: absent
// means Strict, "prefix" and "wildcard" select the other two policies.
func matchPolicy(options map[string]wampmsg.Value) trie.MatchingPolicy {
	v, ok := options["match"]
	if !ok {
		return trie.Strict
	}
	s, ok := v.AsString()
	if !ok {
		return trie.Strict
	}
	switch s {
	case "prefix":
		return trie.Prefix
	case "wildcard":
		return trie.Wildcard
	default:
		return trie.Strict
	}
}

// acknowledge reads PUBLISH's "acknowledge" option, default false. The
// source spec ambiguously spelled this option ("acknolwedge" vs
// "acknowledge"); this router only recognizes the correct spelling.
func acknowledge(options map[string]wampmsg.Value) bool {
	v, ok := options["acknowledge"]
	if !ok {
		return false
	}
	b, _ := v.AsBool()
	return b
}

// invocationPolicy reads REGISTER's "invoke" option, default Single.
func invocationPolicy(options map[string]wampmsg.Value) realm.InvocationPolicy {
	v, ok := options["invoke"]
	if !ok {
		return realm.Single
	}
	s, ok := v.AsString()
	if !ok {
		return realm.Single
	}
	switch s {
	case "roundrobin":
		return realm.RoundRobin
	case "random":
		return realm.Random
	case "first":
		return realm.First
	case "last":
		return realm.Last
	default:
		return realm.Single
	}
}
