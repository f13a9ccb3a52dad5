// Package idgen generates the random scope-global identifiers WAMP uses for
// sessions, publications, subscriptions, registrations, and requests.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
)

// scopeMask keeps generated IDs within the WAMP global scope: [0, 2^56).
// The spec's wire schema represents IDs as generic integers, so values are
// drawn from the same 56-bit range described in the data model regardless of
// which ID kind they identify.
const scopeMask = (uint64(1) << 56) - 1

// New draws a new random ID uniformly from [0, 2^56).
func New() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.BigEndian.Uint64(buf[:]) & scopeMask
}
