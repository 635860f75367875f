package model

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Snapshot is an immutable point-in-time set of relays.
type Snapshot struct {
	ValidAfter time.Time

	relays []Relay
	byRSA  map[string]int
	byED   map[string]int
}

// NewSnapshot takes ownership of relays and indexes them by identity. The
// iteration order of the snapshot is the order of relays.
func NewSnapshot(validAfter time.Time, relays []Relay) *Snapshot {
	s := &Snapshot{
		ValidAfter: validAfter,
		relays:     relays,
		byRSA:      make(map[string]int, len(relays)),
		byED:       make(map[string]int, len(relays)),
	}
	for i := range relays {
		s.byRSA[relays[i].RSAHex()] = i
		if relays[i].Ed25519ID != "" {
			s.byED[relays[i].Ed25519ID] = i
		}
	}
	return s
}

// Len returns the number of relays.
func (s *Snapshot) Len() int {
	return len(s.relays)
}

// Relay returns the i-th relay in iteration order.
func (s *Snapshot) Relay(i int) *Relay {
	return &s.relays[i]
}

// Relays yields every relay in iteration order. The returned pointers alias the
// snapshot and must not be modified.
func (s *Snapshot) Relays() iter.Seq[*Relay] {
	return func(yield func(*Relay) bool) {
		for i := range s.relays {
			if !yield(&s.relays[i]) {
				return
			}
		}
	}
}

// Lookup finds a relay by full RSA fingerprint (hex, any case, optional "$")
// or by Ed25519 identity.
func (s *Snapshot) Lookup(fingerprint string) (*Relay, error) {
	fp := strings.TrimPrefix(fingerprint, "$")
	if i, ok := s.byRSA[strings.ToLower(fp)]; ok {
		return &s.relays[i], nil
	}
	if i, ok := s.byED[fp]; ok {
		return &s.relays[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRelayNotFound, fingerprint)
}
