package engine

import (
	"strings"

	"github.com/anyone-protocol/margot/pkg/model"
)

// Term is a predicate, optionally negated.
type Term struct {
	Predicate Predicate
	Exclude   bool
}

// Match returns the predicate result XOR Exclude.
func (t Term) Match(r *model.Relay) bool {
	return t.Predicate.Match(r) != t.Exclude
}

func (t Term) String() string {
	if t.Exclude {
		return "-" + t.Predicate.Name()
	}
	return t.Predicate.Name()
}

// FilterSet is an ordered conjunction of terms.
type FilterSet struct {
	terms []Term
}

// NewFilterSet creates a set from the given terms. An empty set matches
// every relay.
func NewFilterSet(terms ...Term) *FilterSet {
	return &FilterSet{
		terms: terms,
	}
}

// Terms returns the terms in evaluation order.
func (s *FilterSet) Terms() []Term {
	return s.terms
}

// Match runs the relay through all terms.
// It stops at the first term that does not match.
func (s *FilterSet) Match(r *model.Relay) bool {
	for _, t := range s.terms {
		if !t.Match(r) {
			return false
		}
	}
	return true
}

// Filter returns the matching relays in snapshot order.
func (s *FilterSet) Filter(snap *model.Snapshot) []*model.Relay {
	var out []*model.Relay
	for r := range snap.Relays() {
		if s.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of matching relays.
func (s *FilterSet) Count(snap *model.Snapshot) int {
	n := 0
	for r := range snap.Relays() {
		if s.Match(r) {
			n++
		}
	}
	return n
}

// FingerprintLists returns the file-sourced fingerprint lists of the
// non-excluded terms, in term order.
func (s *FilterSet) FingerprintLists() []*FingerprintListPredicate {
	var lists []*FingerprintListPredicate
	for _, t := range s.terms {
		if l, ok := t.Predicate.(*FingerprintListPredicate); ok && !t.Exclude {
			lists = append(lists, l)
		}
	}
	return lists
}

func (s *FilterSet) String() string {
	names := make([]string, len(s.terms))
	for i, t := range s.terms {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, " ") + "]"
}
