// Package similarity ranks relays by edit distance to spot near-duplicates,
// a common trait of relays run by a single operator.
package similarity

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/anyone-protocol/margot/pkg/model"
)

const (
	NicknameTopK  = 5
	SignatureTopK = 20
)

// Match is one ranked relay.
type Match struct {
	Relay     *model.Relay
	Distance  int
	Signature string
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Signature concatenates the fields operators tend to reuse across relays:
// nickname, OR addresses without separators, flag bits, version and a
// two-letter weight indicator ("me" measured, "un" unmeasured).
func Signature(r *model.Relay) string {
	var b strings.Builder
	b.WriteString(r.Nickname)
	for _, ap := range r.ORPorts {
		b.WriteString(strings.Map(func(c rune) rune {
			switch c {
			case '.', ':', '[', ']':
				return -1
			}
			return c
		}, ap.String()))
	}
	fmt.Fprintf(&b, "%d", uint16(r.Flags))
	b.WriteString(r.VersionOr(""))
	if r.Weight.Measured {
		b.WriteString("me")
	} else {
		b.WriteString("un")
	}
	return b.String()
}

// Nickname ranks every relay by nickname distance to name and returns the k
// closest.
func Nickname(snap *model.Snapshot, name string, k int) []Match {
	matches := make([]Match, 0, snap.Len())
	for r := range snap.Relays() {
		matches = append(matches, Match{Relay: r, Distance: Distance(name, r.Nickname)})
		if n := len(matches); n%1000 == 0 {
			slog.Debug("nickname distances", "processed", n)
		}
	}
	return topK(matches, k)
}

// Composite ranks every relay other than the reference by signature distance
// and returns the k closest.
func Composite(snap *model.Snapshot, fingerprint string, k int) (string, []Match, error) {
	ref, err := snap.Lookup(fingerprint)
	if err != nil {
		return "", nil, err
	}
	refSig := Signature(ref)

	matches := make([]Match, 0, snap.Len())
	for r := range snap.Relays() {
		if r == ref {
			continue
		}
		sig := Signature(r)
		matches = append(matches, Match{Relay: r, Distance: Distance(refSig, sig), Signature: sig})
	}
	return refSig, topK(matches, k), nil
}

// topK sorts by ascending distance, keeping snapshot order among ties.
func topK(matches []Match, k int) []Match {
	slices.SortStableFunc(matches, func(a, b Match) int {
		return a.Distance - b.Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
