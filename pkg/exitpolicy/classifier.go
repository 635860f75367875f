// Package exitpolicy flags relays whose exit policy is an outlier against the
// Reduced Exit Policy.
package exitpolicy

import (
	"github.com/anyone-protocol/margot/pkg/model"
)

// ReducedExitPolicy lists the ports allowed by the Reduced Exit Policy, an
// alternative to the default exit policy that allows as many services as
// possible while blocking the majority of TCP ports.
var ReducedExitPolicy = []uint16{
	20, 21, 22, 23, 43, 53, 79, 80, 81, 88, 110, 143, 194, 220, 389, 443, 464, 465, 531, 543, 544,
	554, 563, 587, 636, 706, 749, 853, 873, 902, 903, 904, 981, 989, 990, 991, 992, 993, 994, 995,
	1194, 1220, 1293, 1500, 1533, 1677, 1723, 1755, 1863, 2082, 2083, 2086, 2087, 2095, 2096, 2102,
	2103, 2104, 3128, 3389, 3690, 4321, 4643, 5050, 5190, 5222, 5223, 5228, 5900, 6660, 6661, 6662,
	6663, 6664, 6665, 6666, 6667, 6668, 6669, 6679, 6697, 8000, 8008, 8074, 8080, 8082, 8087, 8088,
	8232, 8233, 8332, 8333, 8443, 8888, 9418, 9999, 10000, 11371, 19294, 19638, 50002, 64738,
}

// Class is the verdict for one policy.
type Class int

const (
	// ClassPartial is neither extreme: it allows some reference ports, or all
	// of them and nothing else.
	ClassPartial Class = iota
	// ClassExceeds allows every reference port and at least one more.
	ClassExceeds
	// ClassNone allows none of the reference ports.
	ClassNone
)

func (c Class) String() string {
	switch c {
	case ClassExceeds:
		return "Matching Reduced Exit Policy and More"
	case ClassNone:
		return "Not matching Reduced Exit Policy"
	default:
		return "Partially matching Reduced Exit Policy"
	}
}

// Finding is one policy held by exactly one relay.
type Finding struct {
	Class  Class
	Policy model.PortPolicy
	Relays []*model.Relay
}

// Options tunes classification.
type Options struct {
	// Reference defaults to ReducedExitPolicy.
	Reference []uint16
	// IncludePartial also reports ClassPartial policies.
	IncludePartial bool
}

// Group is a set of relays sharing one literal IPv4 policy.
type Group struct {
	Policy model.PortPolicy
	Relays []*model.Relay
}

// GroupByPolicy groups relays by literal IPv4 policy equality. Groups come
// out in order of first appearance.
func GroupByPolicy(snap *model.Snapshot) []Group {
	var groups []Group
	index := make(map[string][]int)
	for r := range snap.Relays() {
		key := r.IPv4Policy.String()
		found := false
		for _, gi := range index[key] {
			if groups[gi].Policy.Equal(r.IPv4Policy) {
				groups[gi].Relays = append(groups[gi].Relays, r)
				found = true
				break
			}
		}
		if !found {
			index[key] = append(index[key], len(groups))
			groups = append(groups, Group{Policy: r.IPv4Policy, Relays: []*model.Relay{r}})
		}
	}
	return groups
}

// Classify reports the policies held by a single relay that either exceed the
// reference set or share nothing with it. Policies shared by several relays
// are not outliers and are skipped.
func Classify(snap *model.Snapshot, opts Options) []Finding {
	ref := opts.Reference
	if len(ref) == 0 {
		ref = ReducedExitPolicy
	}

	var findings []Finding
	for _, g := range GroupByPolicy(snap) {
		if len(g.Relays) != 1 {
			continue
		}
		class := ClassifyPolicy(g.Policy, ref)
		if class == ClassPartial && !opts.IncludePartial {
			continue
		}
		findings = append(findings, Finding{Class: class, Policy: g.Policy, Relays: g.Relays})
	}
	return findings
}

// ClassifyPolicy compares one policy with the reference port set.
func ClassifyPolicy(p model.PortPolicy, ref []uint16) Class {
	allowed := 0
	for _, port := range ref {
		if p.Allows(port) {
			allowed++
		}
	}
	switch {
	case allowed == len(ref) && allowsOutside(p, ref):
		return ClassExceeds
	case allowed == 0:
		return ClassNone
	default:
		return ClassPartial
	}
}

// allowsOutside probes every port for one allowed outside ref.
func allowsOutside(p model.PortPolicy, ref []uint16) bool {
	var inRef [65536]bool
	for _, port := range ref {
		inRef[port] = true
	}
	for port := 0; port <= 65535; port++ {
		if !inRef[port] && p.Allows(uint16(port)) {
			return true
		}
	}
	return false
}
