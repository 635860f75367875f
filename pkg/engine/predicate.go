package engine

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/anyone-protocol/margot/pkg/model"
)

// Predicate defines a pure test of one relay attribute.
type Predicate interface {
	// Match reports whether the relay satisfies the predicate.
	// It must not modify the relay.
	Match(r *model.Relay) bool

	// Name returns the predicate in filter grammar form (for reports and logging).
	Name() string
}

// AddressPredicate matches relays with an OR-port address inside Prefix.
type AddressPredicate struct {
	Prefix netip.Prefix
}

func (p *AddressPredicate) Match(r *model.Relay) bool {
	for _, ap := range r.ORPorts {
		if p.Prefix.Contains(ap.Addr().Unmap()) {
			return true
		}
	}
	return false
}

func (p *AddressPredicate) Name() string {
	return "addr:" + p.Prefix.String()
}

// FingerprintPredicate matches one identity.
type FingerprintPredicate struct {
	Fingerprint model.Fingerprint
}

func (p *FingerprintPredicate) Match(r *model.Relay) bool {
	return p.Fingerprint.Match(r)
}

func (p *FingerprintPredicate) Name() string {
	return "fp:" + p.Fingerprint.String()
}

// FingerprintListPredicate matches any identity read from a file. The list
// keeps the file order; the config generator relies on it to report requested
// relays that are absent from the snapshot.
type FingerprintListPredicate struct {
	Path         string
	Fingerprints []model.Fingerprint
}

func (p *FingerprintListPredicate) Match(r *model.Relay) bool {
	for _, fp := range p.Fingerprints {
		if fp.Match(r) {
			return true
		}
	}
	return false
}

func (p *FingerprintListPredicate) Name() string {
	return "fpfile:" + p.Path
}

// FlagPredicate matches relays carrying all of Flags.
type FlagPredicate struct {
	Flags model.Flags
}

func (p *FlagPredicate) Match(r *model.Relay) bool {
	return r.Flags.Contains(p.Flags)
}

func (p *FlagPredicate) Name() string {
	return "flag:" + strings.ReplaceAll(p.Flags.String(), " ", ",")
}

// NicknamePredicate is a case-sensitive substring match.
type NicknamePredicate struct {
	Substring string
}

func (p *NicknamePredicate) Match(r *model.Relay) bool {
	return strings.Contains(r.Nickname, p.Substring)
}

func (p *NicknamePredicate) Name() string {
	return "nick:" + p.Substring
}

// PortPredicate matches relays with an OR-port on Port.
type PortPredicate struct {
	Port uint16
}

func (p *PortPredicate) Match(r *model.Relay) bool {
	for _, ap := range r.ORPorts {
		if ap.Port() == p.Port {
			return true
		}
	}
	return false
}

func (p *PortPredicate) Name() string {
	return "port:" + strconv.Itoa(int(p.Port))
}

// VersionPredicate is a substring match on the version string. Relays
// without a published version never match.
type VersionPredicate struct {
	Substring string
}

func (p *VersionPredicate) Match(r *model.Relay) bool {
	if !r.HasVersion {
		return false
	}
	return strings.Contains(r.Version, p.Substring)
}

func (p *VersionPredicate) Name() string {
	return "version:" + p.Substring
}

// PortPolicyPredicate matches relays whose IPv4 policy is literally Policy.
type PortPolicyPredicate struct {
	Policy model.PortPolicy
}

func (p *PortPolicyPredicate) Match(r *model.Relay) bool {
	return r.IPv4Policy.Equal(p.Policy)
}

func (p *PortPolicyPredicate) Name() string {
	return "portpolicyfilter:" + p.Policy.String()
}
