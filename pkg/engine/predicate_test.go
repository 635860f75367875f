package engine

import (
	"net/netip"
	"testing"

	"github.com/anyone-protocol/margot/pkg/model"
)

func TestPredicates(t *testing.T) {
	snap := testSnapshot(t)
	moria1, moria2 := snap.Relay(0), snap.Relay(1)

	tests := []struct {
		name      string
		predicate Predicate
		want1     bool
		want2     bool
	}{
		{"address in network", &AddressPredicate{Prefix: netip.MustParsePrefix("1.2.3.0/24")}, true, false},
		{"address v6 network", &AddressPredicate{Prefix: netip.MustParsePrefix("2001:db8::/32")}, false, true},
		{"address host", &AddressPredicate{Prefix: netip.MustParsePrefix("5.6.7.8/32")}, false, true},
		{"rsa prefix", &FingerprintPredicate{Fingerprint: model.Fingerprint{Kind: model.FingerprintRSA, Value: "9695dfc3"}}, true, false},
		{"rsa infix", &FingerprintPredicate{Fingerprint: model.Fingerprint{Kind: model.FingerprintRSA, Value: "b2c3"}}, false, true},
		{"ed25519 exact", &FingerprintPredicate{Fingerprint: model.Fingerprint{Kind: model.FingerprintED, Value: moria1.Ed25519ID}}, true, false},
		{"flags superset", &FlagPredicate{Flags: model.FlagGuard}, true, false},
		{"flags all required", &FlagPredicate{Flags: model.FlagGuard | model.FlagExit}, false, false},
		{"nickname substring", &NicknamePredicate{Substring: "oria"}, true, true},
		{"nickname case sensitive", &NicknamePredicate{Substring: "Moria"}, false, false},
		{"port", &PortPredicate{Port: 443}, false, true},
		{"port no match", &PortPredicate{Port: 80}, false, false},
		{"version substring", &VersionPredicate{Substring: "0.4.8"}, true, false},
		{"policy literal", &PortPolicyPredicate{Policy: mustPolicy(t, "accept 80,443")}, false, true},
		{"policy order matters", &PortPolicyPredicate{Policy: mustPolicy(t, "accept 443,80")}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.predicate.Match(moria1); got != tt.want1 {
				t.Errorf("Match(moria1) = %v, want %v", got, tt.want1)
			}
			if got := tt.predicate.Match(moria2); got != tt.want2 {
				t.Errorf("Match(moria2) = %v, want %v", got, tt.want2)
			}
		})
	}
}

func TestFingerprintListPredicate(t *testing.T) {
	snap := testSnapshot(t)
	p := &FingerprintListPredicate{Fingerprints: []model.Fingerprint{
		{Kind: model.FingerprintRSA, Value: snap.Relay(1).RSAHex()},
		{Kind: model.FingerprintRSA, Value: "ffffffffffffffffffffffffffffffffffffffff"},
	}}
	if p.Match(snap.Relay(0)) {
		t.Error("moria1 is not listed")
	}
	if !p.Match(snap.Relay(1)) {
		t.Error("moria2 is listed")
	}
}

func TestTerm_ExclusionLaw(t *testing.T) {
	snap := testSnapshot(t)
	predicates := []Predicate{
		&AddressPredicate{Prefix: netip.MustParsePrefix("0.0.0.0/0")},
		&FlagPredicate{Flags: model.FlagGuard},
		&NicknamePredicate{Substring: "moria2"},
		&PortPredicate{Port: 9001},
		&VersionPredicate{Substring: "Tor"},
		&PortPolicyPredicate{Policy: mustPolicy(t, "reject 1-65535")},
	}

	for _, p := range predicates {
		for r := range snap.Relays() {
			in := Term{Predicate: p}.Match(r)
			out := Term{Predicate: p, Exclude: true}.Match(r)
			if in == out {
				t.Errorf("%s on %s: include=%v exclude=%v", p.Name(), r.Nickname, in, out)
			}
		}
	}
}

func TestVersionPredicate_MissingVersion(t *testing.T) {
	snap := testSnapshot(t)
	moria2 := snap.Relay(1) // no published version

	p := &VersionPredicate{Substring: ""}
	if p.Match(moria2) {
		t.Error("a relay without version must never match, even the empty substring")
	}
	if !(Term{Predicate: p, Exclude: true}).Match(moria2) {
		t.Error("excluded version term should match a relay without version")
	}
}
