package engine

import (
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/anyone-protocol/margot/pkg/model"
)

func mustPolicy(t *testing.T, s string) model.PortPolicy {
	t.Helper()
	p, err := model.ParsePortPolicy(s)
	if err != nil {
		t.Fatalf("ParsePortPolicy(%q): %v", s, err)
	}
	return p
}

// testSnapshot builds the two-relay snapshot used across the engine tests.
func testSnapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	moria1 := model.Relay{
		Nickname:   "moria1",
		Ed25519ID:  strings.Repeat("a", 43),
		ORPorts:    []netip.AddrPort{netip.MustParseAddrPort("1.2.3.4:9001")},
		Flags:      model.FlagGuard | model.FlagFast,
		Version:    "Tor 0.4.8.9",
		HasVersion: true,
		Weight:     model.Weight{Value: 20, Measured: true},
		IPv4Policy: mustPolicy(t, "reject 1-65535"),
	}
	copy(moria1.RSAID[:], []byte{0x96, 0x95, 0xdf, 0xc3, 0x5f, 0xfe, 0xb8, 0x61})

	moria2 := model.Relay{
		Nickname: "moria2",
		ORPorts: []netip.AddrPort{
			netip.MustParseAddrPort("5.6.7.8:443"),
			netip.MustParseAddrPort("[2001:db8::1]:443"),
		},
		Flags:      model.FlagExit,
		Weight:     model.Weight{Value: 10},
		IPv4Policy: mustPolicy(t, "accept 80,443"),
	}
	copy(moria2.RSAID[:], []byte{0xa1, 0xb2, 0xc3, 0xd4})

	return model.NewSnapshot(time.Time{}, []model.Relay{moria1, moria2})
}

func nicknames(relays []*model.Relay) []string {
	out := make([]string, len(relays))
	for i, r := range relays {
		out[i] = r.Nickname
	}
	return out
}
