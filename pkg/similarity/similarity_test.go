package similarity

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/anyone-protocol/margot/pkg/model"
)

func TestDistance_MetricLaws(t *testing.T) {
	words := []string{"", "moria1", "moria2", "Moria1", "tor26", "gabelmoo", "ünïcode"}
	for _, a := range words {
		for _, b := range words {
			d := Distance(a, b)
			if d < 0 {
				t.Errorf("d(%q,%q) = %d < 0", a, b, d)
			}
			if d != Distance(b, a) {
				t.Errorf("d(%q,%q) = %d, d(%q,%q) = %d", a, b, d, b, a, Distance(b, a))
			}
			if (d == 0) != (a == b) {
				t.Errorf("d(%q,%q) = %d, zero iff equal violated", a, b, d)
			}
		}
	}
	if got := Distance("kitten", "sitting"); got != 3 {
		t.Errorf("Distance(kitten, sitting) = %d, want 3", got)
	}
}

func TestSignature(t *testing.T) {
	r := &model.Relay{
		Nickname: "moria1",
		ORPorts: []netip.AddrPort{
			netip.MustParseAddrPort("1.2.3.4:9001"),
			netip.MustParseAddrPort("[2001:db8::1]:9001"),
		},
		Flags:      model.FlagAuthority | model.FlagExit,
		Version:    "Tor 0.4.8.9",
		HasVersion: true,
		Weight:     model.Weight{Value: 10, Measured: true},
	}
	if got, want := Signature(r), "moria1123490012001db819001"+"5"+"Tor 0.4.8.9"+"me"; got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}

	r.HasVersion, r.Version = false, ""
	r.Weight.Measured = false
	if got, want := Signature(r), "moria1123490012001db819001"+"5"+"un"; got != want {
		t.Errorf("Signature() without version = %q, want %q", got, want)
	}
}

func nickSnapshot(names ...string) *model.Snapshot {
	relays := make([]model.Relay, len(names))
	for i, n := range names {
		relays[i] = model.Relay{Nickname: n}
		relays[i].RSAID[0] = byte(i + 1)
	}
	return model.NewSnapshot(time.Time{}, relays)
}

func TestNickname_TopKStable(t *testing.T) {
	snap := nickSnapshot("zzzzzz", "moria2", "moria1", "moria3", "tor26", "moria9", "morib1")

	got := Nickname(snap, "moria1", NicknameTopK)
	if len(got) != NicknameTopK {
		t.Fatalf("got %d matches, want %d", len(got), NicknameTopK)
	}
	want := []string{"moria1", "moria2", "moria3", "moria9", "morib1"}
	for i, m := range got {
		if m.Relay.Nickname != want[i] {
			t.Errorf("rank %d = %s (d=%d), want %s", i, m.Relay.Nickname, m.Distance, want[i])
		}
		if i > 0 && got[i-1].Distance > m.Distance {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestComposite(t *testing.T) {
	snap := nickSnapshot("sybil01", "sybil02", "unrelated", "sybil03")
	ref := snap.Relay(0)

	refSig, got, err := Composite(snap, ref.RSAHex(), SignatureTopK)
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	if refSig != Signature(ref) {
		t.Errorf("reference signature = %q", refSig)
	}
	if len(got) != 3 {
		t.Fatalf("got %d matches, the reference itself must be skipped", len(got))
	}
	if got[0].Relay.Nickname != "sybil02" || got[1].Relay.Nickname != "sybil03" || got[2].Relay.Nickname != "unrelated" {
		t.Errorf("ranking = %s, %s, %s", got[0].Relay.Nickname, got[1].Relay.Nickname, got[2].Relay.Nickname)
	}

	if _, _, err := Composite(snap, "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF", SignatureTopK); !errors.Is(err, model.ErrRelayNotFound) {
		t.Errorf("unknown reference error = %v, want ErrRelayNotFound", err)
	}
}
