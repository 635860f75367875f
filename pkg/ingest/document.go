package ingest

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/anyone-protocol/margot/pkg/model"
	"github.com/tidwall/gjson"
)

// DecodeDocument decodes a JSON snapshot document:
//
//	{"valid_after": "2024-01-01T12:00:00Z",
//	 "relays": [{"nickname": "moria1", "fingerprint": "9695DF...", "ed25519": "...",
//	             "or_addresses": ["128.31.0.34:9101"], "flags": ["Fast", "Guard"],
//	             "version": "Tor 0.4.8.9", "bandwidth": 20, "unmeasured": false,
//	             "ipv4_policy": "reject 1-65535", "ipv6_policy": "reject 1-65535",
//	             "family": ["$..."]}]}
//
// Relays that cannot be decoded are skipped with a warning.
func DecodeDocument(data []byte) (*model.Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: document is not valid JSON", model.ErrSnapshot)
	}

	var validAfter time.Time
	if va := gjson.GetBytes(data, "valid_after"); va.Exists() {
		t, err := time.Parse(time.RFC3339, va.String())
		if err != nil {
			return nil, fmt.Errorf("%w: valid_after %q: %v", model.ErrSnapshot, va.String(), err)
		}
		validAfter = t
	}

	entries := gjson.GetBytes(data, "relays")
	if !entries.IsArray() {
		return nil, fmt.Errorf("%w: document has no relays array", model.ErrSnapshot)
	}

	var relays []model.Relay
	entries.ForEach(func(key, value gjson.Result) bool {
		relay, err := decodeRelay(value)
		if err != nil {
			slog.Warn("skipping relay document", "index", key.Int(), "error", err)
			return true
		}
		relays = append(relays, relay)
		return true
	})

	if len(relays) == 0 {
		return nil, fmt.Errorf("%w: no relays", model.ErrSnapshot)
	}
	return model.NewSnapshot(validAfter, relays), nil
}

func decodeRelay(v gjson.Result) (model.Relay, error) {
	relay := model.Relay{
		Nickname:  v.Get("nickname").String(),
		Ed25519ID: v.Get("ed25519").String(),
		Weight: model.Weight{
			Value:    uint32(v.Get("bandwidth").Uint()),
			Measured: !v.Get("unmeasured").Bool(),
		},
	}

	fp, err := hex.DecodeString(strings.TrimPrefix(v.Get("fingerprint").String(), "$"))
	if err != nil || len(fp) != len(relay.RSAID) {
		return relay, fmt.Errorf("bad fingerprint %q", v.Get("fingerprint").String())
	}
	copy(relay.RSAID[:], fp)

	for _, a := range v.Get("or_addresses").Array() {
		ap, err := netip.ParseAddrPort(a.String())
		if err != nil {
			return relay, fmt.Errorf("bad or_address %q", a.String())
		}
		relay.ORPorts = append(relay.ORPorts, ap)
	}

	for _, f := range v.Get("flags").Array() {
		if flag, ok := model.ParseFlag(f.String()); ok {
			relay.Flags |= flag
		}
	}

	if ver := v.Get("version"); ver.Exists() && ver.String() != "" {
		relay.Version = ver.String()
		relay.HasVersion = true
	}

	if p := v.Get("ipv4_policy"); p.Exists() {
		relay.IPv4Policy, err = model.ParsePortPolicy(p.String())
		if err != nil {
			return relay, err
		}
	}
	if p := v.Get("ipv6_policy"); p.Exists() {
		relay.IPv6Policy, err = model.ParsePortPolicy(p.String())
		if err != nil {
			return relay, err
		}
	}

	for _, m := range v.Get("family").Array() {
		if fp, ok := familyFingerprint(m.String()); ok {
			relay.Family = append(relay.Family, fp)
		}
	}
	return relay, nil
}

// DocumentFileSource loads a JSON snapshot document from disk.
type DocumentFileSource struct {
	Path string
}

func NewDocumentFileSource(path string) *DocumentFileSource {
	return &DocumentFileSource{Path: path}
}

func (s *DocumentFileSource) Name() string {
	return "document:" + s.Path
}

func (s *DocumentFileSource) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return snap, nil
}
