package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/anyone-protocol/margot/pkg/model"
	"golang.org/x/sync/errgroup"
)

const consensusTimeLayout = "2006-01-02 15:04:05"

// ConsensusSource loads a snapshot from a cached network-status consensus,
// optionally joined with the cached microdescriptors that carry Ed25519
// identities, families and IPv6 policies.
type ConsensusSource struct {
	ConsensusPath  string
	MicrodescsPath string
}

func NewConsensusSource(consensus, microdescs string) *ConsensusSource {
	return &ConsensusSource{
		ConsensusPath:  consensus,
		MicrodescsPath: microdescs,
	}
}

func (s *ConsensusSource) Name() string {
	return "consensus:" + s.ConsensusPath
}

// Load reads the consensus and the microdescriptors concurrently, then joins
// them while parsing the consensus.
func (s *ConsensusSource) Load(ctx context.Context) (*model.Snapshot, error) {
	var (
		consensus []byte
		mds       map[string]Microdesc
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := ReadFile(s.ConsensusPath)
		consensus = data
		return err
	})
	if s.MicrodescsPath != "" {
		g.Go(func() error {
			data, err := ReadFile(s.MicrodescsPath)
			if err != nil {
				return err
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			mds = ParseMicrodescs(data)
			slog.Debug("microdescriptors loaded", "path", s.MicrodescsPath, "count", len(mds))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return ParseConsensus(ctx, bytes.NewReader(consensus), mds)
}

// ParseConsensus reads consensus text. Router entries that cannot be parsed
// are skipped with a warning; mds may be nil.
func ParseConsensus(ctx context.Context, r io.Reader, mds map[string]Microdesc) (*model.Snapshot, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		validAfter time.Time
		relays     []model.Relay
		cur        *model.Relay
		digest     string
		skip       bool
		lineNo     int
	)

	flush := func() {
		if cur != nil && !skip {
			if md, ok := mds[digest]; ok {
				md.apply(cur)
			}
			relays = append(relays, *cur)
		}
		cur, digest, skip = nil, "", false
	}

	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := scanner.Text()
		keyword, rest, _ := strings.Cut(line, " ")

		switch keyword {
		case "valid-after":
			t, err := time.Parse(consensusTimeLayout, rest)
			if err != nil {
				return nil, fmt.Errorf("%w: valid-after %q: %v", model.ErrSnapshot, rest, err)
			}
			validAfter = t
		case "r":
			flush()
			relay, err := parseRouterLine(rest)
			if err != nil {
				slog.Warn("skipping router entry", "line", lineNo, "error", err)
				cur, skip = &model.Relay{}, true
				continue
			}
			cur = relay
		case "directory-footer":
			flush()
		}

		if cur == nil || skip {
			continue
		}
		if err := parseRouterItem(cur, keyword, rest, &digest); err != nil {
			slog.Warn("skipping router entry", "line", lineNo, "nickname", cur.Nickname, "error", err)
			skip = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading consensus: %v", model.ErrWrongIO, err)
	}
	flush()

	if len(relays) == 0 {
		return nil, fmt.Errorf("%w: no router entries", model.ErrSnapshot)
	}
	return model.NewSnapshot(validAfter, relays), nil
}

// parseRouterLine handles both flavours:
//
//	r nickname identity date time address orport dirport
//	r nickname identity digest date time address orport dirport
func parseRouterLine(rest string) (*model.Relay, error) {
	f := strings.Fields(rest)
	if len(f) != 7 && len(f) != 8 {
		return nil, fmt.Errorf("r line has %d fields", len(f))
	}

	id, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(f[1], "="))
	if err != nil || len(id) != 20 {
		return nil, fmt.Errorf("bad identity %q", f[1])
	}

	n := len(f)
	addr, err := netip.ParseAddr(f[n-3])
	if err != nil {
		return nil, fmt.Errorf("bad address %q", f[n-3])
	}
	port, err := strconv.ParseUint(f[n-2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bad orport %q", f[n-2])
	}

	relay := &model.Relay{
		Nickname: f[0],
		ORPorts:  []netip.AddrPort{netip.AddrPortFrom(addr, uint16(port))},
	}
	copy(relay.RSAID[:], id)
	return relay, nil
}

func parseRouterItem(relay *model.Relay, keyword, rest string, digest *string) error {
	switch keyword {
	case "a":
		ap, err := netip.ParseAddrPort(rest)
		if err != nil {
			return fmt.Errorf("bad a line %q", rest)
		}
		relay.ORPorts = append(relay.ORPorts, ap)
	case "s":
		for _, name := range strings.Fields(rest) {
			if f, ok := model.ParseFlag(name); ok {
				relay.Flags |= f
			}
		}
	case "v":
		relay.Version = rest
		relay.HasVersion = rest != ""
	case "w":
		relay.Weight = parseWeight(rest)
	case "p":
		p, err := model.ParsePortPolicy(rest)
		if err != nil {
			return err
		}
		relay.IPv4Policy = p
	case "m":
		*digest = strings.TrimSpace(rest)
	}
	return nil
}

func parseWeight(rest string) model.Weight {
	w := model.Weight{Measured: true}
	for _, kv := range strings.Fields(rest) {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "Bandwidth":
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				w.Value = uint32(n)
			}
		case "Unmeasured":
			w.Measured = v != "1"
		}
	}
	return w
}
