// Package blocklist generates directory-authority configuration rules for
// misbehaving relays.
package blocklist

import (
	"fmt"
	"log/slog"

	"github.com/anyone-protocol/margot/pkg/engine"
	"github.com/anyone-protocol/margot/pkg/model"
	"github.com/anyone-protocol/margot/pkg/output"
)

// Tokens selects the rule keywords. An empty Address skips the address-rule
// file entirely.
type Tokens struct {
	Address     string
	Fingerprint string
}

var (
	RejectTokens     = Tokens{Address: "AuthDirReject", Fingerprint: "!reject"}
	BadExitTokens    = Tokens{Address: "", Fingerprint: "!badexit"}
	MiddleOnlyTokens = Tokens{Address: "", Fingerprint: "!middleonly"}
)

// Config holds the artifact locations.
type Config struct {
	AddressPath  string
	IdentityPath string
	TicketURL    string
}

// Result describes one generation run.
type Result struct {
	Matched []*model.Relay
	// Missing lists fingerprints requested through fingerprint files that no
	// matched relay carries, in file order.
	Missing []string
	// Written lists the artifact paths appended to.
	Written []string
}

// Generator appends rules to the two artifacts and echoes them to console.
type Generator struct {
	cfg     Config
	console output.Output
}

func NewGenerator(cfg Config, console output.Output) *Generator {
	return &Generator{
		cfg:     cfg,
		console: console,
	}
}

// Generate evaluates filters against the snapshot and appends the rules for
// the matching relays. Artifacts are never truncated or deduplicated.
func (g *Generator) Generate(snap *model.Snapshot, ticket uint32, filters *engine.FilterSet, tokens Tokens) (*Result, error) {
	res := &Result{
		Matched: filters.Filter(snap),
	}

	if tokens.Address != "" && len(res.Matched) > 0 {
		lines := make([]string, 0, 3*len(res.Matched))
		for _, r := range res.Matched {
			lines = append(lines, fmt.Sprintf("# %s %s", r.Fingerprint(), r.Nickname))
		}
		for _, r := range res.Matched {
			lines = append(lines, addressRules(tokens.Address, r)...)
		}
		if err := g.write(g.cfg.AddressPath, ticket, lines); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, g.cfg.AddressPath)
	}

	res.Missing = missingFingerprints(filters, res.Matched)

	if len(res.Matched) > 0 || len(res.Missing) > 0 {
		lines := make([]string, 0, len(res.Matched)+len(res.Missing))
		for _, r := range res.Matched {
			lines = append(lines, tokens.Fingerprint+" "+r.Fingerprint())
		}
		for _, fp := range res.Missing {
			lines = append(lines, tokens.Fingerprint+" "+fp)
		}
		if err := g.write(g.cfg.IdentityPath, ticket, lines); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, g.cfg.IdentityPath)
	}

	if len(res.Missing) > 0 {
		slog.Warn("requested relays absent from snapshot", "count", len(res.Missing))
	}
	slog.Info("config generated", "ticket", ticket, "matched", len(res.Matched), "missing", len(res.Missing))
	if err := g.console.WriteLines(fmt.Sprintf("[+] Found %d relays: %s", len(res.Matched), filters)); err != nil {
		return nil, err
	}
	return res, nil
}

// Comment is the ticket header written before every block of rules.
func (g *Generator) Comment(ticket uint32) []string {
	return []string{"", fmt.Sprintf("# Ticket: %s/%d", g.cfg.TicketURL, ticket)}
}

func (g *Generator) write(path string, ticket uint32, lines []string) error {
	file, err := output.OpenAppend(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := g.console.WriteLines(fmt.Sprintf("[+] Rules for %s:", path), "", "-----"); err != nil {
		return err
	}
	out := output.NewFanOutOutput(file, g.console)
	if err := out.WriteLines(g.Comment(ticket)...); err != nil {
		return err
	}
	if err := out.WriteLines(lines...); err != nil {
		return err
	}
	if err := g.console.WriteLines("-----", ""); err != nil {
		return err
	}
	return file.Close()
}

// addressRules returns one rule per OR-port address. IPv6 addresses are
// bracketed.
func addressRules(prefix string, r *model.Relay) []string {
	rules := make([]string, len(r.ORPorts))
	for i, ap := range r.ORPorts {
		addr := ap.Addr().Unmap()
		if addr.Is6() {
			rules[i] = fmt.Sprintf("%s [%s]", prefix, addr)
		} else {
			rules[i] = fmt.Sprintf("%s %s", prefix, addr)
		}
	}
	return rules
}

// missingFingerprints returns the entries of the non-excluded fingerprint
// files that are absent from the matched relays, in file order, each once.
func missingFingerprints(filters *engine.FilterSet, matched []*model.Relay) []string {
	found := make(map[string]bool, 2*len(matched))
	for _, r := range matched {
		found[r.Fingerprint()] = true
		if r.Ed25519ID != "" {
			found[r.Ed25519ID] = true
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, list := range filters.FingerprintLists() {
		for _, fp := range list.Fingerprints {
			id := fp.Canonical()
			if found[id] || seen[id] {
				continue
			}
			seen[id] = true
			missing = append(missing, id)
		}
	}
	return missing
}
