// Package control holds the closed set of margot commands and dispatches
// each one to its analysis once a snapshot is available.
package control

import (
	"fmt"
	"io"
	"strings"

	"github.com/anyone-protocol/margot/pkg/blocklist"
	"github.com/anyone-protocol/margot/pkg/engine"
	"github.com/anyone-protocol/margot/pkg/exitpolicy"
	"github.com/anyone-protocol/margot/pkg/model"
	"github.com/anyone-protocol/margot/pkg/output"
	"github.com/anyone-protocol/margot/pkg/similarity"
)

// Command is one of Find, Count, Config, Like, ExitPolicy or SybilHunter.
type Command interface {
	command()
}

// Find lists the relays matching every filter.
type Find struct {
	Filters *engine.FilterSet
	Oneline bool
}

// Count reports per-filter and overall match counts.
type Count struct {
	Filters *engine.FilterSet
	List    bool
}

// Config appends block-list rules for the matching relays.
type Config struct {
	Kind    ConfigKind
	Ticket  uint32
	Filters *engine.FilterSet
}

// Like ranks relays by nickname distance to Name.
type Like struct {
	Name string
}

// ExitPolicy reports relays with a unique, outlying exit policy.
type ExitPolicy struct {
	IncludePartial bool
}

// SybilHunter ranks relays by signature distance to the relay with the given
// fingerprint.
type SybilHunter struct {
	Fingerprint string
}

func (Find) command()        {}
func (Count) command()       {}
func (Config) command()      {}
func (Like) command()        {}
func (ExitPolicy) command()  {}
func (SybilHunter) command() {}

// ConfigKind selects the rule keywords of a Config command.
type ConfigKind int

const (
	ConfigReject ConfigKind = iota
	ConfigBadExit
	ConfigMiddleOnly
)

func (k ConfigKind) String() string {
	switch k {
	case ConfigReject:
		return "reject"
	case ConfigBadExit:
		return "badexit"
	case ConfigMiddleOnly:
		return "middleonly"
	}
	return fmt.Sprintf("ConfigKind(%d)", int(k))
}

// Tokens returns the rule keywords for the kind.
func (k ConfigKind) Tokens() blocklist.Tokens {
	switch k {
	case ConfigBadExit:
		return blocklist.BadExitTokens
	case ConfigMiddleOnly:
		return blocklist.MiddleOnlyTokens
	}
	return blocklist.RejectTokens
}

func ParseConfigKind(s string) (ConfigKind, error) {
	switch strings.ToLower(s) {
	case "reject":
		return ConfigReject, nil
	case "badexit":
		return ConfigBadExit, nil
	case "middleonly":
		return ConfigMiddleOnly, nil
	}
	return 0, fmt.Errorf("unknown config kind %q (use reject, badexit or middleonly)", s)
}

// Env is what a command needs besides the snapshot.
type Env struct {
	Stdout    io.Writer
	Artifacts blocklist.Config
}

// Run executes cmd against snap. It never blocks on I/O other than writing
// results and artifacts.
func Run(cmd Command, snap *model.Snapshot, env Env) error {
	console := output.NewWriterOutput(env.Stdout)

	switch c := cmd.(type) {
	case Find:
		return runFind(c, snap, env.Stdout, console)
	case Count:
		return runCount(c, snap, env.Stdout, console)
	case Config:
		gen := blocklist.NewGenerator(env.Artifacts, console)
		_, err := gen.Generate(snap, c.Ticket, c.Filters, c.Kind.Tokens())
		return err
	case Like:
		return runLike(c, snap, console)
	case ExitPolicy:
		return runExitPolicy(c, snap, env.Stdout, console)
	case SybilHunter:
		return runSybilHunter(c, snap, console)
	}
	return fmt.Errorf("unhandled command %T", cmd)
}

func runFind(c Find, snap *model.Snapshot, w io.Writer, console output.Output) error {
	relays := c.Filters.Filter(snap)
	if len(relays) == 0 {
		return console.WriteLines("[-] No relays found")
	}
	return output.DescribeRelays(w, relays, c.Oneline, 0)
}

func runCount(c Count, snap *model.Snapshot, w io.Writer, console output.Output) error {
	for _, term := range c.Filters.Terms() {
		relays := engine.NewFilterSet(term).Filter(snap)
		if err := console.WriteLines(fmt.Sprintf("[+] %d relays match: %s", len(relays), term)); err != nil {
			return err
		}
		if c.List && len(relays) > 0 {
			if err := output.DescribeRelays(w, relays, true, 4); err != nil {
				return err
			}
		}
	}
	return console.WriteLines(fmt.Sprintf("[+] %d relays matched all", c.Filters.Count(snap)))
}

func runLike(c Like, snap *model.Snapshot, console output.Output) error {
	matches := similarity.Nickname(snap, c.Name, similarity.NicknameTopK)
	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, fmt.Sprintf("[+] Top %d closest nicknames to: %s", similarity.NicknameTopK, c.Name))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf(" -> %s (%s): %d", m.Relay.Fingerprint(), m.Relay.Nickname, m.Distance))
	}
	return console.WriteLines(lines...)
}

func runExitPolicy(c ExitPolicy, snap *model.Snapshot, w io.Writer, console output.Output) error {
	findings := exitpolicy.Classify(snap, exitpolicy.Options{IncludePartial: c.IncludePartial})
	for _, f := range findings {
		if err := console.WriteLines(fmt.Sprintf("[+] %s: '%s'", f.Class, f.Policy)); err != nil {
			return err
		}
		if err := output.DescribeRelays(w, f.Relays, true, 4); err != nil {
			return err
		}
	}
	return nil
}

func runSybilHunter(c SybilHunter, snap *model.Snapshot, console output.Output) error {
	ref, matches, err := similarity.Composite(snap, c.Fingerprint, similarity.SignatureTopK)
	if err != nil {
		return err
	}
	lines := make([]string, 0, len(matches)+2)
	lines = append(lines,
		"Reference string: "+ref,
		fmt.Sprintf("[+] Top %d closest relays to: %s", similarity.SignatureTopK, c.Fingerprint),
	)
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf(" -> %d: %s %s", m.Distance, m.Relay.Fingerprint(), m.Signature))
	}
	return console.WriteLines(lines...)
}
