// Command margot queries a relay-directory snapshot and derives block-list
// rules, exit-policy outliers and near-duplicate relay rankings.
//
// Usage:
//
//	margot [flags] find [-l] <filters...>
//	margot [flags] count [-l] <filters...>
//	margot [flags] config reject|badexit|middleonly <ticket> <filters...>
//	margot [flags] like <nickname>
//	margot [flags] sybil exitpolicy [-partial]
//	margot [flags] sybilhunter <fingerprint>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/anyone-protocol/margot/pkg/config"
	"github.com/anyone-protocol/margot/pkg/control"
	"github.com/anyone-protocol/margot/pkg/engine"
)

const usage = `usage: margot [flags] <command> [args]

commands:
  find [-l] <filters...>                    list matching relays
  count [-l] <filters...>                   count matches per filter and overall
  config <reject|badexit|middleonly> <ticket> <filters...>
                                            append block-list rules
  like <nickname>                           closest nicknames
  sybil exitpolicy [-partial]               unique outlying exit policies
  sybilhunter <fingerprint>                 relays closest to a reference relay

filters are key:value, prefixed with '-' to exclude:
  a|addr, f|fp, ff|fpfile, fl|flag, n|nick, p|port, v|version,
  pp|portpolicyfilter, pf|portpolicyfile

flags:
`

func main() {
	configPath := flag.String("config", os.Getenv("MARGOT_CONFIG"), "path to margot.yaml config file")
	consensus := flag.String("consensus", "", "consensus file (plain, .gz or .zst)")
	microdescs := flag.String("microdescs", "", "microdescriptor file joined to the consensus")
	document := flag.String("document", "", "JSON snapshot document file")
	redisAddr := flag.String("redis", "", "Redis address holding a JSON snapshot document")
	redisKey := flag.String("redis-key", "", "Redis key of the snapshot document")
	logLevel := flag.String("log-level", os.Getenv("MARGOT_LOG_LEVEL"), "log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	src := &cfg.Source
	switch {
	case *document != "":
		*src = config.SourceConfig{Document: *document}
	case *redisAddr != "":
		src.Document = ""
		src.Redis.Address = *redisAddr
	case *consensus != "":
		*src = config.SourceConfig{Consensus: *consensus}
	}
	if *microdescs != "" {
		src.Microdescs = *microdescs
	}
	if *redisKey != "" {
		src.Redis.Key = *redisKey
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := control.NewRunner(control.NewSource(cfg.Source), control.Env{
		Stdout:    os.Stdout,
		Artifacts: control.ArtifactsConfig(cfg.Artifacts),
	})
	if err := runner.Run(ctx, cmd); err != nil {
		fatal(err)
	}
}

func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[-] %v\n", err)
	os.Exit(1)
}

// parseCommand builds a command from the arguments after the global flags.
// Filters are parsed here so that a bad filter fails before any snapshot is
// loaded.
func parseCommand(args []string) (control.Command, error) {
	if len(args) == 0 {
		return nil, errors.New("missing command")
	}
	name, args := args[0], args[1:]

	switch name {
	case "find":
		fs := newFlagSet(name)
		oneline := fs.Bool("l", false, "one line per relay")
		filters, err := parseWithFilters(fs, args)
		if err != nil {
			return nil, err
		}
		return control.Find{Filters: filters, Oneline: *oneline}, nil

	case "count":
		fs := newFlagSet(name)
		list := fs.Bool("l", false, "list the relays matching each filter")
		filters, err := parseWithFilters(fs, args)
		if err != nil {
			return nil, err
		}
		return control.Count{Filters: filters, List: *list}, nil

	case "config":
		if len(args) < 2 {
			return nil, errors.New("config: want <reject|badexit|middleonly> <ticket> <filters...>")
		}
		kind, err := control.ParseConfigKind(args[0])
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		ticket, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("config: invalid ticket %q", args[1])
		}
		filters, err := engine.ParseFilterSet(args[2:])
		if err != nil {
			return nil, err
		}
		return control.Config{Kind: kind, Ticket: uint32(ticket), Filters: filters}, nil

	case "like":
		if len(args) != 1 {
			return nil, errors.New("like: want <nickname>")
		}
		return control.Like{Name: args[0]}, nil

	case "sybil":
		if len(args) == 0 || args[0] != "exitpolicy" {
			return nil, errors.New("sybil: want exitpolicy")
		}
		fs := newFlagSet("sybil exitpolicy")
		partial := fs.Bool("partial", false, "also report policies partially matching the Reduced Exit Policy")
		if err := fs.Parse(args[1:]); err != nil {
			return nil, err
		}
		return control.ExitPolicy{IncludePartial: *partial}, nil

	case "sybilhunter":
		if len(args) != 1 {
			return nil, errors.New("sybilhunter: want <fingerprint>")
		}
		return control.SybilHunter{Fingerprint: args[0]}, nil
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseWithFilters parses leading flags and returns the rest as a filter set.
// Filter tokens contain a colon and may start with '-', so flag parsing stops
// at the first one.
func parseWithFilters(fs *flag.FlagSet, args []string) (*engine.FilterSet, error) {
	i := 0
	for i < len(args) && !strings.Contains(args[i], ":") {
		i++
	}
	if err := fs.Parse(args[:i]); err != nil {
		return nil, fmt.Errorf("%s: %w", fs.Name(), err)
	}
	return engine.ParseFilterSet(append(fs.Args(), args[i:]...))
}
