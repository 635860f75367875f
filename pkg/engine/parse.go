package engine

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/anyone-protocol/margot/pkg/ingest"
	"github.com/anyone-protocol/margot/pkg/model"
)

// ParseFilterSet parses every token; the first error aborts.
func ParseFilterSet(tokens []string) (*FilterSet, error) {
	terms := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		t, err := ParseTerm(tok)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return NewFilterSet(terms...), nil
}

// ParseTerm parses one "[-]key:value" token. The exclusion marker may also be
// written right before the colon ("fl-:guard").
func ParseTerm(token string) (Term, error) {
	key, value, ok := strings.Cut(token, ":")
	if !ok {
		return Term{}, fmt.Errorf("%w: %s", model.ErrInvalidFilter, token)
	}

	exclude := false
	if strings.HasPrefix(key, "-") {
		exclude, key = true, key[1:]
	}
	if strings.HasSuffix(key, "-") {
		exclude, key = true, key[:len(key)-1]
	}

	p, err := parsePredicate(key, value)
	if err != nil {
		return Term{}, err
	}
	return Term{Predicate: p, Exclude: exclude}, nil
}

func parsePredicate(key, value string) (Predicate, error) {
	switch key {
	case "a", "addr":
		prefix, err := parsePrefix(value)
		if err != nil {
			return nil, err
		}
		return &AddressPredicate{Prefix: prefix}, nil

	case "f", "fp":
		fp, err := model.ParseFingerprint(value)
		if err != nil {
			return nil, err
		}
		return &FingerprintPredicate{Fingerprint: fp}, nil

	case "ff", "fpfile":
		fps, err := readFingerprintList(value)
		if err != nil {
			return nil, err
		}
		return &FingerprintListPredicate{Path: value, Fingerprints: fps}, nil

	case "fl", "flag":
		flags, err := parseFlags(value)
		if err != nil {
			return nil, err
		}
		return &FlagPredicate{Flags: flags}, nil

	case "n", "nick":
		return &NicknamePredicate{Substring: value}, nil

	case "p", "port":
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: port %q: %v", model.ErrInvalidFilter, value, err)
		}
		return &PortPredicate{Port: uint16(port)}, nil

	case "v", "version":
		return &VersionPredicate{Substring: value}, nil

	// A policy already carries accept/reject, so the exclusion marker is
	// rarely useful here; it still negates the literal comparison.
	case "pp", "portpolicyfilter":
		policy, err := model.ParsePortPolicy(value)
		if err != nil {
			return nil, err
		}
		return &PortPolicyPredicate{Policy: policy}, nil

	case "pf", "portpolicyfile":
		policy, err := readPortPolicyFile(value)
		if err != nil {
			return nil, err
		}
		return &PortPolicyPredicate{Policy: policy}, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnrecognizedFilter, key)
}

// parsePrefix accepts a CIDR network or a bare address.
func parsePrefix(value string) (netip.Prefix, error) {
	if strings.Contains(value, "/") {
		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: address %q: %v", model.ErrInvalidFilter, value, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: address %q: %v", model.ErrInvalidFilter, value, err)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// parseFlags reads a comma-separated list of flag names.
func parseFlags(value string) (model.Flags, error) {
	var flags model.Flags
	for _, name := range strings.Split(value, ",") {
		f, ok := model.ParseFlag(strings.TrimSpace(name))
		if !ok {
			return 0, fmt.Errorf("%w: flag %q", model.ErrUnrecognizedFilter, name)
		}
		flags |= f
	}
	return flags, nil
}

// readPortPolicyFile reads a policy written as one action keyword followed by
// ports and ranges separated by any mix of whitespace and commas.
func readPortPolicyFile(path string) (model.PortPolicy, error) {
	data, err := ingest.ReadFile(path)
	if err != nil {
		return model.PortPolicy{}, err
	}

	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return model.PortPolicy{}, fmt.Errorf("%w: %s is empty", model.ErrWrongPolicy, path)
	}
	for _, f := range fields[1:] {
		if f == "accept" || f == "reject" {
			return model.PortPolicy{}, fmt.Errorf("%w: %s has more than one action", model.ErrWrongPolicy, path)
		}
	}

	policy, err := model.ParsePortPolicy(fields[0] + " " + strings.Join(fields[1:], ","))
	if err != nil {
		return model.PortPolicy{}, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}

// readFingerprintList reads whitespace-separated fingerprints. Malformed
// tokens are reported and skipped.
func readFingerprintList(path string) ([]model.Fingerprint, error) {
	data, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fps []model.Fingerprint
	for _, tok := range strings.Fields(string(data)) {
		fp, err := model.ParseFingerprint(tok)
		if err != nil {
			slog.Warn("skipping fingerprint", "file", path, "error", err)
			continue
		}
		fps = append(fps, fp)
	}
	if len(fps) == 0 {
		slog.Warn("fingerprint file has no usable entries", "file", path)
	}
	return fps, nil
}
