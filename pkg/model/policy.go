package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PolicyAction is the verdict of a port policy rule.
type PolicyAction int

const (
	Reject PolicyAction = iota
	Accept
)

func (a PolicyAction) String() string {
	if a == Accept {
		return "accept"
	}
	return "reject"
}

// PortRange is an inclusive range of ports, 1 <= Lo <= Hi.
type PortRange struct {
	Lo, Hi uint16
}

func (r PortRange) Contains(port uint16) bool {
	return port >= r.Lo && port <= r.Hi
}

func (r PortRange) String() string {
	if r.Lo == r.Hi {
		return strconv.Itoa(int(r.Lo))
	}
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

// PortRule applies Action to every port of Range.
type PortRule struct {
	Action PolicyAction
	Range  PortRange
}

// PortPolicy is an ordered list of port rules, as published in policy
// summaries ("accept 80,443" or "reject 25,119"). The first matching rule
// decides. A port matching no rule gets the opposite of the listed action, so
// an accept list rejects everything else and a reject list accepts everything
// else. The zero value rejects every port.
type PortPolicy struct {
	Rules []PortRule
}

// ParsePortPolicy parses "<accept|reject> <ports>" where ports are single
// ports or lo-hi ranges separated by commas and/or whitespace.
func ParsePortPolicy(s string) (PortPolicy, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) < 2 {
		return PortPolicy{}, fmt.Errorf("%w: %q", ErrWrongPolicy, s)
	}

	var action PolicyAction
	switch fields[0] {
	case "accept":
		action = Accept
	case "reject":
		action = Reject
	default:
		return PortPolicy{}, fmt.Errorf("%w: unknown action %q", ErrWrongPolicy, fields[0])
	}

	rules := make([]PortRule, 0, len(fields)-1)
	for _, f := range fields[1:] {
		rng, err := parsePortRange(f)
		if err != nil {
			return PortPolicy{}, err
		}
		rules = append(rules, PortRule{Action: action, Range: rng})
	}
	return PortPolicy{Rules: rules}, nil
}

func parsePortRange(s string) (PortRange, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	l, err := parsePolicyPort(lo)
	if err != nil {
		return PortRange{}, err
	}
	if !isRange {
		return PortRange{Lo: l, Hi: l}, nil
	}
	h, err := parsePolicyPort(hi)
	if err != nil {
		return PortRange{}, err
	}
	if l > h {
		return PortRange{}, fmt.Errorf("%w: inverted range %q", ErrWrongPolicy, s)
	}
	return PortRange{Lo: l, Hi: h}, nil
}

func parsePolicyPort(s string) (uint16, error) {
	p, err := strconv.ParseUint(s, 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("%w: invalid port %q", ErrWrongPolicy, s)
	}
	return uint16(p), nil
}

// Allows reports whether the policy permits connections to port. Port 0 is
// never allowed.
func (p PortPolicy) Allows(port uint16) bool {
	if port == 0 {
		return false
	}
	for _, r := range p.Rules {
		if r.Range.Contains(port) {
			return r.Action == Accept
		}
	}
	if len(p.Rules) == 0 {
		return false
	}
	return p.Rules[len(p.Rules)-1].Action == Reject
}

// Equal reports literal equality of the rule lists. Two policies allowing the
// same ports but written differently are not equal.
func (p PortPolicy) Equal(o PortPolicy) bool {
	if len(p.Rules) != len(o.Rules) {
		return false
	}
	for i := range p.Rules {
		if p.Rules[i] != o.Rules[i] {
			return false
		}
	}
	return true
}

// String renders the policy in summary form. Rules are grouped per action run,
// which round-trips any policy produced by ParsePortPolicy.
func (p PortPolicy) String() string {
	if len(p.Rules) == 0 {
		return "reject 1-65535"
	}
	var b strings.Builder
	for i, r := range p.Rules {
		switch {
		case i == 0:
			b.WriteString(r.Action.String())
			b.WriteByte(' ')
		case r.Action != p.Rules[i-1].Action:
			b.WriteString("; ")
			b.WriteString(r.Action.String())
			b.WriteByte(' ')
		default:
			b.WriteByte(',')
		}
		b.WriteString(r.Range.String())
	}
	return b.String()
}
