package model

import (
	"errors"
	"testing"
)

func TestParsePortPolicy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "commas", input: "accept 20-23,43,53,79-81", want: "accept 20-23,43,53,79-81"},
		{name: "mixed separators", input: "accept 20-23, 43\n53\t79-81", want: "accept 20-23,43,53,79-81"},
		{name: "reject", input: "reject 25,119", want: "reject 25,119"},
		{name: "inverted range", input: "accept 2023-43", wantErr: true},
		{name: "port out of range", input: "accept 80,65536", wantErr: true},
		{name: "no ports", input: "accept", wantErr: true},
		{name: "bad action", input: "allow 80", wantErr: true},
		{name: "port zero", input: "accept 0-80", wantErr: true},
		{name: "not a number", input: "accept http", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePortPolicy(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrWrongPolicy) {
					t.Fatalf("ParsePortPolicy(%q) error = %v, want ErrWrongPolicy", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePortPolicy(%q) unexpected error: %v", tt.input, err)
			}
			if got := p.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPortPolicyAllows(t *testing.T) {
	accept, _ := ParsePortPolicy("accept 80,443,1000-2000")
	reject, _ := ParsePortPolicy("reject 25")

	tests := []struct {
		name   string
		policy PortPolicy
		port   uint16
		want   bool
	}{
		{"accept listed", accept, 443, true},
		{"accept range bound", accept, 2000, true},
		{"accept unlisted", accept, 22, false},
		{"reject listed", reject, 25, false},
		{"reject unlisted", reject, 80, true},
		{"port zero", reject, 0, false},
		{"empty policy", PortPolicy{}, 80, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Allows(tt.port); got != tt.want {
				t.Errorf("Allows(%d) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

func TestPortPolicyEqualIsLiteral(t *testing.T) {
	a, _ := ParsePortPolicy("accept 80,443")
	b, _ := ParsePortPolicy("accept 80, 443")
	c, _ := ParsePortPolicy("accept 443,80")

	if !a.Equal(b) {
		t.Error("separator differences should not matter")
	}
	if a.Equal(c) {
		t.Error("rule order is part of the policy identity")
	}
}
