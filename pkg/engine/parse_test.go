package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anyone-protocol/margot/pkg/model"
)

func TestParseTerm_Errors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"no colon", "guard", model.ErrInvalidFilter},
		{"unknown key", "color:red", model.ErrUnrecognizedFilter},
		{"unknown flag", "fl:shiny", model.ErrUnrecognizedFilter},
		{"bad cidr", "a:1.2.3.0/33", model.ErrInvalidFilter},
		{"bad address", "a:not-an-ip", model.ErrInvalidFilter},
		{"port too large", "p:65536", model.ErrInvalidFilter},
		{"port not numeric", "p:https", model.ErrInvalidFilter},
		{"fingerprint not hex", "fp:" + strings.Repeat("g", 40), model.ErrUndecodableFingerprint},
		{"fingerprint length", "fp:ABCDEF", model.ErrWrongFingerprintLength},
		{"policy inverted", "pp:accept 2023-43", model.ErrWrongPolicy},
		{"policy file missing", "pf:" + filepath.Join(os.TempDir(), "margot-no-such-policy"), model.ErrWrongIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTerm(tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseTerm(%q) error = %v, want %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestParseTerm_Keys(t *testing.T) {
	tests := []struct {
		token    string
		wantType Predicate
		exclude  bool
	}{
		{"a:10.0.0.0/8", &AddressPredicate{}, false},
		{"addr:2001:db8::/32", &AddressPredicate{}, false},
		{"f:$9695DFC35FFEB861329B9F1AB04C46397020CE31", &FingerprintPredicate{}, false},
		{"fp:" + strings.Repeat("x", 43), &FingerprintPredicate{}, false},
		{"fl:Guard", &FlagPredicate{}, false},
		{"-flag:badexit", &FlagPredicate{}, true},
		{"n:moria", &NicknamePredicate{}, false},
		{"nick-:moria", &NicknamePredicate{}, true},
		{"p:9001", &PortPredicate{}, false},
		{"port:0", &PortPredicate{}, false},
		{"v:0.4.8", &VersionPredicate{}, false},
		{"version:Tor", &VersionPredicate{}, false},
		{"pp:accept 20-23,43,53,79-81,88,110,143,194,220", &PortPolicyPredicate{}, false},
		{"portpolicyfilter:reject 25", &PortPolicyPredicate{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			term, err := ParseTerm(tt.token)
			if err != nil {
				t.Fatalf("ParseTerm(%q) error = %v", tt.token, err)
			}
			if got, want := typeName(term.Predicate), typeName(tt.wantType); got != want {
				t.Errorf("predicate = %s, want %s", got, want)
			}
			if term.Exclude != tt.exclude {
				t.Errorf("Exclude = %v, want %v", term.Exclude, tt.exclude)
			}
		})
	}
}

func typeName(p Predicate) string {
	switch p.(type) {
	case *AddressPredicate:
		return "address"
	case *FingerprintPredicate:
		return "fingerprint"
	case *FingerprintListPredicate:
		return "fingerprint list"
	case *FlagPredicate:
		return "flag"
	case *NicknamePredicate:
		return "nickname"
	case *PortPredicate:
		return "port"
	case *VersionPredicate:
		return "version"
	case *PortPolicyPredicate:
		return "port policy"
	}
	return "unknown"
}

func TestParseTerm_PortPolicyFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	good := write("accept.txt", "accept 20-23, 43\n53 79-81,\n88\n")
	term, err := ParseTerm("pf:" + good)
	if err != nil {
		t.Fatalf("ParseTerm() error = %v", err)
	}
	inline, _ := ParseTerm("pp:accept 20-23,43,53,79-81,88")
	got := term.Predicate.(*PortPolicyPredicate).Policy
	want := inline.Predicate.(*PortPolicyPredicate).Policy
	if !got.Equal(want) {
		t.Errorf("file policy = %s, want %s", got, want)
	}

	bad := map[string]string{
		"two actions": "accept 80\nreject 25\n",
		"no action":   "80,443\n",
		"empty":       "\n",
	}
	for name, content := range bad {
		t.Run(name, func(t *testing.T) {
			path := write(strings.ReplaceAll(name, " ", "_")+".txt", content)
			if _, err := ParseTerm("portpolicyfile:" + path); !errors.Is(err, model.ErrWrongPolicy) {
				t.Errorf("error = %v, want ErrWrongPolicy", err)
			}
		})
	}
}

func TestParseTerm_FingerprintFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-relays")
	content := "9695DFC35FFEB861329B9F1AB04C46397020CE31\n" +
		"not-a-fingerprint\n" +
		"$A1B2C3D4E5F60718293A4B5C6D7E8F9012345678   " + strings.Repeat("e", 43) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	term, err := ParseTerm("ff:" + path)
	if err != nil {
		t.Fatalf("malformed tokens must not fail the file: %v", err)
	}
	list := term.Predicate.(*FingerprintListPredicate)
	if len(list.Fingerprints) != 3 {
		t.Fatalf("got %d fingerprints, want 3", len(list.Fingerprints))
	}
	if list.Fingerprints[1].Canonical() != "A1B2C3D4E5F60718293A4B5C6D7E8F9012345678" {
		t.Errorf("order not preserved: %v", list.Fingerprints)
	}
	if list.Fingerprints[2].Kind != model.FingerprintED {
		t.Errorf("third entry should be ed25519")
	}

	fs := NewFilterSet(term, Term{Predicate: list, Exclude: true})
	if lists := fs.FingerprintLists(); len(lists) != 1 {
		t.Errorf("FingerprintLists() = %d, excluded lists must not count", len(lists))
	}
}
