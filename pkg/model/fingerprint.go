package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	rsaFingerprintLen     = 40
	ed25519FingerprintLen = 43
)

// FingerprintKind tells which identity key a Fingerprint refers to.
type FingerprintKind int

const (
	FingerprintRSA FingerprintKind = iota
	FingerprintED
)

// Fingerprint matches relays by identity. RSA fingerprints match on a
// case-insensitive hex substring, Ed25519 fingerprints on exact equality.
type Fingerprint struct {
	Kind  FingerprintKind
	Value string
}

// ParseFingerprint accepts a 40-char hex RSA fingerprint or a 43-char Ed25519
// identity, with an optional leading "$".
func ParseFingerprint(s string) (Fingerprint, error) {
	fp := strings.TrimPrefix(s, "$")
	switch len(fp) {
	case rsaFingerprintLen:
		if _, err := hex.DecodeString(fp); err != nil {
			return Fingerprint{}, fmt.Errorf("%w: %s", ErrUndecodableFingerprint, s)
		}
		return Fingerprint{Kind: FingerprintRSA, Value: strings.ToLower(fp)}, nil
	case ed25519FingerprintLen:
		return Fingerprint{Kind: FingerprintED, Value: fp}, nil
	default:
		return Fingerprint{}, fmt.Errorf("%w: %s", ErrWrongFingerprintLength, s)
	}
}

// Match reports whether the relay carries this identity.
func (f Fingerprint) Match(r *Relay) bool {
	switch f.Kind {
	case FingerprintRSA:
		return strings.Contains(r.RSAHex(), strings.ToLower(f.Value))
	case FingerprintED:
		return r.Ed25519ID != "" && r.Ed25519ID == f.Value
	}
	return false
}

// Canonical returns the form written to configuration files: uppercase hex for
// RSA, the encoded key unchanged for Ed25519.
func (f Fingerprint) Canonical() string {
	if f.Kind == FingerprintRSA {
		return strings.ToUpper(f.Value)
	}
	return f.Value
}

func (f Fingerprint) String() string {
	return f.Value
}
