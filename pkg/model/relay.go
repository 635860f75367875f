package model

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
)

// Flags is the set of directory flags assigned to a relay.
type Flags uint16

const (
	FlagAuthority Flags = 1 << iota
	FlagBadExit
	FlagExit
	FlagFast
	FlagGuard
	FlagHSDir
	FlagMiddleOnly
	FlagNoEdConsensus
	FlagRunning
	FlagStable
	FlagStaleDesc
	FlagV2Dir
	FlagValid
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagAuthority, "Authority"},
	{FlagBadExit, "BadExit"},
	{FlagExit, "Exit"},
	{FlagFast, "Fast"},
	{FlagGuard, "Guard"},
	{FlagHSDir, "HSDir"},
	{FlagMiddleOnly, "MiddleOnly"},
	{FlagNoEdConsensus, "NoEdConsensus"},
	{FlagRunning, "Running"},
	{FlagStable, "Stable"},
	{FlagStaleDesc, "StaleDesc"},
	{FlagV2Dir, "V2Dir"},
	{FlagValid, "Valid"},
}

// ParseFlag maps a flag name to its bit, ignoring case. The directory protocol
// spells flags case-sensitively ("BadExit") but analysts rarely do.
func ParseFlag(name string) (Flags, bool) {
	for _, f := range flagNames {
		if strings.EqualFold(f.name, name) {
			return f.flag, true
		}
	}
	return 0, false
}

// Contains reports whether every bit of other is set in f.
func (f Flags) Contains(other Flags) bool {
	return f&other == other
}

func (f Flags) String() string {
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, " ")
}

// Weight is the consensus weight of a relay. Unmeasured weights were voted
// without enough bandwidth measurements.
type Weight struct {
	Value    uint32
	Measured bool
}

func (w Weight) String() string {
	if w.Measured {
		return fmt.Sprintf("Measured(%d)", w.Value)
	}
	return fmt.Sprintf("Unmeasured(%d)", w.Value)
}

// Relay is one record of a directory snapshot.
// Relays are owned by a Snapshot and must be treated as read-only.
type Relay struct {
	Nickname string
	RSAID    [20]byte
	// Ed25519ID is the unpadded base64 identity key, empty when unknown.
	Ed25519ID string

	ORPorts []netip.AddrPort
	Flags   Flags

	// Version is the platform string ("Tor 0.4.8.9"); HasVersion is false when
	// the directory did not publish one.
	Version    string
	HasVersion bool

	Weight     Weight
	IPv4Policy PortPolicy
	IPv6Policy PortPolicy

	// Family holds the uppercase RSA fingerprints the relay declares as family.
	Family []string
}

// RSAHex returns the lowercase hex RSA fingerprint.
func (r *Relay) RSAHex() string {
	return hex.EncodeToString(r.RSAID[:])
}

// Fingerprint returns the uppercase RSA fingerprint as written in configs.
func (r *Relay) Fingerprint() string {
	return strings.ToUpper(r.RSAHex())
}

// VersionOr returns the version string or def when none was published.
func (r *Relay) VersionOr(def string) string {
	if !r.HasVersion {
		return def
	}
	return r.Version
}
