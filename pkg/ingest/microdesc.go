package ingest

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/anyone-protocol/margot/pkg/model"
)

// Microdesc holds the microdescriptor fields the consensus lacks.
type Microdesc struct {
	Ed25519ID  string
	Family     []string
	IPv6Policy model.PortPolicy
}

func (md Microdesc) apply(r *model.Relay) {
	r.Ed25519ID = md.Ed25519ID
	r.Family = md.Family
	r.IPv6Policy = md.IPv6Policy
}

// ParseMicrodescs splits a cached-microdescs file into entries keyed by the
// unpadded base64 SHA-256 digest the consensus "m" lines refer to. Annotation
// lines ("@last-listed ...") are not part of the digested text.
func ParseMicrodescs(data []byte) map[string]Microdesc {
	mds := make(map[string]Microdesc)

	var start = -1
	emit := func(end int) {
		if start < 0 {
			return
		}
		body := data[start:end]
		sum := sha256.Sum256(body)
		mds[base64.RawStdEncoding.EncodeToString(sum[:])] = parseMicrodesc(body)
		start = -1
	}

	for off := 0; off < len(data); {
		next := bytes.IndexByte(data[off:], '\n')
		if next < 0 {
			next = len(data)
		} else {
			next += off + 1
		}
		line := data[off:next]
		switch {
		case bytes.HasPrefix(line, []byte("onion-key")):
			emit(off)
			start = off
		case bytes.HasPrefix(line, []byte("@")):
			emit(off)
		}
		off = next
	}
	emit(len(data))
	return mds
}

func parseMicrodesc(body []byte) Microdesc {
	var md Microdesc
	for _, line := range strings.Split(string(body), "\n") {
		keyword, rest, _ := strings.Cut(line, " ")
		switch keyword {
		case "id":
			if kind, key, ok := strings.Cut(rest, " "); ok && kind == "ed25519" {
				md.Ed25519ID = strings.TrimSpace(key)
			}
		case "family":
			for _, member := range strings.Fields(rest) {
				if fp, ok := familyFingerprint(member); ok {
					md.Family = append(md.Family, fp)
				}
			}
		case "p6":
			p, err := model.ParsePortPolicy(rest)
			if err != nil {
				slog.Warn("ignoring microdescriptor p6 line", "value", rest, "error", err)
				continue
			}
			md.IPv6Policy = p
		}
	}
	return md
}

// familyFingerprint extracts the hex fingerprint of "$FP", "$FP=nick" or
// "$FP~nick" family members. Bare nicknames are not identities.
func familyFingerprint(member string) (string, bool) {
	if !strings.HasPrefix(member, "$") || len(member) < 41 {
		return "", false
	}
	fp, err := model.ParseFingerprint(member[:41])
	if err != nil {
		return "", false
	}
	return fp.Canonical(), true
}
