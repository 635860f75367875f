package output

import (
	"fmt"
	"io"
	"net/netip"
	"strings"
	"text/tabwriter"

	"github.com/anyone-protocol/margot/pkg/model"
)

const unknownVersion = "<Unknown>"

// ORPorts renders the relay's OR addresses as a comma-separated list.
func ORPorts(r *model.Relay) string {
	return joinAddrPorts(r.ORPorts)
}

func joinAddrPorts(aps []netip.AddrPort) string {
	parts := make([]string, len(aps))
	for i, ap := range aps {
		parts[i] = ap.String()
	}
	return strings.Join(parts, ", ")
}

// DescribeRelays prints relays either as a one-line-per-relay table or as a
// detailed block per relay. indent shifts every table line right.
func DescribeRelays(w io.Writer, relays []*model.Relay, oneline bool, indent int) error {
	if !oneline {
		for _, r := range relays {
			if err := describeRelay(w, r); err != nil {
				return err
			}
		}
		return nil
	}

	pad := strings.Repeat(" ", indent)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.Debug)
	fmt.Fprintf(tw, "%s\tNickname\tRSA\tED\tVersion\tORPorts\t\n", pad)
	for _, r := range relays {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			pad, r.Nickname, r.Fingerprint(), r.Ed25519ID, r.VersionOr(unknownVersion), ORPorts(r))
	}
	return tw.Flush()
}

func describeRelay(w io.Writer, r *model.Relay) error {
	_, err := fmt.Fprintf(w,
		"[+] Nickname: %s\n"+
			"  > Fingerprint: RSA: %s, ED: %s\n"+
			"  > Flags: %s\n"+
			"  > Weight: %s\n"+
			"  > Version: %s\n"+
			"  > ORPort(s): %s\n"+
			"  > IPv4 Policy: %s\n"+
			"  > IPv6 Policy: %s\n"+
			"  > Family: %s\n",
		r.Nickname,
		r.Fingerprint(), r.Ed25519ID,
		r.Flags,
		r.Weight,
		r.VersionOr(unknownVersion),
		ORPorts(r),
		r.IPv4Policy,
		r.IPv6Policy,
		strings.Join(r.Family, " "),
	)
	return err
}
