package memstore

import (
	"time"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// SampleConnections returns a small, fixed set of connections relative to
// now. It powers demo mode and tests.
func SampleConnections(now time.Time) []Connection {
	ts := now.Unix()
	return []Connection{
		{ID: "c1", Path: "/usr/bin/firefox", ProfileName: "Firefox", Domain: "example.com.", ASOwner: "EXAMPLE-NET", Country: "US", Direction: "outbound", RemoteIP: "93.184.216.34", RemotePort: 443, Verdict: netquery.VerdictAccept, Encrypted: true, Started: ts - 300, Ended: ts - 240},
		{ID: "c2", Path: "/usr/bin/firefox", ProfileName: "Firefox", Domain: "example.com.", ASOwner: "EXAMPLE-NET", Country: "US", Direction: "outbound", RemoteIP: "93.184.216.34", RemotePort: 443, Verdict: netquery.VerdictAccept, Encrypted: true, Started: ts - 120},
		{ID: "c3", Path: "/usr/bin/firefox", ProfileName: "Firefox", Domain: "tracker.ads.net.", ASOwner: "ADS-AS", Country: "DE", Direction: "outbound", RemoteIP: "203.0.113.7", RemotePort: 443, Verdict: netquery.VerdictBlock, Started: ts - 90, Ended: ts - 90},
		{ID: "c4", Path: "/usr/bin/curl", ProfileName: "curl", Domain: "api.github.com.", ASOwner: "GITHUB", Country: "US", Direction: "outbound", RemoteIP: "140.82.121.6", RemotePort: 443, Verdict: netquery.VerdictRerouteToTunnel, Tunneled: true, Started: ts - 60, Ended: ts - 30},
		{ID: "c5", Path: "/usr/lib/systemd/systemd-resolved", ProfileName: "systemd-resolved", Domain: "github.com.", ASOwner: "GITHUB", Country: "US", Direction: "outbound", RemoteIP: "127.0.0.53", RemotePort: 53, Verdict: netquery.VerdictRerouteToNameserver, Started: ts - 50, Ended: ts - 49},
		{ID: "c6", Path: "/usr/sbin/sshd", ProfileName: "sshd", Domain: "", ASOwner: "TELEKOM-AT", Country: "AT", Direction: "inbound", RemoteIP: "198.51.100.23", RemotePort: 51022, Verdict: netquery.VerdictDrop, Started: ts - 30, Ended: ts - 29},
		{ID: "c7", Path: "/usr/bin/curl", ProfileName: "curl", Domain: "example.org.", ASOwner: "EXAMPLE-NET", Country: "AT", Direction: "outbound", RemoteIP: "93.184.216.35", RemotePort: 80, Verdict: netquery.VerdictAccept, Started: ts - 20},
	}
}
