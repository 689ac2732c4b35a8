package memstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Connection is a recorded network connection.
// Started and Ended are unix seconds; Ended is zero while the connection
// is still active.
type Connection struct {
	ID          string           `json:"id"`
	ProfileName string           `json:"profile_name,omitempty"`
	Path        string           `json:"path,omitempty"`
	Domain      string           `json:"domain,omitempty"`
	ASN         int              `json:"asn,omitempty"`
	ASOwner     string           `json:"as_owner,omitempty"`
	Country     string           `json:"country,omitempty"`
	Direction   string           `json:"direction,omitempty"`
	RemoteIP    string           `json:"remote_ip,omitempty"`
	RemotePort  int              `json:"remote_port,omitempty"`
	IPProtocol  int              `json:"ip_protocol,omitempty"`
	Scope       string           `json:"scope,omitempty"`
	Verdict     netquery.Verdict `json:"verdict"`
	Encrypted   bool             `json:"encrypted,omitempty"`
	Tunneled    bool             `json:"tunneled,omitempty"`
	Started     int64            `json:"started"`
	Ended       int64            `json:"ended,omitempty"`
}

// Active reports whether the connection has not ended.
func (c *Connection) Active() bool {
	return c.Ended == 0
}

// row returns the connection as a store row using column names.
func (c *Connection) row() netquery.Row {
	var ended any
	if c.Ended != 0 {
		ended = c.Ended
	}
	return netquery.Row{
		"id":           c.ID,
		"profile_name": c.ProfileName,
		"path":         c.Path,
		"domain":       c.Domain,
		"asn":          c.ASN,
		"as_owner":     c.ASOwner,
		"country":      c.Country,
		"direction":    c.Direction,
		"remote_ip":    c.RemoteIP,
		"remote_port":  c.RemotePort,
		"ip_protocol":  c.IPProtocol,
		"scope":        c.Scope,
		"verdict":      int(c.Verdict),
		"allowed":      c.Verdict.Allowed(),
		"encrypted":    c.Encrypted,
		"tunneled":     c.Tunneled,
		"started":      c.Started,
		"ended":        ended,
		"active":       c.Active(),
	}
}

// columns are the fields a Connection exposes as a row.
var columns = func() map[string]bool {
	out := make(map[string]bool)
	for field := range (&Connection{}).row() {
		out[field] = true
	}
	return out
}()

// ReadConnections decodes a JSON array of connections.
func ReadConnections(r io.Reader) ([]Connection, error) {
	var conns []Connection
	if err := json.NewDecoder(r).Decode(&conns); err != nil {
		return nil, fmt.Errorf("decoding connections: %w", err)
	}
	return conns, nil
}

// LoadFile creates a store holding the connections in a JSON fixture file.
func LoadFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	conns, err := ReadConnections(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	s := New(opts...)
	s.Add(conns...)
	return s, nil
}
