package netquery

// Verdict is the store's classification of a connection's disposition.
// Values must match the backend enumeration.
type Verdict int8

const (
	VerdictUndecided           Verdict = 0
	VerdictUndeterminable      Verdict = 1
	VerdictAccept              Verdict = 2
	VerdictBlock               Verdict = 3
	VerdictDrop                Verdict = 4
	VerdictRerouteToNameserver Verdict = 5
	VerdictRerouteToTunnel     Verdict = 6
	VerdictFailed              Verdict = 7
)

// AllowedVerdicts are the verdicts under which traffic was let through.
var AllowedVerdicts = []Verdict{
	VerdictAccept,
	VerdictRerouteToNameserver,
	VerdictRerouteToTunnel,
}

// String returns the verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictUndecided:
		return "undecided"
	case VerdictUndeterminable:
		return "undeterminable"
	case VerdictAccept:
		return "accept"
	case VerdictBlock:
		return "block"
	case VerdictDrop:
		return "drop"
	case VerdictRerouteToNameserver:
		return "reroute_to_nameserver"
	case VerdictRerouteToTunnel:
		return "reroute_to_tunnel"
	case VerdictFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Allowed reports whether v is one of AllowedVerdicts.
func (v Verdict) Allowed() bool {
	for _, a := range AllowedVerdicts {
		if v == a {
			return true
		}
	}
	return false
}

// AllowedSet returns AllowedVerdicts as an In predicate.
func AllowedSet() In {
	set := make(In, len(AllowedVerdicts))
	for i, v := range AllowedVerdicts {
		set[i] = v
	}
	return set
}
