package cache

// Result classifies the outcome of a lookup.
type Result int

const (
	// Miss means nothing usable was stored: absent, expired or malformed.
	Miss Result = iota
	// Hit means a live value was returned.
	Hit
	// Fault means the storage medium failed. Callers should treat it as a
	// miss but may want to log it distinctly.
	Fault
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Fault:
		return "fault"
	default:
		return "miss"
	}
}
