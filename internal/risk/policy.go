package risk

// Decision is the caller-side action for a risk score.
type Decision int

const (
	// Allow proceeds silently.
	Allow Decision = iota
	// Review proceeds but records a fraud attempt for audit.
	Review
	// Reject blocks the transaction and records a fraud attempt.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Review:
		return "review"
	case Reject:
		return "reject"
	default:
		return "allow"
	}
}

// flagThreshold marks fraud log entries that need manual attention.
const flagThreshold = 70

// Policy maps scores to decisions. Thresholds are exclusive.
type Policy struct {
	ReviewAbove int
	RejectAbove int
}

// DefaultPolicy rejects above 85 and reviews above 30.
var DefaultPolicy = Policy{ReviewAbove: 30, RejectAbove: 85}

// Decide returns the action for score.
func (p Policy) Decide(score int) Decision {
	switch {
	case score > p.RejectAbove:
		return Reject
	case score > p.ReviewAbove:
		return Review
	default:
		return Allow
	}
}
