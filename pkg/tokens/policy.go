package tokens

import "time"

const (
	PurposeProof   = "proof"
	PurposeSession = "session"
	PurposeFresh   = "fresh"
)

const (
	ProofLifetime          = 60 * time.Second
	FreshLifetime          = 60 * time.Second
	MinSessionLifetime     = 24 * time.Hour
	MaxSessionLifetime     = 30 * 24 * time.Hour
	DefaultSessionLifetime = MaxSessionLifetime
)

// Policy selects the signing key (by purpose) and the maximum age a token
// may reach before it is rejected as expired.
type Policy struct {
	Purpose string
	MaxAge  time.Duration
}

// ProofPolicy governs setup proofs, which are exchanged once for a session.
func ProofPolicy() Policy {
	return Policy{Purpose: PurposeProof, MaxAge: ProofLifetime}
}

// SessionPolicy governs session tokens. A zero lifetime means
// DefaultSessionLifetime; others outside [MinSessionLifetime,
// MaxSessionLifetime] are clamped.
func SessionPolicy(lifetime time.Duration) Policy {
	switch {
	case lifetime <= 0:
		lifetime = DefaultSessionLifetime
	case lifetime < MinSessionLifetime:
		lifetime = MinSessionLifetime
	case lifetime > MaxSessionLifetime:
		lifetime = MaxSessionLifetime
	}
	return Policy{Purpose: PurposeSession, MaxAge: lifetime}
}

// FreshPolicy governs the marker minted alongside a new session.
func FreshPolicy() Policy {
	return Policy{Purpose: PurposeFresh, MaxAge: FreshLifetime}
}
