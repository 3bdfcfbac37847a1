// Package service implements the setup handshake: minting setup proofs for
// allowed NFC tag claims, exchanging a proof for a session, and checking
// sessions (optionally with the freshness gate).
package service

import (
	"context"
	"errors"
	"time"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

var (
	ErrInvalidClaim   = errors.New("invalid claim")
	ErrForbidden      = errors.New("claim forbidden")
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad signature")
	ErrExpired        = errors.New("expired")
	ErrClaimMismatch  = errors.New("claim mismatch")
	ErrNoProof        = errors.New("no proof")
	ErrBadProof       = errors.New("bad proof")
	ErrNoSession      = errors.New("no session")
	ErrInternal       = errors.New("internal error")
)

// ClaimPolicy decides which claims may obtain tokens.
type ClaimPolicy interface {
	Allows(claim string) bool
}

// ProofLedger records spent setup proofs. Spend reports true only the
// first time a nonce is presented before expires; now is the verifier's
// clock, which the ledger uses for pruning and TTLs.
type ProofLedger interface {
	Spend(ctx context.Context, nonce string, now time.Time, expires time.Time) (bool, error)
}

// Service is stateless apart from its injected collaborators; one instance
// serves all requests concurrently.
type Service struct {
	tokenIssuer    tokens.Issuer
	tokenValidator tokens.Validator
	claimPolicy    ClaimPolicy
	proofLedger    ProofLedger
	clock          tokens.Clock
	sessionPolicy  tokens.Policy
}

// New wires a Service. A nil ledger leaves setup proofs replayable within
// their 60 second window; a nil clock means tokens.WallClock.
func New(
	issuer tokens.Issuer,
	validator tokens.Validator,
	policy ClaimPolicy,
	ledger ProofLedger,
	clock tokens.Clock,
	sessionLifetime time.Duration,
) *Service {
	if clock == nil {
		clock = tokens.WallClock
	}
	return &Service{
		tokenIssuer:    issuer,
		tokenValidator: validator,
		claimPolicy:    policy,
		proofLedger:    ledger,
		clock:          clock,
		sessionPolicy:  tokens.SessionPolicy(sessionLifetime),
	}
}

func (s *Service) SessionPolicy() tokens.Policy {
	return s.sessionPolicy
}

// SingleUseProofs reports whether spent proofs are tracked.
func (s *Service) SingleUseProofs() bool {
	return s.proofLedger != nil
}

func (s *Service) allows(claim string) bool {
	if s.claimPolicy == nil {
		return true
	}
	return s.claimPolicy.Allows(claim)
}
