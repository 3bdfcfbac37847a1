package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

// Stage is a position in the setup handshake.
type Stage int

const (
	StageAwaitingProof Stage = iota
	StageVerified
	StageSessionIssued
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingProof:
		return "awaiting_proof"
	case StageVerified:
		return "verified"
	case StageSessionIssued:
		return "session_issued"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Escalation is the outcome of a completed handshake: the long-lived
// session and the short-lived marker bound to it.
type Escalation struct {
	Session     tokens.Token
	FreshMarker tokens.Token
}

// VerifiedProof is a setup proof that passed every check. Only a
// VerifiedProof can mint a session, and only once.
type VerifiedProof struct {
	service *Service
	claim   string
	minted  bool
}

func (v *VerifiedProof) Claim() string { return v.claim }

func (v *VerifiedProof) Stage() Stage {
	if v.minted {
		return StageSessionIssued
	}
	return StageVerified
}

// Start mints a setup proof for claim. Each call yields a new proof.
func (s *Service) Start(
	claim string,
) (
	tokens.Token,
	error,
) {
	claim = strings.TrimSpace(claim)
	if !tokens.ValidClaim(claim) {
		return tokens.Token{}, fmt.Errorf("%w: %q", ErrInvalidClaim, claim)
	}
	if !s.allows(claim) {
		return tokens.Token{}, fmt.Errorf("%w: %s", ErrForbidden, claim)
	}

	proof, err := s.tokenIssuer.Issue(claim, tokens.ProofPolicy())
	if err != nil {
		return tokens.Token{}, fmt.Errorf("%w: couldn't issue setup proof: %v", ErrInternal, err)
	}
	return proof, nil
}

// Complete exchanges a setup proof for a session.
func (s *Service) Complete(
	ctx context.Context,
	proof string,
	claim string,
) (
	*Escalation,
	error,
) {
	verified, err := s.VerifyProof(ctx, proof, claim)
	if err != nil {
		return nil, err
	}
	return verified.MintSession()
}

// VerifyProof checks a presented setup proof against the claim of the
// completing request. Checks run in order: claim shape, presence,
// signature and age, claim binding, allow-list, and finally single use.
func (s *Service) VerifyProof(
	ctx context.Context,
	proof string,
	claim string,
) (
	*VerifiedProof,
	error,
) {
	claim = strings.TrimSpace(claim)
	if !tokens.ValidClaim(claim) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidClaim, claim)
	}
	if proof == "" {
		return nil, ErrNoProof
	}

	now := s.clock.Now()
	token, err := s.tokenValidator.Verify(proof, now, tokens.ProofPolicy())
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrTokenExpired()):
			return nil, fmt.Errorf("%w: setup proof: %v", ErrExpired, tokens.Context(err))
		case errors.Is(err, tokens.ErrTokenMalformed()),
			errors.Is(err, tokens.ErrTokenBadSignature()):
			return nil, fmt.Errorf("%w: %v: %s", ErrBadProof, err, tokens.Context(err))
		default:
			return nil, fmt.Errorf("%w: couldn't verify setup proof: %v", ErrInternal, err)
		}
	}

	if token.Claim() != claim {
		return nil, fmt.Errorf("%w: proof for %q presented as %q", ErrClaimMismatch, token.Claim(), claim)
	}

	if !s.allows(claim) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, claim)
	}

	if s.proofLedger != nil {
		expires := token.IssuedAt().Add(tokens.ProofLifetime)
		first, err := s.proofLedger.Spend(ctx, token.Nonce(), now, expires)
		if err != nil {
			return nil, fmt.Errorf("%w: couldn't record setup proof: %v", ErrInternal, err)
		}
		if !first {
			return nil, fmt.Errorf("%w: setup proof already used", ErrBadProof)
		}
	}

	return &VerifiedProof{service: s, claim: claim}, nil
}

// MintSession issues the session token and the fresh marker. The marker
// reuses the session nonce, binding it to this one session.
func (v *VerifiedProof) MintSession() (*Escalation, error) {
	if v.minted {
		return nil, fmt.Errorf("%w: session already minted from this proof", ErrBadProof)
	}
	s := v.service

	session, err := s.tokenIssuer.Issue(v.claim, s.sessionPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't issue session: %v", ErrInternal, err)
	}
	marker, err := s.tokenIssuer.IssueBound(v.claim, session.Nonce(), tokens.FreshPolicy())
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't issue fresh marker: %v", ErrInternal, err)
	}

	v.minted = true
	return &Escalation{
		Session:     session,
		FreshMarker: marker,
	}, nil
}
