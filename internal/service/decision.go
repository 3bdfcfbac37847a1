package service

import (
	"context"
	"errors"
)

// Reason codes reported to callers.
const (
	ReasonInvalidClaim   = "invalid_claim"
	ReasonForbidden      = "forbidden"
	ReasonMalformedToken = "malformed_token"
	ReasonBadSignature   = "bad_signature"
	ReasonExpired        = "expired"
	ReasonClaimMismatch  = "claim_mismatch"
	ReasonNoProof        = "no_proof"
	ReasonBadProof       = "bad_proof"
	ReasonNoSession      = "no_session"
	ReasonInternal       = "internal"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrInvalidClaim, ReasonInvalidClaim},
	{ErrForbidden, ReasonForbidden},
	{ErrMalformedToken, ReasonMalformedToken},
	{ErrBadSignature, ReasonBadSignature},
	{ErrExpired, ReasonExpired},
	{ErrClaimMismatch, ReasonClaimMismatch},
	{ErrNoProof, ReasonNoProof},
	{ErrBadProof, ReasonBadProof},
	{ErrNoSession, ReasonNoSession},
}

// Reason maps an error from this package to its reason code. Unknown
// errors map to ReasonInternal; nil maps to "".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

type SessionDecision struct {
	OK     bool
	Reason string
	Claim  string
}

type StartDecision struct {
	OK         bool
	ProofToken string
	Reason     string
	Stage      Stage
}

type CompleteDecision struct {
	OK           bool
	SessionToken string
	FreshMarker  string
	Reason       string
	Stage        Stage
}

// CheckSession is the decision form of Check.
func (s *Service) CheckSession(
	session string,
	marker string,
	requireFreshness bool,
) SessionDecision {
	claim, err := s.Check(session, marker, requireFreshness)
	return SessionDecision{
		OK:     err == nil,
		Reason: Reason(err),
		Claim:  claim,
	}
}

// StartEscalation is the decision form of Start.
func (s *Service) StartEscalation(claim string) StartDecision {
	proof, err := s.Start(claim)
	if err != nil {
		return StartDecision{Reason: Reason(err), Stage: StageAwaitingProof}
	}
	return StartDecision{
		OK:         true,
		ProofToken: proof.Encoded(),
		Stage:      StageAwaitingProof,
	}
}

// CompleteEscalation is the decision form of Complete. Any failure leaves
// the caller awaiting a new proof.
func (s *Service) CompleteEscalation(
	ctx context.Context,
	proof string,
	claim string,
) CompleteDecision {
	escalation, err := s.Complete(ctx, proof, claim)
	if err != nil {
		return CompleteDecision{Reason: Reason(err), Stage: StageAwaitingProof}
	}
	return CompleteDecision{
		OK:           true,
		SessionToken: escalation.Session.Encoded(),
		FreshMarker:  escalation.FreshMarker.Encoded(),
		Stage:        StageSessionIssued,
	}
}
