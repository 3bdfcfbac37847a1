package tokens

import (
	"errors"
	"fmt"
	"time"
)

type Issuer interface {
	Issue(claim string, policy Policy) (Token, error)
	IssueBound(claim string, nonce string, policy Policy) (Token, error)
}

type Validator interface {
	Verify(encoded string, now time.Time, policy Policy) (Token, error)
}

// Server implements both Issuer and Validator. It holds one derived signing
// key per token purpose and never changes after InitServer returns, so it is
// safe to share between goroutines.
type Server struct {
	secret  []byte
	signers map[string]*Signer
	clock   Clock
}

// InitServer derives the per-purpose signing keys from secret. A nil clock
// means WallClock.
func InitServer(
	secret []byte,
	clock Clock,
) (
	Issuer,
	Validator,
	error,
) {
	if len(secret) == 0 {
		return nil, nil, errors.New("tokens: empty signing secret")
	}
	if clock == nil {
		clock = WallClock
	}

	server := &Server{
		secret:  append([]byte(nil), secret...),
		signers: make(map[string]*Signer),
		clock:   clock,
	}
	for _, purpose := range []string{PurposeProof, PurposeSession, PurposeFresh} {
		signer, err := server.deriveSigner(purpose)
		if err != nil {
			return nil, nil, err
		}
		server.signers[purpose] = signer
	}
	return server, server, nil
}

func (server *Server) deriveSigner(purpose string) (*Signer, error) {
	key, err := deriveKey(server.secret, purpose)
	if err != nil {
		return nil, err
	}
	return NewSigner(key), nil
}

// signerFor only knows the purposes derived in InitServer.
func (server *Server) signerFor(purpose string) (*Signer, error) {
	signer, ok := server.signers[purpose]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownPurpose, purpose)
	}
	return signer, nil
}

//
// Issuer interface

// Issue mints a token for claim with a fresh nonce and the current time.
func (server *Server) Issue(
	claim string,
	policy Policy,
) (Token, error) {
	nonce, err := newNonce()
	if err != nil {
		return Token{}, err
	}
	return server.IssueBound(claim, nonce, policy)
}

// IssueBound mints a token that reuses an existing nonce. It lets a
// short-lived credential be tied to exactly one other token.
func (server *Server) IssueBound(
	claim string,
	nonce string,
	policy Policy,
) (Token, error) {
	if !ValidClaim(claim) {
		return Token{}, fmt.Errorf("%w: %q", errClaimInvalid, claim)
	}
	if !ValidClaim(nonce) {
		return Token{}, fmt.Errorf("tokens: invalid nonce %q", nonce)
	}

	signer, err := server.signerFor(policy.Purpose)
	if err != nil {
		return Token{}, err
	}

	issuedAt := time.UnixMilli(server.clock.Now().UnixMilli())
	token := Token{
		claim:    claim,
		issuedAt: issuedAt,
		nonce:    nonce,
	}
	token.signature = signer.Sign(Payload(claim, issuedAt, nonce))
	return token, nil
}

//
// Validator interface

// Verify checks structure, then signature, then age, stopping at the first
// failure. On ErrTokenExpired the returned token still carries the claim
// (its signature was valid), so callers can restart a flow for it.
func (server *Server) Verify(
	encoded string,
	now time.Time,
	policy Policy,
) (Token, error) {
	claim, issued, nonce, signature, err := splitToken(encoded)
	if err != nil {
		return Token{}, err
	}

	signer, err := server.signerFor(policy.Purpose)
	if err != nil {
		return Token{}, err
	}
	if !signer.Verify(joinFields(claim, issued, nonce), signature) {
		return Token{}, &validateError{
			context: fmt.Sprintf("token signature illegal for purpose %q", policy.Purpose),
			err:     errTokenBadSignature,
		}
	}

	token := Token{
		claim:     claim,
		nonce:     nonce,
		signature: signature,
	}

	issuedAt, err := decodeIssuedAt(issued)
	if err != nil {
		return token, &validateError{
			context: fmt.Sprintf("token issuedAt unreadable: %v", err),
			err:     errTokenExpired,
		}
	}
	token.issuedAt = issuedAt

	if age := token.Age(now); age > policy.MaxAge {
		return token, &validateError{
			context: fmt.Sprintf("token age %v exceeds %v", age, policy.MaxAge),
			err:     errTokenExpired,
		}
	}

	return token, nil
}
