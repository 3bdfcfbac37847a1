package service

import (
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

// Check verifies a session token and returns its claim. With
// requireFreshness, the fresh marker minted alongside the session must also
// be present, unexpired, and bound to the same claim and nonce; otherwise
// Check fails with ErrExpired. Whenever the session signature is valid the
// claim is returned, even with an error, so callers can restart the
// handshake without asking for the tag again.
func (s *Service) Check(
	session string,
	marker string,
	requireFreshness bool,
) (
	string,
	error,
) {
	if session == "" {
		return "", ErrNoSession
	}

	now := s.clock.Now()
	token, err := s.tokenValidator.Verify(session, now, s.sessionPolicy)
	if err != nil {
		switch {
		case errors.Is(err, tokens.ErrTokenMalformed()):
			return "", fmt.Errorf("%w: %s", ErrMalformedToken, tokens.Context(err))
		case errors.Is(err, tokens.ErrTokenBadSignature()):
			return "", fmt.Errorf("%w: %s", ErrBadSignature, tokens.Context(err))
		case errors.Is(err, tokens.ErrTokenExpired()):
			return token.Claim(), fmt.Errorf("%w: session: %s", ErrExpired, tokens.Context(err))
		default:
			return "", fmt.Errorf("%w: couldn't verify session: %v", ErrInternal, err)
		}
	}

	claim := token.Claim()
	if !requireFreshness {
		return claim, nil
	}

	if marker == "" {
		return claim, fmt.Errorf("%w: no fresh marker", ErrExpired)
	}
	fresh, err := s.tokenValidator.Verify(marker, now, tokens.FreshPolicy())
	if err != nil {
		return claim, fmt.Errorf("%w: fresh marker: %v: %s", ErrExpired, err, tokens.Context(err))
	}
	if fresh.Claim() != claim || fresh.Nonce() != token.Nonce() {
		return claim, fmt.Errorf("%w: fresh marker belongs to another session", ErrExpired)
	}

	return claim, nil
}
