// Package tokens issues and verifies the compact HMAC-signed tokens used by
// the tapgate setup handshake.
//
// A token is four dot-separated fields:
//
//	<claim>.<issuedAt>.<nonce>.<signature>
//
// The claim is the NFC tag identifier the token authorizes, issuedAt is
// milliseconds since the epoch in base 36, the nonce is 32 random hex
// characters and the signature is unpadded base64url HMAC-SHA256 over the
// first three fields joined with ".".
//
// Tokens carry no type field. Their kind is chosen by the Policy used to
// issue and verify them:
//
//   - ProofPolicy: setup proofs, valid for 60 seconds
//   - SessionPolicy: sessions, valid for 24 hours to 30 days
//   - FreshPolicy: the marker minted next to a new session, valid for 60 seconds
//
// Each policy purpose signs with its own key, derived from the shared secret
// with HKDF, so a setup proof can never be replayed as a session or marker.
//
// # Usage
//
//	issuer, validator, err := tokens.InitServer([]byte(secret), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	proof, err := issuer.Issue("tag-123", tokens.ProofPolicy())
//	cookieValue := proof.Encoded()
//
//	token, err := validator.Verify(cookieValue, time.Now(), tokens.ProofPolicy())
//	switch {
//	case errors.Is(err, tokens.ErrTokenMalformed()):
//	    // wrong number of fields
//	case errors.Is(err, tokens.ErrTokenBadSignature()):
//	    // tampered, or signed for another purpose
//	case errors.Is(err, tokens.ErrTokenExpired()):
//	    // token.Claim() is still populated
//	}
package tokens
