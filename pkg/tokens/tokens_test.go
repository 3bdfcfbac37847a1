package tokens_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

var testEpoch = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, secret string) (tokens.Issuer, tokens.Validator) {
	t.Helper()
	issuer, validator, err := tokens.InitServer([]byte(secret), &fixedClock{now: testEpoch})
	if err != nil {
		t.Fatalf("InitServer failed: %v", err)
	}
	return issuer, validator
}

func issue(t *testing.T, issuer tokens.Issuer, claim string, policy tokens.Policy) tokens.Token {
	t.Helper()
	token, err := issuer.Issue(claim, policy)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return token
}

func TestInitServer_EmptySecret(t *testing.T) {
	t.Parallel()

	// empty secret is refused
	_, _, err := tokens.InitServer(nil, nil)
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestToken_RoundTrip(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestServer(t, "s1")

	// issue token
	original := issue(t, issuer, "alice", tokens.ProofPolicy())

	// parse wire form
	parsed, err := tokens.ParseToken(original.Encoded())
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}

	// all fields survive the round trip
	if parsed.Claim() != original.Claim() {
		t.Errorf("Claim = %s, want %s", parsed.Claim(), original.Claim())
	}
	if !parsed.IssuedAt().Equal(original.IssuedAt()) {
		t.Errorf("IssuedAt = %v, want %v", parsed.IssuedAt(), original.IssuedAt())
	}
	if parsed.Nonce() != original.Nonce() {
		t.Errorf("Nonce = %s, want %s", parsed.Nonce(), original.Nonce())
	}
	if parsed.Signature() != original.Signature() {
		t.Errorf("Signature = %s, want %s", parsed.Signature(), original.Signature())
	}
	if parsed.Encoded() != original.Encoded() {
		t.Errorf("Encoded = %s, want %s", parsed.Encoded(), original.Encoded())
	}
}

func TestToken_WireFormat(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestServer(t, "s1")

	token := issue(t, issuer, "alice", tokens.SessionPolicy(tokens.DefaultSessionLifetime))

	// four dot-joined fields, claim first
	parts := strings.Split(token.Encoded(), ".")
	if len(parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(parts))
	}
	if parts[0] != "alice" {
		t.Errorf("claim field = %s, want alice", parts[0])
	}
	if len(parts[2]) != 32 {
		t.Errorf("nonce length = %d, want 32", len(parts[2]))
	}

	// signature is cookie and delimiter safe
	if strings.ContainsAny(parts[3], ";=/+.") {
		t.Errorf("signature contains unsafe characters: %s", parts[3])
	}
}

func TestIssue_InvalidClaim(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestServer(t, "s1")

	tests := []struct {
		name  string
		claim string
	}{
		{"empty", ""},
		{"contains delimiter", "ali.ce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Issue(tt.claim, tokens.ProofPolicy())
			if !errors.Is(err, tokens.ErrClaimInvalid()) {
				t.Errorf("expected ErrClaimInvalid, got %v", err)
			}
		})
	}
}

func TestIssue_UniqueNonces(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestServer(t, "s1")

	// same claim in the same millisecond still yields distinct tokens
	a := issue(t, issuer, "alice", tokens.ProofPolicy())
	b := issue(t, issuer, "alice", tokens.ProofPolicy())
	if a.Nonce() == b.Nonce() {
		t.Error("expected distinct nonces")
	}
	if a.Encoded() == b.Encoded() {
		t.Error("expected distinct tokens")
	}
}

func TestIssueBound_SharesNonce(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	session := issue(t, issuer, "alice", tokens.SessionPolicy(tokens.DefaultSessionLifetime))

	// bound token reuses the nonce under another purpose
	marker, err := issuer.IssueBound(session.Claim(), session.Nonce(), tokens.FreshPolicy())
	if err != nil {
		t.Fatalf("IssueBound failed: %v", err)
	}
	if marker.Nonce() != session.Nonce() {
		t.Errorf("marker nonce = %s, want %s", marker.Nonce(), session.Nonce())
	}
	if _, err := validator.Verify(marker.Encoded(), testEpoch, tokens.FreshPolicy()); err != nil {
		t.Errorf("marker should verify: %v", err)
	}
}

func TestVerify_Accepts(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	token := issue(t, issuer, "alice", tokens.ProofPolicy())

	// freshly issued token verifies and yields its claim
	verified, err := validator.Verify(token.Encoded(), testEpoch, tokens.ProofPolicy())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Claim() != "alice" {
		t.Errorf("Claim = %s, want alice", verified.Claim())
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	_, validator := newTestServer(t, "s1")

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"three parts", "alice.abc.nonce"},
		{"five parts", "alice.abc.nonce.sig.extra"},
		{"empty claim", ".abc.nonce.sig"},
		{"empty signature", "alice.abc.nonce."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Verify(tt.encoded, testEpoch, tokens.ProofPolicy())
			if !errors.Is(err, tokens.ErrTokenMalformed()) {
				t.Errorf("expected ErrTokenMalformed, got %v", err)
			}
		})
	}
}

func TestVerify_FlippedSignature(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	token := issue(t, issuer, "alice", tokens.ProofPolicy())
	encoded := token.Encoded()
	sigStart := len(encoded) - len(token.Signature())

	// every single-character change in the signature is rejected
	for i := sigStart; i < len(encoded); i++ {
		replacement := byte('A')
		if encoded[i] == 'A' {
			replacement = 'B'
		}
		tampered := encoded[:i] + string(replacement) + encoded[i+1:]

		_, err := validator.Verify(tampered, testEpoch, tokens.ProofPolicy())
		if !errors.Is(err, tokens.ErrTokenBadSignature()) {
			t.Fatalf("index %d: expected ErrTokenBadSignature, got %v", i, err)
		}
	}
}

func TestVerify_TamperedFields(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	token := issue(t, issuer, "alice", tokens.ProofPolicy())
	parts := strings.Split(token.Encoded(), ".")

	tests := []struct {
		name  string
		parts []string
	}{
		{"claim", []string{"bob", parts[1], parts[2], parts[3]}},
		{"issuedAt", []string{parts[0], parts[1] + "0", parts[2], parts[3]}},
		{"nonce", []string{parts[0], parts[1], strings.Repeat("0", 32), parts[3]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.Verify(strings.Join(tt.parts, "."), testEpoch, tokens.ProofPolicy())
			if !errors.Is(err, tokens.ErrTokenBadSignature()) {
				t.Errorf("expected ErrTokenBadSignature, got %v", err)
			}
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	issuer, _ := newTestServer(t, "s1")
	_, otherValidator := newTestServer(t, "s2")

	token := issue(t, issuer, "alice", tokens.ProofPolicy())

	// tokens from another secret are rejected
	_, err := otherValidator.Verify(token.Encoded(), testEpoch, tokens.ProofPolicy())
	if !errors.Is(err, tokens.ErrTokenBadSignature()) {
		t.Errorf("expected ErrTokenBadSignature, got %v", err)
	}
}

func TestVerify_PurposeSeparation(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	proof := issue(t, issuer, "alice", tokens.ProofPolicy())
	session := issue(t, issuer, "alice", tokens.SessionPolicy(tokens.DefaultSessionLifetime))

	// a proof cannot pose as a session or a fresh marker
	if _, err := validator.Verify(proof.Encoded(), testEpoch, tokens.SessionPolicy(tokens.DefaultSessionLifetime)); !errors.Is(err, tokens.ErrTokenBadSignature()) {
		t.Errorf("proof as session: expected ErrTokenBadSignature, got %v", err)
	}
	if _, err := validator.Verify(proof.Encoded(), testEpoch, tokens.FreshPolicy()); !errors.Is(err, tokens.ErrTokenBadSignature()) {
		t.Errorf("proof as marker: expected ErrTokenBadSignature, got %v", err)
	}

	// a session cannot pose as a proof
	if _, err := validator.Verify(session.Encoded(), testEpoch, tokens.ProofPolicy()); !errors.Is(err, tokens.ErrTokenBadSignature()) {
		t.Errorf("session as proof: expected ErrTokenBadSignature, got %v", err)
	}
}

func TestUnknownPurpose(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")
	typo := tokens.Policy{Purpose: "sesion", MaxAge: time.Hour}

	// an unknown purpose neither signs nor verifies
	if _, err := issuer.Issue("alice", typo); !errors.Is(err, tokens.ErrUnknownPurpose()) {
		t.Errorf("Issue: expected ErrUnknownPurpose, got %v", err)
	}
	session := issue(t, issuer, "alice", tokens.SessionPolicy(0))
	if _, err := validator.Verify(session.Encoded(), testEpoch, typo); !errors.Is(err, tokens.ErrUnknownPurpose()) {
		t.Errorf("Verify: expected ErrUnknownPurpose, got %v", err)
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	tests := []struct {
		name   string
		policy tokens.Policy
	}{
		{"proof", tokens.ProofPolicy()},
		{"fresh", tokens.FreshPolicy()},
		{"session 24h", tokens.SessionPolicy(24 * time.Hour)},
		{"session 30d", tokens.SessionPolicy(tokens.MaxSessionLifetime)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issue(t, issuer, "alice", tt.policy)
			ttl := tt.policy.MaxAge

			// one millisecond before the deadline is accepted
			if _, err := validator.Verify(token.Encoded(), testEpoch.Add(ttl-time.Millisecond), tt.policy); err != nil {
				t.Errorf("expected accept before deadline, got %v", err)
			}

			// one millisecond after the deadline is expired
			_, err := validator.Verify(token.Encoded(), testEpoch.Add(ttl+time.Millisecond), tt.policy)
			if !errors.Is(err, tokens.ErrTokenExpired()) {
				t.Errorf("expected ErrTokenExpired after deadline, got %v", err)
			}
		})
	}
}

func TestVerify_ExpiredCarriesClaim(t *testing.T) {
	t.Parallel()
	issuer, validator := newTestServer(t, "s1")

	token := issue(t, issuer, "alice", tokens.ProofPolicy())

	// expired token still reports the signed claim
	verified, err := validator.Verify(token.Encoded(), testEpoch.Add(time.Hour), tokens.ProofPolicy())
	if !errors.Is(err, tokens.ErrTokenExpired()) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if verified.Claim() != "alice" {
		t.Errorf("Claim = %s, want alice", verified.Claim())
	}
	if tokens.Context(err) == "" {
		t.Error("expected diagnostic context on validation error")
	}
}

func TestSessionPolicy_Clamps(t *testing.T) {
	t.Parallel()

	if got := tokens.SessionPolicy(time.Hour).MaxAge; got != tokens.MinSessionLifetime {
		t.Errorf("short lifetime clamped to %v, want %v", got, tokens.MinSessionLifetime)
	}
	if got := tokens.SessionPolicy(365 * 24 * time.Hour).MaxAge; got != tokens.MaxSessionLifetime {
		t.Errorf("long lifetime clamped to %v, want %v", got, tokens.MaxSessionLifetime)
	}
	if got := tokens.SessionPolicy(0).MaxAge; got != tokens.DefaultSessionLifetime {
		t.Errorf("zero lifetime = %v, want %v", got, tokens.DefaultSessionLifetime)
	}
	if got := tokens.SessionPolicy(72 * time.Hour).MaxAge; got != 72*time.Hour {
		t.Errorf("lifetime = %v, want 72h", got)
	}
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		encoded string
	}{
		{"two parts", "alice.abc"},
		{"empty nonce", "alice.abc..sig"},
		{"bad issuedAt", "alice.!!.nonce.sig"},
		{"uppercase issuedAt", "alice.ABC.nonce.sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokens.ParseToken(tt.encoded)
			if !errors.Is(err, tokens.ErrTokenMalformed()) {
				t.Errorf("expected ErrTokenMalformed, got %v", err)
			}
		})
	}
}
