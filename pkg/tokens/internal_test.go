package tokens

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func TestPayload_ExactBytes(t *testing.T) {
	t.Parallel()

	// 1000 ms is "rs" in base 36
	got := Payload("alice", time.UnixMilli(1000), "n0nce")
	if got != "alice.rs.n0nce" {
		t.Errorf("Payload = %q, want %q", got, "alice.rs.n0nce")
	}
}

func TestPayload_MatchesSignedPrefix(t *testing.T) {
	t.Parallel()
	issuer, _, err := InitServer([]byte("s1"), nil)
	if err != nil {
		t.Fatalf("InitServer failed: %v", err)
	}

	token, err := issuer.Issue("alice", ProofPolicy())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// the wire form is the signed payload plus the signature
	want := Payload(token.Claim(), token.IssuedAt(), token.Nonce()) + "." + token.Signature()
	if token.Encoded() != want {
		t.Errorf("Encoded = %q, want %q", token.Encoded(), want)
	}
}

func TestSigner_KnownVector(t *testing.T) {
	t.Parallel()

	// RFC 4231 test case 2
	signer := NewSigner([]byte("Jefe"))
	got := signer.Sign("what do ya want for nothing?")
	raw, err := base64.RawURLEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("signature is not raw base64url: %v", err)
	}
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if hex.EncodeToString(raw) != want {
		t.Errorf("HMAC = %s, want %s", hex.EncodeToString(raw), want)
	}
}

func TestSigner_VerifyRejectsTruncation(t *testing.T) {
	t.Parallel()
	signer := NewSigner([]byte("key"))
	sig := signer.Sign("payload")

	if !signer.Verify("payload", sig) {
		t.Fatal("expected full signature to verify")
	}
	if signer.Verify("payload", sig[:len(sig)-1]) {
		t.Error("truncated signature must not verify")
	}
}

func TestDeriveKey_PurposesDiffer(t *testing.T) {
	t.Parallel()

	proof, err := deriveKey([]byte("s1"), PurposeProof)
	if err != nil {
		t.Fatalf("deriveKey failed: %v", err)
	}
	session, err := deriveKey([]byte("s1"), PurposeSession)
	if err != nil {
		t.Fatalf("deriveKey failed: %v", err)
	}
	if string(proof) == string(session) {
		t.Error("derived keys must differ per purpose")
	}
	if len(proof) != derivedKeySize {
		t.Errorf("key length = %d, want %d", len(proof), derivedKeySize)
	}
}

func TestVerify_UnreadableIssuedAt(t *testing.T) {
	t.Parallel()
	_, validator, err := InitServer([]byte("s1"), nil)
	if err != nil {
		t.Fatalf("InitServer failed: %v", err)
	}
	server := validator.(*Server)

	tests := []struct {
		name   string
		issued string
	}{
		{"not base 36", "z!z"},
		{"leading zero", "0rs"},
		{"explicit sign", "+rs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// correctly signed, but the timestamp cannot be trusted
			payload := joinFields("alice", tt.issued, "n0nce")
			encoded := payload + Delimiter + server.signers[PurposeProof].Sign(payload)

			token, err := server.Verify(encoded, time.Now(), ProofPolicy())
			if !errors.Is(err, ErrTokenExpired()) {
				t.Fatalf("expected ErrTokenExpired, got %v", err)
			}
			if token.Claim() != "alice" {
				t.Errorf("Claim = %s, want alice", token.Claim())
			}
		})
	}
}

func TestDecodeIssuedAt_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, ms := range []int64{0, 1, 35, 36, 1_700_000_000_000} {
		at := time.UnixMilli(ms)
		decoded, err := decodeIssuedAt(encodeIssuedAt(at))
		if err != nil {
			t.Fatalf("decodeIssuedAt(%d) failed: %v", ms, err)
		}
		if !decoded.Equal(at) {
			t.Errorf("round trip of %d = %v", ms, decoded)
		}
	}
}
