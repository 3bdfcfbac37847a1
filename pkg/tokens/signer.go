package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const derivedKeySize = 32

// Signer computes HMAC-SHA256 signatures over token payloads. The output
// uses the unpadded URL-safe base64 alphabet, so it never contains the
// field delimiter or characters that break cookie parsing.
type Signer struct {
	key []byte
}

func NewSigner(key []byte) *Signer {
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}
}

func (s *Signer) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for payload and compares it to
// signature in constant time.
func (s *Signer) Verify(payload string, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// deriveKey expands the shared secret into an independent key per token
// purpose, so a token signed for one purpose never verifies for another.
func deriveKey(secret []byte, purpose string) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte("tapgate/"+purpose))
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %v", purpose, err)
	}
	return key, nil
}
