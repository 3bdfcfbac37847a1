package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Delimiter separates token fields on the wire and in the signed payload.
const Delimiter = "."

const issuedAtRadix = 36

type validateError struct {
	context string
	err     error
}

func (t *validateError) Context() string {
	return t.context
}
func (t *validateError) Error() string {
	return fmt.Sprintf("%v", t.err)
}
func (t *validateError) Unwrap() error {
	return t.err
}

var (
	errTokenMalformed    = errors.New("token malformed")
	errTokenBadSignature = errors.New("token bad signature")
	errTokenExpired      = errors.New("token expired")
	errClaimInvalid      = errors.New("claim invalid")
	errUnknownPurpose    = errors.New("unknown token purpose")
)

func ErrTokenMalformed() error    { return errTokenMalformed }
func ErrTokenBadSignature() error { return errTokenBadSignature }
func ErrTokenExpired() error      { return errTokenExpired }
func ErrClaimInvalid() error      { return errClaimInvalid }
func ErrUnknownPurpose() error    { return errUnknownPurpose }

// Context returns the diagnostic context attached to a validation error,
// or an empty string if err did not come from token validation.
func Context(err error) string {
	var verr *validateError
	if errors.As(err, &verr) {
		return verr.Context()
	}
	return ""
}

// Token is an immutable signed credential. Its wire form is
//
//	<claim>.<issuedAt>.<nonce>.<signature>
//
// where issuedAt is milliseconds since the epoch in base 36 and signature
// is the keyed hash of the first three fields joined by Delimiter.
type Token struct {
	claim     string
	issuedAt  time.Time
	nonce     string
	signature string
}

func (t Token) Claim() string       { return t.claim }
func (t Token) IssuedAt() time.Time { return t.issuedAt }
func (t Token) Nonce() string       { return t.nonce }
func (t Token) Signature() string   { return t.signature }

// Encoded returns the wire form of the token.
func (t Token) Encoded() string {
	return Payload(t.claim, t.issuedAt, t.nonce) + Delimiter + t.signature
}

func (t Token) String() string {
	return t.Encoded()
}

// Age reports how long before now the token was issued.
func (t Token) Age(now time.Time) time.Duration {
	return now.Sub(t.issuedAt)
}

// Payload builds the canonical string that is signed for a token. Issuance
// and verification must both go through this function.
func Payload(claim string, issuedAt time.Time, nonce string) string {
	return joinFields(claim, encodeIssuedAt(issuedAt), nonce)
}

// ParseToken decodes the wire form of a token without checking its
// signature. It fails with ErrTokenMalformed unless the string has exactly
// four non-empty fields and a canonical base 36 issuedAt.
func ParseToken(encoded string) (Token, error) {
	claim, issued, nonce, signature, err := splitToken(encoded)
	if err != nil {
		return Token{}, err
	}
	issuedAt, err := decodeIssuedAt(issued)
	if err != nil {
		return Token{}, &validateError{
			context: fmt.Sprintf("token issuedAt malformed: %v", err),
			err:     errTokenMalformed,
		}
	}
	return Token{
		claim:     claim,
		issuedAt:  issuedAt,
		nonce:     nonce,
		signature: signature,
	}, nil
}

// ValidClaim reports whether claim can be carried by a token.
func ValidClaim(claim string) bool {
	return claim != "" && !strings.Contains(claim, Delimiter)
}

func joinFields(claim string, issued string, nonce string) string {
	return claim + Delimiter + issued + Delimiter + nonce
}

func splitToken(encoded string) (
	claim string,
	issued string,
	nonce string,
	signature string,
	err error,
) {
	parts := strings.Split(encoded, Delimiter)
	if len(parts) != 4 {
		err = &validateError{
			context: fmt.Sprintf("token expected four parts, found %d", len(parts)),
			err:     errTokenMalformed,
		}
		return
	}
	for i, part := range parts {
		if part == "" {
			err = &validateError{
				context: fmt.Sprintf("token part %d is empty", i),
				err:     errTokenMalformed,
			}
			return
		}
	}
	claim = parts[0]
	issued = parts[1]
	nonce = parts[2]
	signature = parts[3]
	return
}

func encodeIssuedAt(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), issuedAtRadix)
}

// decodeIssuedAt only accepts the exact form encodeIssuedAt produces, so a
// timestamp has one spelling on the wire.
func decodeIssuedAt(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, issuedAtRadix, 64)
	if err != nil {
		return time.Time{}, err
	}
	if strconv.FormatInt(ms, issuedAtRadix) != s {
		return time.Time{}, fmt.Errorf("non-canonical timestamp %q", s)
	}
	return time.UnixMilli(ms), nil
}
