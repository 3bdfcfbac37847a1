// Package profile encodes the browser's remembered series and character
// choice. The cookie is a preference, never an authorization, and is not
// signed.
package profile

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	CookieName = "oshi_profile"
	Lifetime   = 180 * 24 * time.Hour
)

var ErrInvalidProfile = errors.New("invalid profile")

var validField = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type Profile struct {
	IP   string `json:"ip"`
	Cara string `json:"cara"`
}

// New trims and validates both fields.
func New(ip string, cara string) (Profile, error) {
	p := Profile{
		IP:   strings.TrimSpace(ip),
		Cara: strings.TrimSpace(cara),
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) Validate() error {
	if !validField.MatchString(p.IP) {
		return fmt.Errorf("%w: ip %q", ErrInvalidProfile, p.IP)
	}
	if !validField.MatchString(p.Cara) {
		return fmt.Errorf("%w: cara %q", ErrInvalidProfile, p.Cara)
	}
	return nil
}

// Encode returns the unpadded base64url JSON form stored in the cookie.
func (p Profile) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal profile: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a cookie value. Padded input is accepted.
func Decode(value string) (Profile, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if p.IP == "" || p.Cara == "" {
		return Profile{}, fmt.Errorf("%w: missing field", ErrInvalidProfile)
	}
	return p, nil
}
