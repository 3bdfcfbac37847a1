package tokens

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock supplies issuance time. Tests replace it to control token age.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// WallClock reads the system time.
var WallClock Clock = wallClock{}

// newNonce returns 32 hex characters drawn from a random (v4) UUID.
func newNonce() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %v", err)
	}
	return hex.EncodeToString(id[:]), nil
}
