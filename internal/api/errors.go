package api

import (
	"errors"
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/tapgate/internal/service"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidClaim):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrMalformedToken),
		errors.Is(err, service.ErrBadSignature),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrClaimMismatch),
		errors.Is(err, service.ErrNoProof),
		errors.Is(err, service.ErrBadProof),
		errors.Is(err, service.ErrNoSession):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and answers with its status and reason code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logApiErr(r, fmt.Sprintf("%d: %v", status, err))
	returnJsonStatus(Decision{OK: false, Reason: service.Reason(err)}, status, w)
}
