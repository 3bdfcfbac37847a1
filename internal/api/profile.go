package api

import (
	"fmt"
	"net/http"

	"git.sr.ht/~jakintosh/tapgate/internal/profile"
)

type ClaimRequest struct {
	IP   string `json:"ip"`
	Cara string `json:"cara"`
}

type BootstrapResponse struct {
	IP   string `json:"ip"`
	Cara string `json:"cara"`
}

// Claim remembers the chosen series and character in the profile cookie.
func (a *API) Claim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		p, err := profile.New(req.IP, req.Cara)
		if err != nil {
			logApiErr(r, fmt.Sprintf("%v", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		value, err := p.Encode()
		if err != nil {
			logApiErr(r, fmt.Sprintf("couldn't encode profile: %v", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		a.setCookie(w, profile.CookieName, value, profile.Lifetime)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Bootstrap returns the remembered profile, or 204 when there is none.
func (a *API) Bootstrap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := readCookie(r, profile.CookieName)
		if value == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		p, err := profile.Decode(value)
		if err != nil {
			a.logDebug(r, fmt.Sprintf("ignoring profile cookie: %v", err))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		returnJson(BootstrapResponse{IP: p.IP, Cara: p.Cara}, w)
	}
}
