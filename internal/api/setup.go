package api

import (
	"fmt"
	"net/http"
	"net/url"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

type SetupRequest struct {
	Tag  string `json:"tag"`
	Char string `json:"char,omitempty"`
}

// readSetupRequest reads the JSON body when one is sent; query parameters
// take precedence over body fields.
func readSetupRequest(w http.ResponseWriter, r *http.Request) (SetupRequest, bool) {
	var req SetupRequest
	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if ok := decodeRequest(&req, w, r); !ok {
			return req, false
		}
	}
	q := r.URL.Query()
	if tag := q.Get("tag"); tag != "" {
		req.Tag = tag
	}
	if char := q.Get("char"); char != "" {
		req.Char = char
	}
	return req, true
}

// StartSetup mints a setup proof for the tapped tag and stores it in the
// snonce cookie.
func (a *API) StartSetup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readSetupRequest(w, r)
		if !ok {
			return
		}

		proof, err := a.service.Start(req.Tag)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.setTokenCookie(w, ProofCookie, proof, tokens.ProofPolicy())
		a.logDebug(r, fmt.Sprintf("issued setup proof for %s", proof.Claim()))
		returnJson(Decision{OK: true}, w)
	}
}

// VerifySetup exchanges the snonce proof for a session and fresh marker.
func (a *API) VerifySetup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readSetupRequest(w, r)
		if !ok {
			return
		}

		proof := readCookie(r, ProofCookie)
		escalation, err := a.service.Complete(r.Context(), proof, req.Tag)
		if err != nil {
			writeError(w, r, err)
			return
		}

		a.setTokenCookie(w, SessionCookie, escalation.Session, a.service.SessionPolicy())
		a.setTokenCookie(w, FreshCookie, escalation.FreshMarker, tokens.FreshPolicy())
		a.clearCookie(w, ProofCookie)

		response := Decision{
			OK:  true,
			Tag: escalation.Session.Claim(),
		}
		if req.Char != "" {
			response.Redirect = frameURL(req.Char)
		}
		returnJson(response, w)
	}
}

func frameURL(char string) string {
	return "/frame?char=" + url.QueryEscape(char) + "&from=setup&fresh=1"
}

func setupURL(char string) string {
	return "/setup?char=" + url.QueryEscape(char) + "&expired=1"
}
