package api

import (
	"net/http"
	"net/url"
	"time"

	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

// Cookie names carrying the setup proof, the session, and the fresh marker.
const (
	ProofCookie   = "snonce"
	SessionCookie = "sid"
	FreshCookie   = "sfresh"
)

// Cookie values are query-escaped: a claim may hold bytes that are not
// legal cookie octets, and net/http drops those silently.
func (a *API) setCookie(
	w http.ResponseWriter,
	name string,
	value string,
	ttl time.Duration,
) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) setTokenCookie(
	w http.ResponseWriter,
	name string,
	token tokens.Token,
	policy tokens.Policy,
) {
	a.setCookie(w, name, token.Encoded(), policy.MaxAge)
}

func (a *API) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func readCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		// left as sent; verification rejects it
		return c.Value
	}
	return value
}
