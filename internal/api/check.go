package api

import (
	"net/http"
)

// CheckAuth reports whether the caller holds a valid session. It always
// answers 200; the outcome is in the body. With fresh=1 the fresh marker
// is required too.
func (a *API) CheckAuth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requireFresh := r.URL.Query().Get("fresh") == "1"

		decision := a.service.CheckSession(
			readCookie(r, SessionCookie),
			readCookie(r, FreshCookie),
			requireFresh,
		)
		if !decision.OK {
			a.logDebug(r, "session check failed: "+decision.Reason)
		}

		returnJson(Decision{
			OK:     decision.OK,
			Reason: decision.Reason,
			Tag:    decision.Claim,
		}, w)
	}
}

// RequireSession guards a page. Arriving from setup (from=setup&fresh=1)
// demands the fresh marker as well. Rejected requests are sent back to
// setup for the same character.
func (a *API) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		requireFresh := q.Get("from") == "setup" && q.Get("fresh") == "1"

		decision := a.service.CheckSession(
			readCookie(r, SessionCookie),
			readCookie(r, FreshCookie),
			requireFresh,
		)
		if !decision.OK {
			a.logDebug(r, "gate rejected: "+decision.Reason)
			w.Header().Set("Cache-Control", "no-store")
			http.Redirect(w, r, setupURL(q.Get("char")), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
