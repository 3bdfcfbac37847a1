package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the handshake routes. Protected pages are mounted by the
// caller behind RequireSession.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", Healthz).Methods("GET")

	s := r.PathPrefix("/api/").Subrouter()
	s.Use(noStore)
	s.HandleFunc("/setup/start", a.StartSetup()).Methods("GET", "POST")
	s.HandleFunc("/setup/verify", a.VerifySetup()).Methods("POST")
	s.HandleFunc("/auth/check", a.CheckAuth()).Methods("GET")
	s.HandleFunc("/claim", a.Claim()).Methods("POST")
	s.HandleFunc("/bootstrap", a.Bootstrap()).Methods("GET")

	return r
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
