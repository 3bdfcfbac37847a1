// Package routing assembles the site: the handshake API plus, when a
// static directory is configured, the single-page app with /frame behind
// the session gate.
package routing

import (
	"net/http"
	"path/filepath"

	"git.sr.ht/~jakintosh/tapgate/internal/api"
	"github.com/gorilla/mux"
)

func BuildRouter(a *api.API, staticDir string) *mux.Router {
	router := a.Router()
	if staticDir == "" {
		return router
	}

	// client-side routes all render the app shell
	index := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	})
	router.Handle("/frame", a.RequireSession(index)).Methods("GET")
	router.Handle("/setup", index).Methods("GET")
	router.PathPrefix("/").
		Handler(http.FileServer(http.Dir(staticDir))).
		Methods("GET")

	return router
}
