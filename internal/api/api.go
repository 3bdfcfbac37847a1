// Package api exposes the setup handshake over HTTP and delivers tokens as
// cookies.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"git.sr.ht/~jakintosh/tapgate/internal/service"
)

type Options struct {
	// SecureCookies marks every cookie Secure. Turn off only for plain
	// HTTP development.
	SecureCookies bool
	Verbose       bool
}

type API struct {
	service       *service.Service
	secureCookies bool
	verbose       bool
}

func New(svc *service.Service, opts Options) *API {
	return &API{
		service:       svc,
		secureCookies: opts.SecureCookies,
		verbose:       opts.Verbose,
	}
}

type Decision struct {
	OK       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logApiErr(r, "bad json request")
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

func returnJsonStatus(data any, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v\n", err)
	}
}

func logApiErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}

func (a *API) logDebug(r *http.Request, msg string) {
	if a.verbose {
		logApiErr(r, msg)
	}
}
