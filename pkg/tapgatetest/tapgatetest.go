// Package tapgatetest mints real tapgate sessions for tests of pages that
// sit behind the session gate, without driving the NFC setup flow over
// HTTP.
package tapgatetest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"git.sr.ht/~jakintosh/tapgate/internal/api"
	"git.sr.ht/~jakintosh/tapgate/internal/service"
	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

// Session holds the encoded tokens of one completed handshake.
type Session struct {
	Claim           string
	SessionToken    string
	FreshMarker     string
	IssuedAt        time.Time
	SessionLifetime time.Duration
}

// CookieOptions configures cookie attributes for test cookies.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// NewSession runs the handshake for claim with secret, as of clock.Now().
// A nil clock means the wall clock.
func NewSession(
	secret string,
	claim string,
	sessionLifetime time.Duration,
	clock tokens.Clock,
) (
	*Session,
	error,
) {
	issuer, validator, err := tokens.InitServer([]byte(secret), clock)
	if err != nil {
		return nil, err
	}
	svc := service.New(issuer, validator, nil, nil, clock, sessionLifetime)

	proof, err := svc.Start(claim)
	if err != nil {
		return nil, err
	}
	escalation, err := svc.Complete(context.Background(), proof.Encoded(), claim)
	if err != nil {
		return nil, err
	}

	return &Session{
		Claim:           escalation.Session.Claim(),
		SessionToken:    escalation.Session.Encoded(),
		FreshMarker:     escalation.FreshMarker.Encoded(),
		IssuedAt:        escalation.Session.IssuedAt(),
		SessionLifetime: svc.SessionPolicy().MaxAge,
	}, nil
}

// Cookies creates the sid and sfresh cookies for the session, with values
// escaped the way the server writes them.
func Cookies(sess *Session, opts CookieOptions) (sid, sfresh *http.Cookie) {
	path := opts.Path
	if path == "" {
		path = "/"
	}

	sid = &http.Cookie{
		Name:     api.SessionCookie,
		Value:    url.QueryEscape(sess.SessionToken),
		Path:     path,
		MaxAge:   int(sess.SessionLifetime / time.Second),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	}

	sfresh = &http.Cookie{
		Name:     api.FreshCookie,
		Value:    url.QueryEscape(sess.FreshMarker),
		Path:     path,
		MaxAge:   int(tokens.FreshLifetime / time.Second),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: opts.SameSite,
	}

	return sid, sfresh
}

// AddCookies adds session cookies to an HTTP request.
func AddCookies(r *http.Request, sess *Session, opts CookieOptions) {
	sid, sfresh := Cookies(sess, opts)
	r.AddCookie(sid)
	r.AddCookie(sfresh)
}
