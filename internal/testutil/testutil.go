// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tapgate/internal/allowlist"
	"git.sr.ht/~jakintosh/tapgate/internal/api"
	"git.sr.ht/~jakintosh/tapgate/internal/database"
	"git.sr.ht/~jakintosh/tapgate/internal/service"
	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
)

const TestSecret = "s1"

// Clock is a settable clock shared by the issuer, the verifier, and the
// service under test.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	Start          time.Time
	Clock          *Clock
	AllowList      *allowlist.List
	Ledger         *database.SQLiteStore
	Service        *service.Service
	API            *api.API
	Router         http.Handler
	TokenIssuer    tokens.Issuer
	TokenValidator tokens.Validator
}

type envOptions struct {
	tags            []string
	ledger          bool
	sessionLifetime time.Duration
}

// Option adjusts the environment built by SetupTestEnv.
type Option func(*envOptions)

// WithAllowedTags replaces the default alice/bob allow-list. No tags
// means an empty, permissive list.
func WithAllowedTags(tags ...string) Option {
	return func(o *envOptions) { o.tags = tags }
}

// WithLedger enables single-use setup proofs backed by in-memory SQLite.
func WithLedger() Option {
	return func(o *envOptions) { o.ledger = true }
}

func WithSessionLifetime(lifetime time.Duration) Option {
	return func(o *envOptions) { o.sessionLifetime = lifetime }
}

// SetupTestEnv creates an isolated test environment. The clock starts at a
// fixed instant and only moves when a test moves it.
func SetupTestEnv(
	t *testing.T,
	opts ...Option,
) *TestEnv {
	t.Helper()

	options := envOptions{
		tags:            []string{"alice", "bob"},
		sessionLifetime: tokens.DefaultSessionLifetime,
	}
	for _, opt := range opts {
		opt(&options)
	}

	start := time.Date(2025, time.April, 1, 12, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	issuer, validator, err := tokens.InitServer([]byte(TestSecret), clock)
	if err != nil {
		t.Fatalf("failed to init token server: %v", err)
	}

	list := allowlist.New(options.tags)

	env := &TestEnv{
		Start:          start,
		Clock:          clock,
		AllowList:      list,
		TokenIssuer:    issuer,
		TokenValidator: validator,
	}

	var ledger service.ProofLedger
	if options.ledger {
		db, err := database.NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("failed to open ledger: %v", err)
		}
		t.Cleanup(func() {
			_ = db.Close()
		})
		env.Ledger = db
		ledger = db
	}

	env.Service = service.New(
		issuer,
		validator,
		list,
		ledger,
		clock,
		options.sessionLifetime,
	)
	return env
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
	opts ...Option,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t, opts...)
	env.API = api.New(env.Service, api.Options{SecureCookies: true})
	env.Router = env.API.Router()
	return env
}

// At moves the clock to offset past the environment start.
func (env *TestEnv) At(offset time.Duration) {
	env.Clock.Set(env.Start.Add(offset))
}

// StartProof mints a setup proof for claim, failing the test on error.
func (env *TestEnv) StartProof(
	t *testing.T,
	claim string,
) tokens.Token {
	t.Helper()
	proof, err := env.Service.Start(claim)
	if err != nil {
		t.Fatalf("failed to start escalation for %q: %v", claim, err)
	}
	return proof
}

// Escalate runs the whole handshake for claim at the current clock.
func (env *TestEnv) Escalate(
	t *testing.T,
	claim string,
) *service.Escalation {
	t.Helper()
	proof := env.StartProof(t, claim)
	escalation, err := env.Service.Complete(t.Context(), proof.Encoded(), claim)
	if err != nil {
		t.Fatalf("failed to complete escalation for %q: %v", claim, err)
	}
	return escalation
}

// IssueTestToken mints a token directly from the issuer.
func (env *TestEnv) IssueTestToken(
	t *testing.T,
	claim string,
	policy tokens.Policy,
) tokens.Token {
	t.Helper()
	token, err := env.TokenIssuer.Issue(claim, policy)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return token
}
