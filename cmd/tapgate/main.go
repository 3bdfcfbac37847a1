package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.sr.ht/~jakintosh/tapgate/internal/allowlist"
	"git.sr.ht/~jakintosh/tapgate/internal/api"
	"git.sr.ht/~jakintosh/tapgate/internal/config"
	"git.sr.ht/~jakintosh/tapgate/internal/database"
	"git.sr.ht/~jakintosh/tapgate/internal/routing"
	"git.sr.ht/~jakintosh/tapgate/internal/service"
	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	configPath := pflag.String("config", os.Getenv("TAPGATE_CONFIG"), "path to YAML config file")
	listen := pflag.String("listen", "", "listen address (overrides config and PORT)")
	verbose := pflag.Bool("verbose", false, "log rejected tokens and handshake steps")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *verbose {
		cfg.Verbose = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// allow-list
	allowed, err := loadAllowList(ctx, cfg.AllowList)
	if err != nil {
		log.Fatalf("Failed to load allowlist: %v", err)
	}
	if allowed.Len() == 0 {
		log.Printf("allowlist is empty: any tag may start setup\n")
	}

	// proof ledger
	ledger, closeLedger, err := openLedger(cfg.Ledger)
	if err != nil {
		log.Fatalf("Failed to open proof ledger: %v", err)
	}
	defer closeLedger()

	// tokens and handshake
	issuer, validator, err := tokens.InitServer([]byte(cfg.Secret), tokens.WallClock)
	if err != nil {
		log.Fatalf("Failed to init token server: %v", err)
	}
	svc := service.New(issuer, validator, allowed, ledger, tokens.WallClock, cfg.SessionTTL)

	a := api.New(svc, api.Options{
		SecureCookies: cfg.SecureCookies,
		Verbose:       cfg.Verbose,
	})
	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           routing.BuildRouter(a, cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	log.Printf("tapgate listening on %s (ledger: %s)\n", cfg.Listen, cfg.Ledger.Driver)
	if err := serve(ctx, server); err != nil {
		log.Printf("Server failed: %v\n", err)
		exitCode = 1
	}
}

// serve runs server until ctx is done, then shuts it down gracefully. A
// listen failure is returned instead of exiting, so deferred cleanup in
// the caller still runs.
func serve(ctx context.Context, server *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func loadAllowList(
	ctx context.Context,
	cfg config.AllowListConfig,
) (
	*allowlist.List,
	error,
) {
	if cfg.File == "" {
		return allowlist.New(cfg.Tags), nil
	}

	list, err := allowlist.Load(cfg.File, cfg.Tags)
	if err != nil {
		return nil, err
	}
	if err := list.Watch(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

// openLedger returns a nil ledger when single use is off.
func openLedger(cfg config.LedgerConfig) (service.ProofLedger, func(), error) {
	switch cfg.Driver {
	case config.LedgerSQLite:
		store, err := database.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.LedgerRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		store := database.NewRedisStore(client, cfg.Prefix)
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
