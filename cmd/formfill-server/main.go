package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/casekit/formfill/internal/caserec"
	"github.com/casekit/formfill/internal/config"
	"github.com/casekit/formfill/internal/draft"
	"github.com/casekit/formfill/internal/intake"
	"github.com/casekit/formfill/internal/lock"
	"github.com/casekit/formfill/internal/pdf"
	"github.com/casekit/formfill/internal/server"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}
	if cfg.IsDebug() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}
	defer cleanup()

	locker, err := buildLocker(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up draft locking: %v", err)
	}

	drafts := draft.NewService(store, locker)
	templates := pdf.NewTemplateDir(cfg.TemplateDir)
	normalizer := intake.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	if !normalizer.Configured() {
		log.Println("Narrative intake disabled: no OpenAI API key configured")
	}

	srv := server.New(store, drafts, templates, normalizer, cfg.JWTSecret, log.Default())

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("%s %s listening on %s", cfg.ServerName, cfg.Version, cfg.Address())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal: %s", sig)
	log.Println("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown with error: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped successfully")
}

// buildStore selects Postgres when a database URL is configured and the
// in-memory store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (caserec.Store, func(), error) {
	if !cfg.UsePostgres() {
		log.Println("Using in-memory case store (no database URL configured)")
		return caserec.NewMemoryStore(), func() {}, nil
	}

	db, err := caserec.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := caserec.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return caserec.NewPostgresStore(db), func() { db.Close() }, nil
}

// buildLocker selects Redis-backed leases when a Redis URL is configured,
// for deployments with more than one replica.
func buildLocker(ctx context.Context, cfg *config.Config) (lock.Locker, error) {
	if !cfg.UseRedisLocks() {
		log.Println("Using in-process draft locks (no Redis URL configured)")
		return lock.NewKeyedMutex(), nil
	}
	return lock.NewRedisLockerURL(ctx, cfg.RedisURL)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Formfill Server\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
