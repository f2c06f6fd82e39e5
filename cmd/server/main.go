/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the HomeSchool Tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (defaults, .env, HST_* environment)
  2. Apply command-line flags on top
  3. Open the storage backend
  4. Create the tracker (seeds defaults into an empty store)
  5. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: config, 8080)
  -backend  sqlite | badger | memory (default: config, sqlite)
  -data     SQLite file or Badger directory
            Use ":memory:" with sqlite for a throwaway database
  -env      .env file to load (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with the default SQLite file under ./data
  ./server

  # Run on Badger
  ./server -backend=badger -data=./data/badger

  # Run with nothing persisted
  ./server -backend=memory

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/open.go: Backend selection
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/warp/homeschool-tracker/api"
	"github.com/warp/homeschool-tracker/config"
	"github.com/warp/homeschool-tracker/homeschool"
	"github.com/warp/homeschool-tracker/store"
)

func main() {
	// Flags
	envFile := flag.String("env", ".env", "Optional .env file")
	port := flag.Int("port", 0, "HTTP server port (overrides HST_PORT)")
	backend := flag.String("backend", "", "Storage backend: sqlite, badger or memory (overrides HST_BACKEND)")
	dataPath := flag.String("data", "", "SQLite file or Badger directory (overrides HST_DATAPATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *backend != "" {
		cfg.Backend = strings.ToLower(*backend)
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := log.New(os.Stderr, "[tracker] ", log.LstdFlags)

	// Initialize store
	s, err := store.Open(cfg.Backend, cfg.Path(), logger)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Backend, err)
	}
	defer s.Close()

	tracker, err := homeschool.New(context.Background(), s,
		homeschool.WithLogger(logger),
		homeschool.WithDefaults(cfg.Defaults),
	)
	if err != nil {
		log.Fatalf("Failed to initialize tracker: %v", err)
	}

	// Create router
	handler := api.NewHandler(tracker, logger)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d (%s backend)", cfg.Port, cfg.Backend)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
