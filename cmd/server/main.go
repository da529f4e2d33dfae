/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the marketplace booking server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config file (flags override)
  3. Initialize SQLite store
  4. Wire referral tree, commission engine, booking service
  5. Start the expiry sweeper
  6. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: from config, 8080)
  -db      SQLite database path (default: marketplace.db)
           Use ":memory:" for an in-memory database
  -config  Path to config.yaml (default: search working directory)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the expiry sweeper
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/marketplace.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
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
	"syscall"
	"time"

	"github.com/yagnesh25gehlot/real-estate-startup-sub001/api"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/booking"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/config"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/referral"
	"github.com/yagnesh25gehlot/real-estate-startup-sub001/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire the domain services. The referral tree doubles as the dealer
	// code validator for bookings.
	tree := referral.NewTree(store.Dealers())
	engine := referral.NewEngine(store.Dealers(), store, tree)
	engine.MaxLevels = cfg.CommissionLevels

	service := booking.NewService(store, tree)
	service.Config.BookingFee = cfg.BookingFee
	service.Config.DefaultWindowDays = cfg.BookingWindowDays
	service.Config.CancelCutoff = time.Duration(cfg.CancelCutoffHours) * time.Hour

	// Background expiry sweeper
	sweeper := api.NewSweeper(service)
	sweeper.Interval = cfg.SweepInterval
	sweeper.InitialDelay = cfg.SweepDelay
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize handler and router
	handler := api.NewHandler(service, tree, engine, store, store.Dealers())
	handler.Sweeper = sweeper
	router := api.NewRouter(handler)

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
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Port)
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
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
