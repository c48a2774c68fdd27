package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-elhub-stats/internal/api"
	"go-elhub-stats/internal/api/handler"
	"go-elhub-stats/internal/config"
	"go-elhub-stats/internal/pipeline"
	"go-elhub-stats/internal/selection"
	"go-elhub-stats/internal/store"
	"go-elhub-stats/pkg/router"
	"go-elhub-stats/pkg/utils"
)

// @title Elhub statistics API
// @version 1.0
// @description Market-process and installation statistics loaded from Elhub CSV extracts.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./dashboard.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Init DB
	if cfg.DBPath != "" {
		if err := store.InitDB(cfg.DBPath); err != nil {
			log.Fatalf("❌ Failed to open %s: %v", cfg.DBPath, err)
		}
		defer store.Close()
	}

	outputs := utils.NewOutputManager(cfg.OutputDir)
	if err := outputs.EnsureOutputDirExists(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dashboard := pipeline.NewDashboard(cfg, pipeline.NewLoader(pipeline.NewMemoryCache()))
	if err := dashboard.Refresh(ctx); err != nil {
		// failed pages answer 503; the others still serve
		log.Printf("⚠️ Serving with unavailable pages: %v", err)
	}

	// Create router
	r := router.New()

	// Register API routes
	api.RegisterRoutes(r, handler.New(dashboard, selection.NewManager(cfg.TTL()), outputs))

	srv := r.Server(cfg.ListenAddr(), cfg.Timeout())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("🛑 Shutting down server...")
		srv.Shutdown(shutdownCtx)
	}()

	// Start server
	if err := r.Start(srv); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
