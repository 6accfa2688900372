// enrichpipe runs one enrichment pass over a configured document source and
// exposes an HTTP API to trigger runs and inspect the last run report.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/courtlens/enrichpipe/pkg/apihttp"
	"github.com/courtlens/enrichpipe/pkg/config"
	"github.com/courtlens/enrichpipe/pkg/dedup"
	"github.com/courtlens/enrichpipe/pkg/indexsink"
	"github.com/courtlens/enrichpipe/pkg/pipeline"
	"github.com/courtlens/enrichpipe/pkg/registry"
	"github.com/courtlens/enrichpipe/pkg/report"
	"github.com/courtlens/enrichpipe/pkg/runner"
	"github.com/courtlens/enrichpipe/pkg/source"
	"github.com/courtlens/enrichpipe/pkg/stages/citation"
	"github.com/courtlens/enrichpipe/pkg/stages/court"
	"github.com/courtlens/enrichpipe/pkg/stages/judge"
	"github.com/courtlens/enrichpipe/pkg/stages/keyword"
	"github.com/courtlens/enrichpipe/pkg/stages/reporter"
	"github.com/courtlens/enrichpipe/pkg/stages/structure"
	"github.com/courtlens/enrichpipe/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	gin.SetMode(cfg.HTTP.GinMode)

	log.Printf("Starting enrichpipe")
	log.Printf("HTTP Port: %s", cfg.HTTP.Port)
	log.Printf("Config Directory: %s", *configDir)

	dbConfig, err := store.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}

	db, err := store.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL database")

	registries, err := registry.Load(cfg.Registry.OverlayPath)
	if err != nil {
		log.Fatalf("Failed to load registries: %v", err)
	}

	orchestrator := buildOrchestrator(cfg, db, registries)

	trigger := func(ctx context.Context, filter source.Filter) (report.Report, error) {
		outcomes, runErr := orchestrator.Run(ctx, filter)
		rep := report.Build(outcomes, orchestrator.Executor.Accounting.Snapshot())
		return rep, runErr
	}

	server := apihttp.NewServer(db, trigger, slog.Default())
	router := gin.Default()
	server.Routes(router)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping HTTP server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown did not complete cleanly", "error", err)
	}
	slog.Info("enrichpipe stopped")
}

// buildOrchestrator wires the six pipeline collaborators — DocumentSource,
// DeduplicationManager, PipelineExecutor (and its six stages), Persistence,
// IndexSink, and the optional paid-source fulfillment client — into one
// runner.Orchestrator, grounded on cmd/tarsy/main.go's service-construction
// block.
func buildOrchestrator(cfg *config.Config, db *store.Client, registries *registry.Registries) *runner.Orchestrator {
	httpSource := source.NewHTTPSource(cfg.Source.BaseURL, cfg.Source.Token)
	repository := store.NewRepository(db)
	dedupManager := dedup.New(repository)

	executor := pipeline.NewExecutor([]pipeline.Stage{
		court.New(registries.Courts),
		citation.New(),
		reporter.New(registries.Reporters),
		judge.New(registries.Judges),
		structure.New(),
		keyword.New(),
	})

	orchestrator := &runner.Orchestrator{
		Source:      httpSource,
		Dedup:       dedupManager,
		Executor:    executor,
		Persistence: repository,
		Concurrency: cfg.Run.Concurrency,
		Logger:      slog.Default(),
	}

	if cfg.PDFExtractor.BaseURL != "" {
		orchestrator.PDFExtractor = source.NewHTTPPDFExtractor(cfg.PDFExtractor.BaseURL)
	}

	if cfg.Fulfillment.BaseURL != "" {
		orchestrator.Fulfillment = source.NewHTTPFulfillmentClient(cfg.Fulfillment.BaseURL, cfg.Fulfillment.Token)
		orchestrator.Budget = source.NewBudget(cfg.Fulfillment.BudgetLimit)
	}

	if cfg.IndexSink.BaseURL != "" {
		orchestrator.Index = indexsink.NewHTTPIndexSink(cfg.IndexSink.BaseURL, cfg.IndexSink.Token)
	}

	return orchestrator
}
