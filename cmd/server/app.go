package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/profilegen/profilegen-api/internal/config"
	"github.com/profilegen/profilegen-api/internal/events"
	"github.com/profilegen/profilegen-api/internal/kpi"
	"github.com/profilegen/profilegen-api/internal/org"
	"github.com/profilegen/profilegen-api/internal/platform/gemini"
	"github.com/profilegen/profilegen-api/internal/platform/postgres"
	"github.com/profilegen/profilegen-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	index    *org.Index
	resolver *kpi.Resolver

	taskStore    task.TaskStore
	eventEmitter events.EventEmitter
	orchestrator *task.Orchestrator
}

// newApplication creates a new application instance with all dependencies
// initialized: the organization index, the KPI resolver, the Gemini
// generator and the task orchestrator.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Build the organization index from the hierarchy file.
	root, err := org.LoadHierarchy(cfg.Org.HierarchyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load organization hierarchy: %w", err)
	}
	app.index = org.NewIndex(logger)
	if err := app.index.Build(root); err != nil {
		return nil, fmt.Errorf("failed to build organization index: %w", err)
	}

	// Load the KPI tables and build the resolver. An incomplete block table
	// fails startup here instead of degrading resolution quality at runtime.
	catalog, err := kpi.LoadCatalog(cfg.Org.KPICatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load KPI catalog: %w", err)
	}
	blocks, err := kpi.LoadBlockTable(cfg.Org.BlockTablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load block table: %w", err)
	}
	app.resolver, err = kpi.NewResolver(app.index, catalog, blocks, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build KPI resolver: %w", err)
	}

	// Log the tier distribution so operators can spot mapping drift at a
	// glance after hierarchy updates.
	if stats, err := app.resolver.Stats(app.index); err == nil {
		logger.Info("KPI resolution coverage computed",
			"units", stats.Total,
			"exact_name", stats.ByTier[kpi.TierExactName],
			"ancestor", stats.ByTier[kpi.TierAncestor],
			"block", stats.ByTier[kpi.TierBlock],
			"default", stats.ByTier[kpi.TierDefault])
	}

	generator, err := gemini.NewGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized successfully", "model", cfg.LLM.ModelName)

	app.taskStore = postgres.NewTaskStore(db)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewAuditLogHandler(logger))
	app.eventEmitter = emitter

	app.orchestrator = task.NewOrchestrator(
		cfg.Task,
		task.NewRegistry(),
		app.taskStore,
		app.index,
		app.resolver,
		generator,
		app.eventEmitter,
		logger,
	)

	logger.Info("Application initialized successfully",
		"indexed_units", app.index.Len())
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	if app.orchestrator != nil {
		if err := app.orchestrator.Stop(ctx); err != nil {
			app.logger.Error("Error stopping task orchestrator", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
