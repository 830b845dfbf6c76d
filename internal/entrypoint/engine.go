package entrypoint

import (
	"fmt"

	"github.com/mrlokans/batchsync/internal/audit"
	"github.com/mrlokans/batchsync/internal/config"
	"github.com/mrlokans/batchsync/internal/database"
	dbaudit "github.com/mrlokans/batchsync/internal/database/audit"
	syncrepo "github.com/mrlokans/batchsync/internal/database/sync"
	"github.com/mrlokans/batchsync/internal/fetcher"
	"github.com/mrlokans/batchsync/internal/httpclient"
	"github.com/mrlokans/batchsync/internal/mapping"
	"github.com/mrlokans/batchsync/internal/sender"
	"github.com/mrlokans/batchsync/internal/syncer"
	"github.com/mrlokans/batchsync/internal/transform"
)

// Engine is the wired sync pipeline shared by the server and the CLI.
type Engine struct {
	DB           *database.Database
	Mappings     *mapping.Registry
	Audit        *audit.Service
	Runs         *syncrepo.Repository
	Orchestrator *syncer.Orchestrator
}

// NewEngine validates cfg and builds the pipeline. It refuses to build
// anything when a required setting is missing.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mappings, err := mapping.LoadRegistry(cfg.Sync.MappingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	transforms := transform.Default()
	if err := transforms.Validate(mappings.All()); err != nil {
		return nil, err
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	auditService := audit.NewService(dbaudit.NewRepository(db.DB))
	runs := syncrepo.NewRepository(db.DB)

	source := httpclient.New(clientOptions("source", cfg.Source, cfg.Sync))
	destination := httpclient.New(clientOptions("destination", cfg.Destination, cfg.Sync))

	orchestrator := syncer.New(syncer.Deps{
		Mappings:   mappings,
		Transforms: transforms,
		Fetcher:    fetcher.New(source),
		Sender:     sender.New(destination),
		Audit:      auditService,
	}, syncer.Options{
		BatchSize:           cfg.Sync.BatchSize,
		Mode:                cfg.Sync.Mode,
		RateLimitDelay:      cfg.Sync.RateLimitDelay,
		IdempotencyStrategy: cfg.Sync.IdempotencyStrategy,
	})
	orchestrator.SetProgressReporter(runs)
	if cfg.Audit.Dir != "" {
		orchestrator.SetReportArchiver(audit.NewAuditor(cfg.Audit.Dir))
	}

	return &Engine{
		DB:           db,
		Mappings:     mappings,
		Audit:        auditService,
		Runs:         runs,
		Orchestrator: orchestrator,
	}, nil
}

func (e *Engine) Close() error {
	return e.DB.Close()
}

func clientOptions(name string, endpoint config.Endpoint, s config.Sync) httpclient.Options {
	return httpclient.Options{
		Name:       name,
		BaseURL:    endpoint.BaseURL,
		AuthHeader: endpoint.AuthHeader,
		Timeout:    s.HTTPTimeout,
		MaxRetries: s.MaxRetries,
		BaseDelay:  s.RetryBaseDelay,
	}
}
