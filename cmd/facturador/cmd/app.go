package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rezonia/facturador/internal/config"
	"github.com/rezonia/facturador/internal/logger"
	"github.com/rezonia/facturador/internal/orchestrator"
	"github.com/rezonia/facturador/internal/sequence"
	"github.com/rezonia/facturador/internal/signer"
	"github.com/rezonia/facturador/internal/sri"
	"github.com/rezonia/facturador/internal/store"
	"github.com/rezonia/facturador/internal/xmlbuilder"
)

// app wires the shared dependency graph for the subcommands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	records store.Store
	alloc   sequence.Allocator
	orch    *orchestrator.Orchestrator

	closers []func() error
}

// newApp builds the dependency graph. Without a database DSN the
// in-memory store and allocator are used; good for a dry run against
// the test environment, useless for production.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(verbose)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}

	if cfg.Database.DSN != "" {
		db, err := store.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := store.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensuring schema: %w", err)
		}
		a.records = store.NewPostgresStore(db)
		a.alloc = sequence.NewPostgresAllocator(db)
	} else {
		log.Warnw("no database configured, using in-memory storage")
		a.records = store.NewMemoryStore()
		a.alloc = sequence.NewMemoryAllocator()
	}

	sig, err := signer.NewXMLDSigSigner(cfg.Signing.CertFile, cfg.Signing.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading signing certificate: %w", err)
	}

	issuer := cfg.ModelIssuer()

	var clientOpts []sri.Option
	if cfg.SRI.ReceptionURL != "" || cfg.SRI.AuthorizationURL != "" {
		clientOpts = append(clientOpts, sri.WithEndpoints(cfg.SRI.ReceptionURL, cfg.SRI.AuthorizationURL))
	}
	authority := sri.NewClient(issuer.Environment, clientOpts...)

	a.orch = orchestrator.New(
		issuer,
		a.alloc,
		xmlbuilder.NewBuilder(issuer),
		sig,
		authority,
		a.records,
		orchestrator.WithLogger(log),
		orchestrator.WithNotifier(orchestrator.LogNotifier{Log: log}),
		orchestrator.WithPolling(cfg.SRI.PollAttempts, cfg.SRI.PollDelay),
		orchestrator.WithClock(time.Now, cfg.Location()),
	)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Errorw("closing resource", "error", err)
		}
	}
}
