package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/cards"
	"github.com/vovakirdan/arena-coordinator/internal/config"
	"github.com/vovakirdan/arena-coordinator/internal/coordinator"
	"github.com/vovakirdan/arena-coordinator/internal/matchmaker"
	"github.com/vovakirdan/arena-coordinator/internal/metrics"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/node/docker"
	"github.com/vovakirdan/arena-coordinator/internal/node/local"
	"github.com/vovakirdan/arena-coordinator/internal/node/noop"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
	"github.com/vovakirdan/arena-coordinator/internal/store/postgres"
	"github.com/vovakirdan/arena-coordinator/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/arena-coordinator/internal/transport/http"
)

const cardsFile = "cards.json"

// App wires the coordinator, its node backend and the boundary server.
type App struct {
	cfg         config.Config
	store       store.Store
	provider    node.Provider
	coordinator *coordinator.Coordinator
	server      *transporthttp.Server
	log         *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := openStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	a, err := build(cfg, st, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, st store.Store, logger *zerolog.Logger) (*App, error) {
	verifier, err := auth.LoadVerifier(cfg.JWT.PublicKeyPath, cfg.JWT.Algorithms)
	if err != nil {
		return nil, fmt.Errorf("init verifier: %w", err)
	}

	catalog, err := loadCatalog(filepath.Join(cfg.DataDir, cardsFile), logger)
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init node provider: %w", err)
	}

	rules, err := ruleset.NewSelector(cfg.Matchmaker.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("init ruleset: %w", err)
	}

	m := metrics.New()
	mm := matchmaker.New(matchmaker.Config{
		MaxRankDifference: cfg.Matchmaker.MaxRankDifference,
	}, st, provider, rules, m, logger)

	coord := coordinator.New(coordinator.Config{
		TickInterval: cfg.Coordinator.TickInterval,
		StopTimeout:  cfg.Coordinator.StopTimeout,
	}, provider, st, mm, logger, coordinator.WithMetrics(m))

	server := transporthttp.NewServer(cfg.Coordinator, transporthttp.Deps{
		Players:  st,
		Games:    coord,
		Queue:    mm,
		Nodes:    provider,
		Cards:    catalog,
		Verifier: verifier,
		Metrics:  m,
	}, logger)
	coord.SetListener(server)

	return &App{
		cfg:         cfg,
		store:       st,
		provider:    provider,
		coordinator: coord,
		server:      server,
		log:         logger,
	}, nil
}

// Run starts the coordinator and blocks until context cancellation.
func (a *App) Run(ctx context.Context) error {
	if err := a.coordinator.Start(ctx); err != nil {
		a.cleanup()
		return err
	}

	<-ctx.Done()
	a.log.Info().Msg("shutting down coordinator")

	var runErr error
	if err := a.coordinator.Stop(context.Background()); err != nil {
		a.log.Error().Err(err).Msg("coordinator did not stop cleanly")
		runErr = err
	}

	if stopper, ok := a.provider.(interface{ StopAll(context.Context) }); ok {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Coordinator.StopTimeout)
		stopper.StopAll(stopCtx)
		cancel()
	}

	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(cfg.DSN)
	case config.DriverSQLite:
		return sqlite.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newProvider(cfg config.Config, logger *zerolog.Logger) (node.Provider, error) {
	base := node.Config{
		MaxNodes:      cfg.Provider.MaxNodes,
		MinPort:       cfg.Provider.MinPort,
		MaxPort:       cfg.Provider.MaxPort,
		NodeTimeout:   cfg.Provider.NodeTimeout,
		PublicKeyPath: cfg.JWT.PublicKeyPath,
		Algorithms:    cfg.JWT.Algorithms,
	}

	switch cfg.Provider.Kind {
	case config.ProviderLocal:
		return local.New(local.Config{Config: base, Host: cfg.Provider.Host}, logger)
	case config.ProviderDocker:
		return docker.New(docker.Config{Config: base, Image: cfg.Provider.Image}, logger), nil
	case config.ProviderNoop:
		return noop.New(base.MaxNodes), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

// loadCatalog reads the card catalog. A missing file yields an empty catalog
// so new players simply start without cards.
func loadCatalog(path string, logger *zerolog.Logger) (*cards.Catalog, error) {
	catalog, err := cards.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("card catalog not found, starting with no cards")
		return cards.New(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	logger.Info().Int("cards", catalog.Len()).Msg("card catalog loaded")
	return catalog, nil
}
