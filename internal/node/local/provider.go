package local

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/game"
	"github.com/vovakirdan/arena-coordinator/internal/lobby"
	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

const expireStopTimeout = 10 * time.Second

// Config extends the shared provider settings.
type Config struct {
	node.Config
	// Host is advertised to players. Detected from the network interfaces when empty.
	Host string
}

// Provider runs every node inside the coordinator process.
type Provider struct {
	cfg      Config
	host     string
	log      *zerolog.Logger
	clock    clockwork.Clock
	verifier *auth.Verifier
	registry *node.Registry[*Worker]
	listen   func(minPort, maxPort int) (net.Listener, error)
}

// Option customizes a Provider.
type Option func(*Provider)

// WithClock replaces the clock driving node idle timers.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Provider) {
		p.clock = clock
	}
}

// New creates a local provider and loads the token verification key.
func New(cfg Config, logger *zerolog.Logger, opts ...Option) (*Provider, error) {
	verifier, err := auth.LoadVerifier(cfg.PublicKeyPath, cfg.Algorithms)
	if err != nil {
		return nil, fmt.Errorf("local provider: %w", err)
	}

	p := &Provider{
		cfg:      cfg,
		host:     cfg.Host,
		log:      arenalog.Component(logger, "local-provider"),
		clock:    clockwork.NewRealClock(),
		verifier: verifier,
		registry: node.NewRegistry[*Worker](cfg.MaxNodes),
		listen:   listenInRange,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.host == "" {
		p.host = detectHost()
	}
	return p, nil
}

// CreateNode builds a worker for players, registers it and starts it.
// A worker that fails to start is removed from the registry.
func (p *Provider) CreateNode(_ context.Context, players []*store.Player, rs ruleset.Ruleset) (string, error) {
	if p.registry.Full() {
		return "", fmt.Errorf("%w (max %d)", node.ErrNodesLimitReached, p.cfg.MaxNodes)
	}

	id := uuid.NewString()
	w := &Worker{
		id:       id,
		log:      arenalog.Node(p.log, id),
		clock:    p.clock,
		timeout:  p.cfg.NodeTimeout,
		game:     game.New(players, rs),
		hub:      lobby.NewHub(),
		verifier: p.verifier,
		status:   node.StatusStopped,
		listen: func() (net.Listener, error) {
			return p.listen(p.cfg.MinPort, p.cfg.MaxPort)
		},
	}
	w.onExpire = func() { p.expire(id) }

	if err := p.registry.Insert(id, w); err != nil {
		return "", err
	}

	if err := w.Start(); err != nil {
		p.log.Error().Err(err).Str("node_id", id).Msg("could not start node")
		p.registry.Remove(id)
		return "", &node.NodeError{NodeID: id, Err: err}
	}
	return id, nil
}

// StopNode stops a worker. The registry entry is removed whatever the outcome.
func (p *Provider) StopNode(ctx context.Context, id string) error {
	w, err := p.registry.Get(id)
	if err != nil {
		return err
	}
	defer p.registry.Remove(id)

	if err := w.Stop(ctx); err != nil {
		p.log.Error().Err(err).Str("node_id", id).Msg("could not stop node")
		return &node.NodeError{NodeID: id, Err: err}
	}
	return nil
}

// NodeInfo returns where players can reach a worker.
func (p *Provider) NodeInfo(_ context.Context, id string) (node.Info, error) {
	w, err := p.registry.Get(id)
	if err != nil {
		return node.Info{}, err
	}
	return node.Info{
		ID:     id,
		Host:   p.host,
		Port:   w.Port(),
		Status: w.Status(),
	}, nil
}

// GameInfo returns the status of the game hosted by a worker.
func (p *Provider) GameInfo(_ context.Context, id string) (node.GameInfo, error) {
	w, err := p.registry.Get(id)
	if err != nil {
		return node.GameInfo{}, err
	}
	return w.Game().Info(), nil
}

// Count returns the number of registered workers.
func (p *Provider) Count() int {
	return p.registry.Len()
}

// Worker returns a registered worker.
func (p *Provider) Worker(id string) (*Worker, error) {
	return p.registry.Get(id)
}

// StopAll stops every registered worker.
func (p *Provider) StopAll(ctx context.Context) {
	for _, id := range p.registry.IDs() {
		if err := p.StopNode(ctx, id); err != nil {
			p.log.Warn().Err(err).Str("node_id", id).Msg("failed to stop node")
		}
	}
}

func (p *Provider) expire(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), expireStopTimeout)
	defer cancel()
	if err := p.StopNode(ctx, id); err != nil {
		p.log.Warn().Err(err).Str("node_id", id).Msg("failed to stop expired node")
	}
}

var _ node.Provider = (*Provider)(nil)
