// Package docker is the container-backed provider. Container orchestration is
// not wired yet, so every operation past the contract checks fails.
package docker

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// Config holds the docker backend settings.
type Config struct {
	node.Config
	Image string
}

// Provider implements node.Provider on top of containers.
type Provider struct {
	cfg      Config
	log      *zerolog.Logger
	registry *node.Registry[string]
}

// New creates a docker provider.
func New(cfg Config, logger *zerolog.Logger) *Provider {
	return &Provider{
		cfg:      cfg,
		log:      arenalog.Component(logger, "docker-provider"),
		registry: node.NewRegistry[string](cfg.MaxNodes),
	}
}

func (p *Provider) CreateNode(_ context.Context, _ []*store.Player, _ ruleset.Ruleset) (string, error) {
	if p.registry.Full() {
		return "", fmt.Errorf("%w (max %d)", node.ErrNodesLimitReached, p.cfg.MaxNodes)
	}
	return "", fmt.Errorf("docker provider: %w", node.ErrNotImplemented)
}

func (p *Provider) StopNode(_ context.Context, id string) error {
	if _, err := p.registry.Get(id); err != nil {
		return err
	}
	return &node.NodeError{NodeID: id, Err: node.ErrNotImplemented}
}

func (p *Provider) NodeInfo(_ context.Context, id string) (node.Info, error) {
	if _, err := p.registry.Get(id); err != nil {
		return node.Info{}, err
	}
	return node.Info{}, &node.NodeError{NodeID: id, Err: node.ErrNotImplemented}
}

func (p *Provider) GameInfo(_ context.Context, id string) (node.GameInfo, error) {
	if _, err := p.registry.Get(id); err != nil {
		return node.GameInfo{}, err
	}
	return node.GameInfo{}, &node.NodeError{NodeID: id, Err: node.ErrNotImplemented}
}

func (p *Provider) Count() int {
	return p.registry.Len()
}

var _ node.Provider = (*Provider)(nil)
