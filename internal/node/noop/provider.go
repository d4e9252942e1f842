// Package noop provides a node backend that creates nothing. It keeps
// matchmaking and coordination testable without real workers.
package noop

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

type entry struct {
	mu         sync.Mutex
	players    []string
	nodeStatus node.Status
	gameStatus store.GameStatus
}

// Provider registers node ids without starting anything.
type Provider struct {
	registry *node.Registry[*entry]

	mu   sync.Mutex
	fail error
}

// New creates a noop provider. max <= 0 means unlimited.
func New(max int) *Provider {
	return &Provider{registry: node.NewRegistry[*entry](max)}
}

// FailCreate makes subsequent CreateNode calls return err. Pass nil to reset.
func (p *Provider) FailCreate(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

func (p *Provider) CreateNode(_ context.Context, players []*store.Player, _ ruleset.Ruleset) (string, error) {
	p.mu.Lock()
	fail := p.fail
	p.mu.Unlock()
	if fail != nil {
		return "", fail
	}

	ids := make([]string, 0, len(players))
	for _, pl := range players {
		ids = append(ids, pl.ID)
	}

	id := uuid.NewString()
	if err := p.registry.Insert(id, &entry{
		players:    ids,
		nodeStatus: node.StatusUnknown,
		gameStatus: store.GameStatusUnknown,
	}); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Provider) StopNode(_ context.Context, id string) error {
	if !p.registry.Remove(id) {
		return &node.NodeError{NodeID: id, Err: node.ErrNodeNotFound}
	}
	return nil
}

func (p *Provider) NodeInfo(_ context.Context, id string) (node.Info, error) {
	e, err := p.registry.Get(id)
	if err != nil {
		return node.Info{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return node.Info{ID: id, Status: e.nodeStatus}, nil
}

func (p *Provider) GameInfo(_ context.Context, id string) (node.GameInfo, error) {
	e, err := p.registry.Get(id)
	if err != nil {
		return node.GameInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return node.GameInfo{Status: e.gameStatus, PlayerIDs: e.players}, nil
}

func (p *Provider) Count() int {
	return p.registry.Len()
}

// IDs returns the registered node ids.
func (p *Provider) IDs() []string {
	return p.registry.IDs()
}

// SetStatus overrides what NodeInfo and GameInfo report for a node.
func (p *Provider) SetStatus(id string, nodeStatus node.Status, gameStatus store.GameStatus) error {
	e, err := p.registry.Get(id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodeStatus = nodeStatus
	e.gameStatus = gameStatus
	return nil
}

var _ node.Provider = (*Provider)(nil)
