package node

import (
	"context"
	"time"

	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// Status is the lifecycle state of a worker node.
type Status string

const (
	StatusStopped  Status = "Stopped"
	StatusStarting Status = "Starting"
	StatusRunning  Status = "Running"
	StatusStopping Status = "Stopping"
	StatusUnknown  Status = "Unknown"
)

// Alive reports whether a node in this state can still host its game.
func (s Status) Alive() bool {
	return s == StatusStarting || s == StatusRunning
}

// Info is a read-only projection of a node.
type Info struct {
	ID     string `json:"nodeId"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Status Status `json:"status"`
}

// GameInfo describes the game hosted by a node.
type GameInfo struct {
	Status    store.GameStatus `json:"status"`
	PlayerIDs []string         `json:"players,omitempty"`
	Ruleset   *ruleset.Ruleset `json:"ruleset,omitempty"`
}

// Config holds the settings shared by every provider backend.
type Config struct {
	// MaxNodes caps concurrently registered nodes. Zero or less means unlimited.
	MaxNodes int
	// MinPort and MaxPort bound the ports nodes may listen on.
	// When both are zero the OS picks a free port.
	MinPort int
	MaxPort int
	// NodeTimeout is how long a node may stay running before it is stopped.
	NodeTimeout time.Duration
	// PublicKeyPath points at the key used to verify player tokens.
	PublicKeyPath string
	Algorithms    []string
}

// Provider manages the full lifecycle of worker nodes for one backend.
type Provider interface {
	// CreateNode starts a node hosting a game for players and returns its id.
	// Fails with ErrNodesLimitReached when the provider is at capacity.
	CreateNode(ctx context.Context, players []*store.Player, rs ruleset.Ruleset) (string, error)

	// StopNode stops a node. The node is forgotten even if stopping fails.
	StopNode(ctx context.Context, id string) error

	// NodeInfo returns the current address and status of a node.
	NodeInfo(ctx context.Context, id string) (Info, error)

	// GameInfo returns the status of the game hosted by a node.
	GameInfo(ctx context.Context, id string) (GameInfo, error)

	// Count returns the number of registered nodes.
	Count() int
}
