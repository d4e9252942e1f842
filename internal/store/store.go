package store

import (
	"context"
	"errors"
	"time"
)

// DefaultRank is assigned to players created on first connection.
const DefaultRank = 1500

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("not found")

// Player represents a participant known to the coordinator.
type Player struct {
	ID        string
	Username  string
	Picture   *string
	Rank      int
	Cards     []string
	CreatedAt time.Time
}

// GameStatus is the lifecycle state of a game session.
type GameStatus string

const (
	GameStatusUnknown     GameStatus = "Unknown"
	GameStatusInitialized GameStatus = "Initialized"
	GameStatusStarting    GameStatus = "Starting"
	GameStatusPickPhase   GameStatus = "Pick Phase"
	GameStatusInProgress  GameStatus = "In-progress"
	GameStatusEnded       GameStatus = "Ended"
)

// Game represents a matched group bound to exactly one worker node.
type Game struct {
	ID        string
	NodeID    string
	PlayerIDs []string
	Status    GameStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPlayer reports whether playerID takes part in the game.
func (g *Game) HasPlayer(playerID string) bool {
	for _, id := range g.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// PlayerStore handles player persistence.
type PlayerStore interface {
	// GetPlayer retrieves a player by ID. Returns an error wrapping ErrNotFound if absent.
	GetPlayer(ctx context.Context, id string) (*Player, error)

	// CreatePlayer inserts a new player record.
	CreatePlayer(ctx context.Context, p *Player) error

	// UpdatePlayerCards replaces the set of cards owned by a player.
	UpdatePlayerCards(ctx context.Context, id string, cards []string) error
}

// GameStore handles game session persistence.
type GameStore interface {
	// CreateGame inserts a new game record.
	CreateGame(ctx context.Context, g *Game) error

	// UpdateGameStatus persists a new status for an existing game.
	UpdateGameStatus(ctx context.Context, id string, status GameStatus) error

	// GetGame retrieves a game by ID. Returns an error wrapping ErrNotFound if absent.
	GetGame(ctx context.Context, id string) (*Game, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	PlayerStore
	GameStore

	// Close closes the underlying database connection.
	Close() error
}
