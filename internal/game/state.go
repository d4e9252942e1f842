package game

import (
	"errors"
	"slices"
	"sync"

	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// ErrGameEnded is returned when changing the status of a finished game.
var ErrGameEnded = errors.New("game has ended")

// State holds the game hosted by a single node.
// Rule evaluation lives outside this package; State only tracks who is
// connected and where the game is in its lifecycle.
type State struct {
	mu        sync.RWMutex
	players   []*store.Player
	ruleset   ruleset.Ruleset
	status    store.GameStatus
	connected map[string]bool
}

// New creates a game for players in the Initialized state.
func New(players []*store.Player, rs ruleset.Ruleset) *State {
	return &State{
		players:   slices.Clone(players),
		ruleset:   rs,
		status:    store.GameStatusInitialized,
		connected: make(map[string]bool, len(players)),
	}
}

// Status returns the current game status.
func (s *State) Status() store.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus moves the game to status. Ended is terminal.
func (s *State) SetStatus(status store.GameStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == store.GameStatusEnded && status != store.GameStatusEnded {
		return ErrGameEnded
	}
	s.status = status
	return nil
}

// IsPlayer reports whether playerID takes part in this game.
func (s *State) IsPlayer(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerLocked(playerID) != nil
}

// Player returns the record of a participant.
func (s *State) Player(playerID string) (*store.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.playerLocked(playerID)
	return p, p != nil
}

func (s *State) playerLocked(playerID string) *store.Player {
	for _, p := range s.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// Connect marks a player as connected. It returns true when this connection
// completed the table and moved the game from Initialized to Starting.
func (s *State) Connect(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playerLocked(playerID) == nil {
		return false
	}
	s.connected[playerID] = true

	if s.status != store.GameStatusInitialized || len(s.connected) < len(s.players) {
		return false
	}
	s.status = store.GameStatusStarting
	return true
}

// Disconnect marks a player as gone.
func (s *State) Disconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected, playerID)
}

// Connected returns the number of connected players.
func (s *State) Connected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connected)
}

// Info returns a snapshot for status queries.
func (s *State) Info() node.GameInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.players))
	for _, p := range s.players {
		ids = append(ids, p.ID)
	}
	rs := s.ruleset
	rs.CaptureModifiers = slices.Clone(s.ruleset.CaptureModifiers)

	return node.GameInfo{
		Status:    s.status,
		PlayerIDs: ids,
		Ruleset:   &rs,
	}
}
