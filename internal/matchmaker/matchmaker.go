package matchmaker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
	"github.com/vovakirdan/arena-coordinator/internal/metrics"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

const fetchConcurrency = 8

// Callback is invoked once when a queued player has been placed in a game.
type Callback func(game *store.Game)

// Store is the persistence the matchmaker needs.
type Store interface {
	store.PlayerStore
	store.GameStore
}

// Config holds matchmaking settings.
type Config struct {
	MaxRankDifference int
}

// Matchmaker groups queued players by rank and starts a node per group.
type Matchmaker struct {
	cfg      Config
	store    Store
	provider node.Provider
	rules    ruleset.Selector
	metrics  *metrics.Metrics
	log      *zerolog.Logger

	mu    sync.Mutex
	queue map[string]Callback
}

// New creates a matchmaker. metrics may be nil.
func New(cfg Config, st Store, provider node.Provider, rules ruleset.Selector, m *metrics.Metrics, logger *zerolog.Logger) *Matchmaker {
	return &Matchmaker{
		cfg:      cfg,
		store:    st,
		provider: provider,
		rules:    rules,
		metrics:  m,
		log:      arenalog.Component(logger, "matchmaker"),
		queue:    make(map[string]Callback),
	}
}

// AddPlayer queues a player. A second call for the same id replaces the callback.
func (m *Matchmaker) AddPlayer(playerID string, onMatched Callback) {
	m.mu.Lock()
	m.queue[playerID] = onMatched
	size := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetQueueSize(size)
}

// RemovePlayer drops a player from the queue. Unknown ids are ignored.
func (m *Matchmaker) RemovePlayer(playerID string) {
	m.mu.Lock()
	delete(m.queue, playerID)
	size := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetQueueSize(size)
}

// Queue returns the queued player ids in sorted order.
func (m *Matchmaker) Queue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.queue))
	for id := range m.queue {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Queued reports whether a player is waiting for a match.
func (m *Matchmaker) Queued(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.queue[playerID]
	return ok
}

// Tick forms groups from the queue and starts a game for each one it can.
// Failures are logged per group; players of a failed group stay queued.
func (m *Matchmaker) Tick(ctx context.Context) []*store.Game {
	ids := m.Queue()
	if len(ids) == 0 {
		return nil
	}

	// Fetch even a lone player so a vanished record leaves the queue.
	players := m.fetchPlayers(ctx, ids)
	if len(players) < 2 {
		return nil
	}

	m.log.Debug().Int("players", len(players)).Msg("trying to group players")

	SortByRank(players)
	groups := GroupByRank(players, m.cfg.MaxRankDifference)

	var started []*store.Game
	for _, group := range groups {
		game, err := m.startGame(ctx, group)
		if err != nil {
			if errors.Is(err, node.ErrNodesLimitReached) {
				m.log.Debug().Msg("could not start a game because the node limit has been reached")
			} else {
				m.log.Warn().Err(err).Msg("could not start a game")
			}
			continue
		}
		m.log.Info().Str("game_id", game.ID).Str("node_id", game.NodeID).Strs("players", game.PlayerIDs).Msg("started game")
		started = append(started, game)
	}

	m.metrics.AddGamesCreated(len(started))
	return started
}

// fetchPlayers loads queued players. Players without a record are dropped from the queue.
func (m *Matchmaker) fetchPlayers(ctx context.Context, ids []string) []*store.Player {
	results := make([]*store.Player, len(ids))

	var g errgroup.Group
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := m.store.GetPlayer(ctx, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				m.log.Warn().Str("player_id", id).Msg("queued player has no record, removing from queue")
				m.RemovePlayer(id)
			case err != nil:
				m.log.Warn().Err(err).Str("player_id", id).Msg("could not retrieve player")
			default:
				results[i] = p
			}
			return nil
		})
	}
	_ = g.Wait()

	players := make([]*store.Player, 0, len(results))
	for _, p := range results {
		if p != nil {
			players = append(players, p)
		}
	}
	return players
}

func (m *Matchmaker) startGame(ctx context.Context, group []*store.Player) (*store.Game, error) {
	nodeID, err := m.provider.CreateNode(ctx, group, m.rules())
	if err != nil {
		return nil, err
	}

	playerIDs := make([]string, 0, len(group))
	for _, p := range group {
		playerIDs = append(playerIDs, p.ID)
	}
	game := &store.Game{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		PlayerIDs: playerIDs,
		Status:    store.GameStatusInitialized,
	}

	if err := m.store.CreateGame(ctx, game); err != nil {
		// Without a record nobody can track the node, so give it back.
		if stopErr := m.provider.StopNode(ctx, nodeID); stopErr != nil {
			m.log.Warn().Err(stopErr).Str("node_id", nodeID).Msg("could not stop node of unsaved game")
		}
		return nil, err
	}

	m.notify(game)
	return game, nil
}

// notify dequeues the game's players and runs their callbacks outside the lock.
func (m *Matchmaker) notify(game *store.Game) {
	m.mu.Lock()
	callbacks := make([]Callback, 0, len(game.PlayerIDs))
	for _, id := range game.PlayerIDs {
		if cb, ok := m.queue[id]; ok {
			if cb != nil {
				callbacks = append(callbacks, cb)
			}
			delete(m.queue, id)
		}
	}
	size := len(m.queue)
	m.mu.Unlock()

	m.metrics.SetQueueSize(size)
	for _, cb := range callbacks {
		cb(game)
	}
}
