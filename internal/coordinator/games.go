package coordinator

import (
	"context"

	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// reconcile refreshes the status of every tracked game from its node and
// persists it.
func (c *Coordinator) reconcile(ctx context.Context) {
	for _, g := range c.snapshot() {
		status := c.resolveStatus(ctx, g)

		c.trackedMu.Lock()
		g.Status = status
		c.trackedMu.Unlock()

		if err := c.games.UpdateGameStatus(ctx, g.ID, status); err != nil {
			c.log.Error().Err(err).Str("game_id", g.ID).Msg("could not persist game status")
		}
	}
}

func (c *Coordinator) resolveStatus(ctx context.Context, g *store.Game) store.GameStatus {
	logger := c.log.With().Str("game_id", g.ID).Str("node_id", g.NodeID).Logger()

	info, err := c.provider.NodeInfo(ctx, g.NodeID)
	if err != nil {
		if node.Gone(err) {
			logger.Debug().Err(err).Msg("node is gone, ending game")
		} else {
			logger.Warn().Err(err).Msg("could not retrieve node info, ending game")
		}
		return store.GameStatusEnded
	}
	if !info.Status.Alive() {
		logger.Debug().Str("node_status", string(info.Status)).Msg("node is not running, ending game")
		// The entry still holds a registry slot.
		if err := c.provider.StopNode(ctx, g.NodeID); err != nil && !node.Gone(err) {
			logger.Warn().Err(err).Msg("could not release dead node")
		}
		return store.GameStatusEnded
	}

	gi, err := c.provider.GameInfo(ctx, g.NodeID)
	if err != nil {
		if node.Gone(err) {
			return store.GameStatusEnded
		}
		logger.Warn().Err(err).Msg("could not retrieve game info")
		return g.Status
	}

	if gi.Status == store.GameStatusEnded {
		logger.Info().Msg("game has ended, stopping node")
		if err := c.provider.StopNode(ctx, g.NodeID); err != nil {
			logger.Warn().Err(err).Msg("could not stop node")
		}
	}
	return gi.Status
}

func (c *Coordinator) dropEnded() {
	c.trackedMu.Lock()
	defer c.trackedMu.Unlock()

	kept := c.tracked[:0]
	for _, g := range c.tracked {
		if g.Status != store.GameStatusEnded {
			kept = append(kept, g)
		}
	}
	clear(c.tracked[len(kept):])
	c.tracked = kept
}

func (c *Coordinator) track(games []*store.Game) {
	c.trackedMu.Lock()
	defer c.trackedMu.Unlock()
	c.tracked = append(c.tracked, games...)
}

func (c *Coordinator) snapshot() []*store.Game {
	c.trackedMu.RLock()
	defer c.trackedMu.RUnlock()
	out := make([]*store.Game, len(c.tracked))
	copy(out, c.tracked)
	return out
}

func (c *Coordinator) trackedCount() int {
	c.trackedMu.RLock()
	defer c.trackedMu.RUnlock()
	return len(c.tracked)
}

// Game returns a copy of the tracked game a player takes part in.
func (c *Coordinator) Game(playerID string) (store.Game, bool) {
	c.trackedMu.RLock()
	defer c.trackedMu.RUnlock()

	for _, g := range c.tracked {
		if g.HasPlayer(playerID) {
			return copyGame(g), true
		}
	}
	return store.Game{}, false
}

// Games returns copies of all tracked games.
func (c *Coordinator) Games() []store.Game {
	c.trackedMu.RLock()
	defer c.trackedMu.RUnlock()

	out := make([]store.Game, 0, len(c.tracked))
	for _, g := range c.tracked {
		out = append(out, copyGame(g))
	}
	return out
}

func copyGame(g *store.Game) store.Game {
	cp := *g
	cp.PlayerIDs = append([]string(nil), g.PlayerIDs...)
	return cp
}
