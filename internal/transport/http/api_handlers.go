package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/proto"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// APIHandlers serves the read-only inspection API.
type APIHandlers struct {
	players store.PlayerStore
	games   GameLocator
	queue   Queue
	nodes   node.Provider
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(deps Deps, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		players: deps.Players,
		games:   deps.Games,
		queue:   deps.Queue,
		nodes:   deps.Nodes,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GameResponse represents a tracked game in API responses.
type GameResponse struct {
	ID      string   `json:"id"`
	NodeID  string   `json:"nodeId"`
	Players []string `json:"players"`
	Status  string   `json:"status"`
}

// QueueResponse lists queued players.
type QueueResponse struct {
	Players []string `json:"players"`
}

// Me returns the authenticated player.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	playerID := c.GetString(ContextKeyPlayerID)

	player, err := h.players.GetPlayer(c.Request.Context(), playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "player not found"})
			return
		}
		h.log.Error().Err(err).Str("player_id", playerID).Msg("failed to get player")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, playerInfo(player))
}

// Games lists the games tracked by the coordinator.
// GET /api/games
func (h *APIHandlers) Games(c *gin.Context) {
	games := h.games.Games()
	resp := make([]GameResponse, 0, len(games))
	for _, g := range games {
		resp = append(resp, GameResponse{
			ID:      g.ID,
			NodeID:  g.NodeID,
			Players: g.PlayerIDs,
			Status:  string(g.Status),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Queue lists players waiting for a match.
// GET /api/queue
func (h *APIHandlers) Queue(c *gin.Context) {
	c.JSON(http.StatusOK, QueueResponse{Players: h.queue.Queue()})
}

// Node returns the address and status of a node.
// GET /api/nodes/:id
func (h *APIHandlers) Node(c *gin.Context) {
	id := c.Param("id")

	info, err := h.nodes.NodeInfo(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, node.ErrNodeNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "node not found"})
			return
		}
		h.log.Error().Err(err).Str("node_id", id).Msg("failed to get node info")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func playerInfo(p *store.Player) proto.PlayerInfo {
	cards := p.Cards
	if cards == nil {
		cards = []string{}
	}
	return proto.PlayerInfo{
		ID:       p.ID,
		Username: p.Username,
		Picture:  p.Picture,
		Rank:     p.Rank,
		Cards:    cards,
	}
}
