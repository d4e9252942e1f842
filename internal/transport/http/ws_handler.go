package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/cards"
	"github.com/vovakirdan/arena-coordinator/internal/lobby"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/proto"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

const (
	helloTimeout    = 10 * time.Second
	nodeInfoTimeout = 5 * time.Second
	// starterCards is the number of cards granted to a player without any.
	starterCards = 10
)

// WSHandler upgrades HTTP connections and bridges them to the matchmaker.
type WSHandler struct {
	hub      *lobby.Hub
	players  store.PlayerStore
	games    GameLocator
	queue    Queue
	nodes    node.Provider
	catalog  *cards.Catalog
	verifier *auth.Verifier
	clock    clockwork.Clock
	limit    int
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *lobby.Hub, deps Deps, messagesPerMinute int, logger *zerolog.Logger) *WSHandler {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &WSHandler{
		hub:      hub,
		players:  deps.Players,
		games:    deps.Games,
		queue:    deps.Queue,
		nodes:    deps.Nodes,
		catalog:  deps.Cards,
		verifier: deps.Verifier,
		clock:    clock,
		limit:    messagesPerMinute,
		log:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	player, err := h.authenticate(ctx, conn)
	if err != nil {
		h.log.Debug().Err(err).Msg("player rejected")
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}

	client := lobby.NewClient(player.ID)
	if h.hub.Register(client) {
		h.log.Debug().Str("player_id", player.ID).Msg("replaced previous connection")
	}
	defer func() {
		if h.hub.Unregister(client) {
			h.queue.RemovePlayer(player.ID)
		}
	}()

	h.log.Debug().Str("player_id", player.ID).Str("remote", r.RemoteAddr).Msg("player connected")

	h.welcome(ctx, player)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway {
			h.log.Warn().Err(err).Str("player_id", player.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(websocket.StatusNormalClosure, "closing")
}

// authenticate waits for the hello message and resolves the player record,
// creating it on first contact.
func (h *WSHandler) authenticate(ctx context.Context, conn *websocket.Conn) (*store.Player, error) {
	helloCtx, cancel := context.WithTimeout(ctx, helloTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(helloCtx, conn, &inbound); err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if inbound.Type != proto.InboundTypeHello {
		h.writeError(ctx, conn, proto.ErrCodeUnauthorized, "hello required")
		return nil, fmt.Errorf("unexpected message %q", inbound.Type)
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		h.writeError(ctx, conn, proto.ErrCodeBadRequest, "invalid hello")
		return nil, fmt.Errorf("decode hello: %w", err)
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		h.writeError(ctx, conn, proto.ErrCodeUnsupported,
			fmt.Sprintf("protocol %d is not supported, server speaks %d", hello.Protocol, proto.ProtocolVersion))
		return nil, fmt.Errorf("unsupported protocol %d", hello.Protocol)
	}

	claims, err := h.verifier.Verify(hello.Token)
	if err != nil {
		h.writeError(ctx, conn, proto.ErrCodeUnauthorized, "invalid token")
		return nil, err
	}

	player, err := h.loadPlayer(ctx, claims)
	if err != nil {
		h.log.Error().Err(err).Str("player_id", claims.PlayerID()).Msg("failed to load player")
		h.writeError(ctx, conn, proto.ErrCodeInternal, "could not load player")
		return nil, err
	}
	return player, nil
}

func (h *WSHandler) loadPlayer(ctx context.Context, claims *auth.Claims) (*store.Player, error) {
	player, err := h.players.GetPlayer(ctx, claims.PlayerID())
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	player = &store.Player{
		ID:        claims.PlayerID(),
		Username:  claims.DisplayName(),
		Picture:   claims.Picture,
		Rank:      store.DefaultRank,
		Cards:     []string{},
		CreatedAt: h.clock.Now().UTC(),
	}
	if err := h.players.CreatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	h.log.Info().Str("player_id", player.ID).Str("username", player.Username).Msg("created player")
	return player, nil
}

// welcome grants starter cards if needed, then sends the player record and
// the node of a game already in progress.
func (h *WSHandler) welcome(ctx context.Context, player *store.Player) {
	if len(player.Cards) == 0 && h.catalog != nil {
		granted, err := h.catalog.Random(starterCards)
		switch {
		case errors.Is(err, cards.ErrEmptyCatalog):
			h.log.Warn().Str("player_id", player.ID).Msg("no cards to grant, catalog is empty")
		case err != nil:
			h.log.Error().Err(err).Str("player_id", player.ID).Msg("failed to draw cards")
		default:
			if err := h.players.UpdatePlayerCards(ctx, player.ID, granted); err != nil {
				h.log.Error().Err(err).Str("player_id", player.ID).Msg("failed to save granted cards")
			} else {
				player.Cards = granted
				h.hub.Send(player.ID, proto.Event(proto.EventNewCards, proto.NewCards{Cards: granted}))
			}
		}
	}

	h.hub.Send(player.ID, proto.Event(proto.EventPlayerInfo, playerInfo(player)))

	if g, ok := h.games.Game(player.ID); ok {
		h.sendNodeInfo(ctx, player.ID, &g)
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *lobby.Client) error {
	limiter := newRateLimiter(h.limit, h.clock)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			h.hub.Send(client.ID, proto.Fail(proto.ErrCodeRateLimited, "too many messages"))
			continue
		}

		switch inbound.Type {
		case proto.InboundTypeStartSearch:
			h.startSearch(ctx, client.ID)
		case proto.InboundTypeStopSearch:
			h.queue.RemovePlayer(client.ID)
			h.hub.Send(client.ID, proto.Event(proto.EventStopped, nil))
		default:
			h.hub.Send(client.ID, proto.Fail(proto.ErrCodeBadRequest, fmt.Sprintf("unknown message type %q", inbound.Type)))
		}
	}
}

func (h *WSHandler) startSearch(ctx context.Context, playerID string) {
	if g, ok := h.games.Game(playerID); ok {
		h.sendNodeInfo(ctx, playerID, &g)
		return
	}

	h.queue.AddPlayer(playerID, func(g *store.Game) {
		// Runs on the matchmaker tick, after the connection context may be gone.
		ctx, cancel := context.WithTimeout(context.Background(), nodeInfoTimeout)
		defer cancel()
		h.sendNodeInfo(ctx, playerID, g)
	})
	h.hub.Send(playerID, proto.Event(proto.EventSearching, nil))
}

func (h *WSHandler) sendNodeInfo(ctx context.Context, playerID string, g *store.Game) {
	info, err := h.nodes.NodeInfo(ctx, g.NodeID)
	if err != nil {
		h.log.Warn().Err(err).Str("player_id", playerID).Str("node_id", g.NodeID).Msg("failed to get node info")
		return
	}
	h.hub.Send(playerID, proto.Event(proto.EventNodeInfo, nodeInfo(g, info)))
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *lobby.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Error().Err(err).Str("player_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, code, msg string) {
	if err := wsjson.Write(ctx, conn, proto.Fail(code, msg)); err != nil {
		h.log.Debug().Err(err).Msg("write ws error")
	}
}

func nodeInfo(g *store.Game, info node.Info) proto.NodeInfo {
	return proto.NodeInfo{
		GameID: g.ID,
		NodeID: g.NodeID,
		Host:   info.Host,
		Port:   info.Port,
		Status: string(info.Status),
	}
}
