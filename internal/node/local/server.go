package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/arena-coordinator/internal/lobby"
	"github.com/vovakirdan/arena-coordinator/internal/proto"
)

const authTimeout = 10 * time.Second

func (w *Worker) routes() stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", func(rw stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_, _ = fmt.Fprint(rw, "ok")
	})
	mux.HandleFunc("/ws", w.serveWS)
	return mux
}

func (w *Worker) serveWS(rw stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(rw, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		w.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	playerID, err := w.authenticate(ctx, conn)
	if err != nil {
		w.log.Debug().Err(err).Msg("player rejected")
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}

	client := lobby.NewClient(playerID)
	w.hub.Register(client)
	defer func() {
		w.hub.Unregister(client)
		w.game.Disconnect(playerID)
	}()

	w.log.Debug().Str("player_id", playerID).Str("remote", r.RemoteAddr).Msg("player connected")

	info := proto.Event(proto.EventGameInfo, w.game.Info())
	if w.game.Connect(playerID) {
		w.log.Info().Msg("all players connected, starting game")
		w.hub.Broadcast(proto.Event(proto.EventGameInfo, w.game.Info()))
	} else {
		w.hub.Send(playerID, info)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.readLoop(ctx, conn, playerID)
	}()
	go func() {
		errCh <- writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel()
	<-errCh

	if err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
		w.log.Debug().Err(err).Str("player_id", playerID).Msg("player connection closed")
	}
	conn.Close(websocket.StatusNormalClosure, "closing")
}

// authenticate waits for a hello carrying a token of one of this game's players.
func (w *Worker) authenticate(ctx context.Context, conn *websocket.Conn) (string, error) {
	helloCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	var inbound proto.Inbound
	if err := wsjson.Read(helloCtx, conn, &inbound); err != nil {
		return "", fmt.Errorf("read hello: %w", err)
	}
	if inbound.Type != proto.InboundTypeHello {
		_ = wsjson.Write(ctx, conn, proto.Fail(proto.ErrCodeBadRequest, "expected hello"))
		return "", fmt.Errorf("unexpected message %q", inbound.Type)
	}

	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		_ = wsjson.Write(ctx, conn, proto.Fail(proto.ErrCodeBadRequest, "invalid hello"))
		return "", fmt.Errorf("decode hello: %w", err)
	}

	claims, err := w.verifier.Verify(hello.Token)
	if err != nil {
		_ = wsjson.Write(ctx, conn, proto.Fail(proto.ErrCodeUnauthorized, "invalid token"))
		return "", err
	}
	if !w.game.IsPlayer(claims.PlayerID()) {
		_ = wsjson.Write(ctx, conn, proto.Fail(proto.ErrCodeForbidden, "not a player of this game"))
		return "", fmt.Errorf("player %q is not part of this game", claims.PlayerID())
	}
	return claims.PlayerID(), nil
}

// readLoop drains player input. Game moves are handled by the rule engine.
func (w *Worker) readLoop(ctx context.Context, conn *websocket.Conn, playerID string) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}
		w.log.Debug().Str("player_id", playerID).Str("type", inbound.Type).Msg("ignoring player message")
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, client *lobby.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
