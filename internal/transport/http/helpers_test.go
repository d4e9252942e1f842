package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arena-coordinator/internal/auth/authtest"
	"github.com/vovakirdan/arena-coordinator/internal/cards"
	"github.com/vovakirdan/arena-coordinator/internal/config"
	"github.com/vovakirdan/arena-coordinator/internal/matchmaker"
	"github.com/vovakirdan/arena-coordinator/internal/metrics"
	"github.com/vovakirdan/arena-coordinator/internal/node/noop"
	"github.com/vovakirdan/arena-coordinator/internal/proto"
	"github.com/vovakirdan/arena-coordinator/internal/store"
	"github.com/vovakirdan/arena-coordinator/internal/store/sqlite"
)

type fakeQueue struct {
	mu      sync.Mutex
	waiting map[string]matchmaker.Callback
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{waiting: make(map[string]matchmaker.Callback)}
}

func (q *fakeQueue) AddPlayer(playerID string, onMatched matchmaker.Callback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waiting[playerID] = onMatched
}

func (q *fakeQueue) RemovePlayer(playerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.waiting, playerID)
}

func (q *fakeQueue) Queue() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.waiting))
	for id := range q.waiting {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (q *fakeQueue) callback(playerID string) matchmaker.Callback {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting[playerID]
}

type fakeGames struct {
	mu    sync.Mutex
	games []store.Game
}

func (g *fakeGames) add(game store.Game) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.games = append(g.games, game)
}

func (g *fakeGames) Game(playerID string) (store.Game, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, game := range g.games {
		if game.HasPlayer(playerID) {
			return game, true
		}
	}
	return store.Game{}, false
}

func (g *fakeGames) Games() []store.Game {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]store.Game(nil), g.games...)
}

type testEnv struct {
	issuer *authtest.Issuer
	store  *sqlite.SQLiteStore
	queue  *fakeQueue
	games  *fakeGames
	nodes  *noop.Provider
	server *Server
	ts     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer := authtest.NewIssuer(t)
	st, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	catalog, err := cards.New([]cards.Card{
		{ID: "squall", Values: cards.Values{Top: 4, Right: 5, Bottom: 6, Left: 7}},
		{ID: "rinoa", Values: cards.Values{Top: 9, Right: 2, Bottom: 3, Left: 8}, Element: cards.ElementIce},
	})
	require.NoError(t, err)

	env := &testEnv{
		issuer: issuer,
		store:  st,
		queue:  newFakeQueue(),
		games:  &fakeGames{},
		nodes:  noop.New(0),
	}

	cfg := config.Default().Coordinator
	cfg.Addr = "127.0.0.1:0"
	logger := zerolog.New(nil)
	env.server = NewServer(cfg, Deps{
		Players:  st,
		Games:    env.games,
		Queue:    env.queue,
		Nodes:    env.nodes,
		Cards:    catalog,
		Verifier: issuer.Verifier,
		Metrics:  metrics.New(),
	}, &logger)
	env.ts = httptest.NewServer(env.server.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

type received struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "bye") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: raw}))
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msg received
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

// login authenticates and drains the welcome events up to player_info.
func (e *testEnv) login(t *testing.T, playerID string) *websocket.Conn {
	t.Helper()
	conn := e.dial(t)
	send(t, conn, proto.InboundTypeHello, proto.HelloData{Token: e.issuer.Token(t, playerID, playerID)})
	for {
		msg := read(t, conn)
		require.Nil(t, msg.Error)
		if msg.Event == proto.EventPlayerInfo {
			return conn
		}
	}
}
