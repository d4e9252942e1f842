package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

func get(t *testing.T, url, token string) (*stdhttp.Response, []byte) {
	t.Helper()
	req, err := stdhttp.NewRequest(stdhttp.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := stdhttp.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := get(t, env.ts.URL+"/health", "")
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, body := get(t, env.ts.URL+"/metrics", "")
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "arena_queue_size")
}

func TestAPIRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := get(t, env.ts.URL+"/api/queue", "")
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)

	resp, _ = get(t, env.ts.URL+"/api/queue", "garbage")
	assert.Equal(t, stdhttp.StatusUnauthorized, resp.StatusCode)
}

func TestAPIMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.issuer.Token(t, "p1", "Squall")

	resp, _ := get(t, env.ts.URL+"/api/me", token)
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)

	require.NoError(t, env.store.CreatePlayer(context.Background(), &store.Player{
		ID: "p1", Username: "Squall", Rank: store.DefaultRank, Cards: []string{"rinoa"},
	}))
	resp, body := get(t, env.ts.URL+"/api/me", token)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"playerId":"p1","username":"Squall","rank":1500,"cards":["rinoa"]}`, string(body))
}

func TestAPIGamesQueueAndNodes(t *testing.T) {
	env := newTestEnv(t)
	token := env.issuer.Token(t, "p1", "Squall")

	nodeID, err := env.nodes.CreateNode(context.Background(), []*store.Player{{ID: "p2"}, {ID: "p3"}}, ruleset.Standard())
	require.NoError(t, err)
	require.NoError(t, env.nodes.SetStatus(nodeID, node.StatusRunning, store.GameStatusInProgress))
	env.games.add(store.Game{ID: "g1", NodeID: nodeID, PlayerIDs: []string{"p2", "p3"}, Status: store.GameStatusInProgress})
	env.queue.AddPlayer("p4", func(*store.Game) {})

	resp, body := get(t, env.ts.URL+"/api/games", token)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	var games []GameResponse
	require.NoError(t, json.Unmarshal(body, &games))
	require.Len(t, games, 1)
	assert.Equal(t, "g1", games[0].ID)
	assert.Equal(t, string(store.GameStatusInProgress), games[0].Status)

	resp, body = get(t, env.ts.URL+"/api/queue", token)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"players":["p4"]}`, string(body))

	resp, body = get(t, env.ts.URL+"/api/nodes/"+nodeID, token)
	require.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	var info node.Info
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, nodeID, info.ID)
	assert.Equal(t, node.StatusRunning, info.Status)

	resp, _ = get(t, env.ts.URL+"/api/nodes/missing", token)
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.server.Start(ctx))
	require.NoError(t, env.server.Start(ctx), "second start is a no-op")

	resp, body := get(t, "http://"+env.server.Addr()+"/health", "")
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, env.server.Stop(ctx))
	require.NoError(t, env.server.Stop(ctx), "second stop is a no-op")
}
