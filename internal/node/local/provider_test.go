package local

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/arena-coordinator/internal/auth/authtest"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/proto"
	"github.com/vovakirdan/arena-coordinator/internal/ruleset"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

func newTestProvider(t *testing.T, mutate func(*Config), opts ...Option) (*Provider, *authtest.Issuer) {
	t.Helper()

	issuer := authtest.NewIssuer(t)
	cfg := Config{
		Config: node.Config{
			MaxNodes:      4,
			NodeTimeout:   time.Hour,
			PublicKeyPath: issuer.PublicKeyPath,
			Algorithms:    []string{"RS256"},
		},
		Host: "127.0.0.1",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logger := zerolog.New(nil)
	p, err := New(cfg, &logger, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.StopAll(context.Background()) })
	return p, issuer
}

func players(ids ...string) []*store.Player {
	out := make([]*store.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, &store.Player{ID: id, Username: id, Rank: store.DefaultRank})
	}
	return out
}

func TestCreateNodeRespectsCapacity(t *testing.T) {
	p, _ := newTestProvider(t, func(c *Config) { c.MaxNodes = 1 })
	ctx := context.Background()

	_, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)

	_, err = p.CreateNode(ctx, players("c", "d"), ruleset.Standard())
	assert.ErrorIs(t, err, node.ErrNodesLimitReached)
	assert.Equal(t, 1, p.Count())
}

func TestStopUnknownNode(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	ctx := context.Background()

	_, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)
	before := p.Count()

	err = p.StopNode(ctx, "nonexistent")
	assert.ErrorIs(t, err, node.ErrNodeNotFound)
	assert.Equal(t, before, p.Count())

	_, err = p.NodeInfo(ctx, "nonexistent")
	assert.ErrorIs(t, err, node.ErrNodeNotFound)
	_, err = p.GameInfo(ctx, "nonexistent")
	assert.ErrorIs(t, err, node.ErrNodeNotFound)
}

func TestStartupFailureDoesNotLeak(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	p, _ := newTestProvider(t, func(c *Config) {
		c.MinPort = port
		c.MaxPort = port
	})

	before := p.Count()
	_, err = p.CreateNode(context.Background(), players("a", "b"), ruleset.Standard())
	assert.ErrorIs(t, err, ErrNoFreePort)
	assert.Equal(t, before, p.Count())
}

func TestPortScanSkipsBusyPorts(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	// The port right after the busy one is very likely free; if not, skip.
	probe, err := net.Listen("tcp", fmt.Sprintf(":%d", port+1))
	if err != nil {
		t.Skipf("port %d unavailable: %v", port+1, err)
	}
	probe.Close()

	p, _ := newTestProvider(t, func(c *Config) {
		c.MinPort = port
		c.MaxPort = port + 1
	})

	id, err := p.CreateNode(context.Background(), players("a", "b"), ruleset.Standard())
	require.NoError(t, err)

	info, err := p.NodeInfo(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, port+1, info.Port)
}

func TestNodeLifecycle(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	ctx := context.Background()

	id, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)

	info, err := p.NodeInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, "127.0.0.1", info.Host)
	assert.Equal(t, node.StatusRunning, info.Status)
	assert.NotZero(t, info.Port)

	gi, err := p.GameInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.GameStatusInitialized, gi.Status)
	assert.Equal(t, []string{"a", "b"}, gi.PlayerIDs)

	w, err := p.Worker(id)
	require.NoError(t, err)

	require.NoError(t, p.StopNode(ctx, id))
	assert.Equal(t, node.StatusStopped, w.Status())
	assert.Equal(t, 0, p.Count())
	assert.ErrorIs(t, p.StopNode(ctx, id), node.ErrNodeNotFound)
}

func TestIdleTimeoutStopsNode(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p, _ := newTestProvider(t, func(c *Config) { c.NodeTimeout = time.Minute }, WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)
	w, err := p.Worker(id)
	require.NoError(t, err)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(59 * time.Second)
	assert.Equal(t, node.StatusRunning, w.Status())

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return p.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, node.StatusStopped, w.Status())
}

func dialNode(t *testing.T, ctx context.Context, port int) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://127.0.0.1:%d/ws", port), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendHello(t *testing.T, ctx context.Context, conn *websocket.Conn, token string) {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": proto.InboundTypeHello,
		"data": proto.HelloData{Token: token},
	}))
}

type gameInfoEnvelope struct {
	Type  string        `json:"type"`
	Event string        `json:"event"`
	Data  node.GameInfo `json:"data"`
	Error *proto.Error  `json:"error"`
}

func TestNodeEndpointAdmitsOnlyGamePlayers(t *testing.T) {
	p, issuer := newTestProvider(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)
	info, err := p.NodeInfo(ctx, id)
	require.NoError(t, err)

	stranger := dialNode(t, ctx, info.Port)
	sendHello(t, ctx, stranger, issuer.Token(t, "eve", "eve"))
	var rejected gameInfoEnvelope
	require.NoError(t, wsjson.Read(ctx, stranger, &rejected))
	require.NotNil(t, rejected.Error)
	assert.Equal(t, proto.ErrCodeForbidden, rejected.Error.Code)

	alice := dialNode(t, ctx, info.Port)
	sendHello(t, ctx, alice, issuer.Token(t, "a", "alice"))
	var first gameInfoEnvelope
	require.NoError(t, wsjson.Read(ctx, alice, &first))
	assert.Equal(t, proto.EventGameInfo, first.Event)
	assert.Equal(t, store.GameStatusInitialized, first.Data.Status)

	bob := dialNode(t, ctx, info.Port)
	sendHello(t, ctx, bob, issuer.Token(t, "b", "bob"))
	var started gameInfoEnvelope
	require.NoError(t, wsjson.Read(ctx, bob, &started))
	assert.Equal(t, store.GameStatusStarting, started.Data.Status)

	require.NoError(t, wsjson.Read(ctx, alice, &started))
	assert.Equal(t, store.GameStatusStarting, started.Data.Status)

	gi, err := p.GameInfo(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.GameStatusStarting, gi.Status)
}

func TestListenInRangeStaysInsideRange(t *testing.T) {
	free, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	upper := free.Addr().(*net.TCPAddr).Port
	require.NoError(t, free.Close())

	ln, err := listenInRange(0, upper)
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.GreaterOrEqual(t, port, 1)
	assert.LessOrEqual(t, port, upper)
}

func TestListenInRangeWithoutRangeUsesAnyPort(t *testing.T) {
	ln, err := listenInRange(0, 0)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotZero(t, ln.Addr().(*net.TCPAddr).Port)
}

var errCloseFailed = errors.New("close failed")

// closeFailingListener closes the socket but reports an error, which makes
// the node server shutdown fail.
type closeFailingListener struct {
	net.Listener
}

func (l closeFailingListener) Close() error {
	_ = l.Listener.Close()
	return errCloseFailed
}

func TestStopNodeReleasesEntryWhenStopFails(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	p.listen = func(minPort, maxPort int) (net.Listener, error) {
		ln, err := listenInRange(minPort, maxPort)
		if err != nil {
			return nil, err
		}
		return closeFailingListener{ln}, nil
	}
	ctx := context.Background()

	id, err := p.CreateNode(ctx, players("a", "b"), ruleset.Standard())
	require.NoError(t, err)
	w, err := p.Worker(id)
	require.NoError(t, err)
	require.Equal(t, 1, p.Count())

	err = p.StopNode(ctx, id)
	require.ErrorIs(t, err, errCloseFailed)
	var nodeErr *node.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, id, nodeErr.NodeID)

	assert.Equal(t, 0, p.Count())
	assert.Equal(t, node.StatusUnknown, w.Status())
	assert.ErrorIs(t, p.StopNode(ctx, id), node.ErrNodeNotFound)
}
