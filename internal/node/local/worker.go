package local

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/game"
	"github.com/vovakirdan/arena-coordinator/internal/lobby"
	"github.com/vovakirdan/arena-coordinator/internal/node"
)

// Worker is an in-process node: one game, one listening endpoint.
type Worker struct {
	id       string
	log      *zerolog.Logger
	clock    clockwork.Clock
	timeout  time.Duration
	game     *game.State
	hub      *lobby.Hub
	verifier *auth.Verifier
	listen   func() (net.Listener, error)
	onExpire func()

	mu     sync.Mutex
	status node.Status
	server *stdhttp.Server
	port   int
	idle   clockwork.Timer
	cancel context.CancelFunc
}

// Start binds a port and serves the node endpoint.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status != node.StatusStopped {
		w.log.Debug().Str("status", string(w.status)).Msg("node is already started")
		return nil
	}

	w.log.Info().Msg("starting node")
	w.status = node.StatusStarting

	ln, err := w.listen()
	if err != nil {
		w.log.Error().Err(err).Msg("could not start node server")
		w.status = node.StatusUnknown
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.server = &stdhttp.Server{
		Handler:           w.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	w.port = ln.Addr().(*net.TCPAddr).Port

	go func(srv *stdhttp.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			w.log.Error().Err(err).Msg("node server stopped unexpectedly")
			w.mu.Lock()
			w.status = node.StatusUnknown
			w.mu.Unlock()
		}
	}(w.server)

	w.status = node.StatusRunning
	w.startIdleTimerLocked()
	w.log.Info().Int("port", w.port).Msg("node is now running")
	return nil
}

// Stop shuts the endpoint down. Stopping a node that is not running is a no-op.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.status != node.StatusRunning {
		w.log.Debug().Str("status", string(w.status)).Msg("node is not running")
		w.mu.Unlock()
		return nil
	}

	w.log.Info().Msg("stopping node")
	w.stopIdleTimerLocked()
	w.status = node.StatusStopping
	srv, cancel := w.server, w.cancel
	w.mu.Unlock()

	cancel()
	w.hub.CloseAll()
	err := srv.Shutdown(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.log.Error().Err(err).Msg("could not stop node server")
		w.status = node.StatusUnknown
		return err
	}
	w.status = node.StatusStopped
	w.log.Info().Msg("node is now stopped")
	return nil
}

// Status returns the lifecycle state.
func (w *Worker) Status() node.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Port returns the bound port, or zero before Start.
func (w *Worker) Port() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.port
}

// Game exposes the hosted game state.
func (w *Worker) Game() *game.State {
	return w.game
}

func (w *Worker) startIdleTimerLocked() {
	w.stopIdleTimerLocked()
	if w.timeout <= 0 {
		return
	}
	w.idle = w.clock.AfterFunc(w.timeout, func() {
		w.log.Debug().Dur("timeout", w.timeout).Msg("shutting down node, timeout reached")
		if w.onExpire != nil {
			w.onExpire()
		}
	})
}

func (w *Worker) stopIdleTimerLocked() {
	if w.idle != nil {
		w.idle.Stop()
		w.idle = nil
	}
}
