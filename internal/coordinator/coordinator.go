package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
	"github.com/vovakirdan/arena-coordinator/internal/metrics"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// ErrStopTimeout is wrapped by StopTimeoutError.
var ErrStopTimeout = errors.New("coordinator did not stop in time")

// StopTimeoutError reports how long Stop waited before giving up.
type StopTimeoutError struct {
	Elapsed time.Duration
}

func (e *StopTimeoutError) Error() string {
	return fmt.Sprintf("%v (waited %s)", ErrStopTimeout, e.Elapsed)
}

func (e *StopTimeoutError) Unwrap() error {
	return ErrStopTimeout
}

// Listener is the inbound endpoint players connect to.
type Listener interface {
	// Start binds the endpoint. An error here is fatal for the coordinator.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Matchmaker forms new games on each tick.
type Matchmaker interface {
	Tick(ctx context.Context) []*store.Game
}

// Config holds the driving loop settings.
type Config struct {
	TickInterval time.Duration
	StopTimeout  time.Duration
}

type state int

const (
	stateStopped state = iota
	stateRunning
	stateStopping
)

// Coordinator drives reconciliation and matchmaking on a fixed interval.
type Coordinator struct {
	cfg        Config
	clock      clockwork.Clock
	provider   node.Provider
	games      store.GameStore
	matchmaker Matchmaker
	listener   Listener
	metrics    *metrics.Metrics
	log        *zerolog.Logger

	mu     sync.Mutex
	state  state
	stopCh chan struct{}
	done   chan struct{}

	trackedMu sync.RWMutex
	tracked   []*store.Game
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the clock used for ticks and the stop timeout.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithMetrics records loop metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithListener attaches the inbound endpoint started and stopped with the loop.
func WithListener(l Listener) Option {
	return func(c *Coordinator) {
		c.listener = l
	}
}

// New creates a stopped coordinator.
func New(cfg Config, provider node.Provider, games store.GameStore, mm Matchmaker, logger *zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		provider:   provider,
		games:      games,
		matchmaker: mm,
		log:        arenalog.Component(logger, "coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetListener attaches the inbound endpoint after construction. It takes
// effect on the next Start.
func (c *Coordinator) SetListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = l
}

// Start launches the driving loop. Starting a running coordinator is a no-op.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateStopped {
		c.log.Debug().Msg("coordinator is already running")
		return nil
	}

	c.log.Info().Dur("tick_interval", c.cfg.TickInterval).Msg("starting coordinator")
	if c.listener != nil {
		if err := c.listener.Start(ctx); err != nil {
			return fmt.Errorf("start listener: %w", err)
		}
	}

	c.state = stateRunning
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stopCh, c.done)
	return nil
}

// Stop asks the loop to exit and waits up to the stop timeout.
// The loop finishes its current tick and sleep first. Stopping a stopped
// coordinator, or one already stopping, is a no-op.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateRunning {
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopping
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()

	c.log.Info().Msg("stopping coordinator")
	start := c.clock.Now()
	timer := c.clock.NewTimer(c.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		c.log.Info().Dur("elapsed", c.clock.Since(start)).Msg("coordinator stopped")
		return nil
	case <-timer.Chan():
		return &StopTimeoutError{Elapsed: c.clock.Since(start)}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the loop is active.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRunning
}

// Done is closed once the current loop has exited. Nil before the first Start.
func (c *Coordinator) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Coordinator) run(stopCh <-chan struct{}, done chan<- struct{}) {
	ctx := context.Background()
	defer func() {
		if c.listener != nil {
			stopCtx, cancel := context.WithTimeout(ctx, c.cfg.StopTimeout)
			if err := c.listener.Stop(stopCtx); err != nil {
				c.log.Warn().Err(err).Msg("failed to stop listener")
			}
			cancel()
		}
		c.mu.Lock()
		c.state = stateStopped
		c.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		c.Tick(ctx)
		c.clock.Sleep(c.cfg.TickInterval)
	}
}

// Tick runs one reconciliation and matchmaking pass. It never fails; errors
// are logged per game.
func (c *Coordinator) Tick(ctx context.Context) {
	start := c.clock.Now()

	c.reconcile(ctx)
	c.dropEnded()

	if created := c.matchmaker.Tick(ctx); len(created) > 0 {
		c.track(created)
	}

	c.metrics.SetTrackedGames(c.trackedCount())
	c.metrics.SetActiveNodes(c.provider.Count())
	c.metrics.ObserveTick(c.clock.Since(start))
}
