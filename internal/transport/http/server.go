package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/arena-coordinator/internal/auth"
	"github.com/vovakirdan/arena-coordinator/internal/cards"
	"github.com/vovakirdan/arena-coordinator/internal/config"
	"github.com/vovakirdan/arena-coordinator/internal/lobby"
	arenalog "github.com/vovakirdan/arena-coordinator/internal/log"
	"github.com/vovakirdan/arena-coordinator/internal/matchmaker"
	"github.com/vovakirdan/arena-coordinator/internal/metrics"
	"github.com/vovakirdan/arena-coordinator/internal/node"
	"github.com/vovakirdan/arena-coordinator/internal/store"
)

// Queue is the part of the matchmaker the boundary drives.
type Queue interface {
	AddPlayer(playerID string, onMatched matchmaker.Callback)
	RemovePlayer(playerID string)
	Queue() []string
}

// GameLocator finds tracked games.
type GameLocator interface {
	Game(playerID string) (store.Game, bool)
	Games() []store.Game
}

// Deps are the collaborators of the boundary server.
type Deps struct {
	Players  store.PlayerStore
	Games    GameLocator
	Queue    Queue
	Nodes    node.Provider
	Cards    *cards.Catalog
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
}

// Server is the coordinator boundary: player websockets, health, metrics and
// the inspection API.
type Server struct {
	cfg     config.CoordinatorConfig
	hub     *lobby.Hub
	log     *zerolog.Logger
	handler stdhttp.Handler

	mu     sync.Mutex
	srv    *stdhttp.Server
	ln     net.Listener
	cancel context.CancelFunc
}

// NewServer builds the boundary server. It does not bind until Start.
func NewServer(cfg config.CoordinatorConfig, deps Deps, logger *zerolog.Logger) *Server {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	log := arenalog.Component(logger, "boundary")
	hub := lobby.NewHub()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(log))

	api := NewAPIHandlers(deps, log)
	group := engine.Group("/api", AuthMiddleware(deps.Verifier, log))
	group.GET("/me", api.Me)
	group.GET("/games", api.Games)
	group.GET("/queue", api.Queue)
	group.GET("/nodes/:id", api.Node)

	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/ws", NewWSHandler(hub, deps, cfg.MessagesPerMinute, log))
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}
	mux.Handle("/api/", engine)

	return &Server{
		cfg:     cfg,
		hub:     hub,
		log:     log,
		handler: mux,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

// Hub returns the registry of connected players.
func (s *Server) Hub() *lobby.Hub {
	return s.hub
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.cfg.Addr
}

// Start binds the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &stdhttp.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.srv, s.ln, s.cancel = srv, ln, cancel

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			s.log.Error().Err(err).Msg("boundary server stopped unexpectedly")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("boundary server listening")
	return nil
}

// Stop disconnects players and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.srv, s.cancel
	s.srv, s.ln, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	cancel()
	s.hub.CloseAll()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown boundary server: %w", err)
	}
	s.log.Info().Msg("boundary server stopped")
	return nil
}

func healthHandler(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	_, _ = fmt.Fprint(w, "ok")
}
