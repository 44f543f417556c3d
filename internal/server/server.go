// Package server exposes a running city over a websocket: clients receive the
// full state on connect, per-tick summaries and tile updates, and may place or
// bulldoze buildings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
	"citysim/engine/internal/observability"
	"citysim/engine/internal/sim"
)

// Server owns a city and serialises every access to it.
type Server struct {
	cfg      config.ServerConfig
	log      logging.Logger
	metrics  *observability.SimCollector
	upgrader websocket.Upgrader
	hub      *Hub

	mu   sync.Mutex
	city *sim.City
	view *viewBuffer
}

// Option configures a Server during New.
type Option func(*Server)

func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCollector reports client counts and actions, and serves /metrics.
func WithCollector(c *observability.SimCollector) Option {
	return func(s *Server) { s.metrics = c }
}

// New builds the city through newCity, passing the view hook the server
// listens on.
func New(cfg config.ServerConfig, newCity func(view sim.ViewHook) (*sim.City, error), opts ...Option) (*Server, error) {
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("server: tick interval must be positive, got %s", cfg.TickInterval)
	}
	s := &Server{
		cfg:      cfg,
		log:      logging.Noop(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		view:     newViewBuffer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	city, err := newCity(s.view)
	if err != nil {
		return nil, fmt.Errorf("server: create city: %w", err)
	}
	s.city = city
	// Clients get the initial refreshes as part of full_state.
	s.view.reset()
	s.hub = newHub(s.log, s.metrics.SetClients)
	return s, nil
}

// Run drives the hub and the tick loop until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.hub.start(ctx)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	s.log.Info(ctx, "tick loop started", logging.String("interval", s.cfg.TickInterval.String()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step advances the city by one tick and broadcasts what changed.
func (s *Server) Step(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, span := observability.StartTick(ctx, s.city, 1)
	s.city.Simulate(1)
	observability.EndTick(span, s.city)
	s.flushLocked(ctx)
	s.announce(ctx, EventTick, s.city.Stats())
}

// Snapshot returns the current state of the city.
func (s *Server) Snapshot() sim.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city.Snapshot()
}

// Handler routes /ws, /api/state and, with a collector, /metrics. Websocket
// clients are turned away until Run has started the hub.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/state", s.handleState)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// ListenAndServe runs the tick loop and an HTTP server on cfg.Addr until ctx
// is cancelled, then shuts both down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	go s.Run(ctx)
	s.log.Info(ctx, "serving city", logging.String("addr", s.cfg.Addr))

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Mayor"
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}
	c := &client{id: uuid.New().String(), name: name, conn: conn, send: make(chan []byte, 128)}

	// Queue full_state and register under the lock so no broadcast can slip
	// in between.
	s.mu.Lock()
	msg, err := encode(EventFullState, s.city.Snapshot())
	if err == nil {
		c.send <- msg
		if !s.hub.join(c) {
			err = errors.New("hub not running")
		}
	}
	s.mu.Unlock()
	if err != nil {
		s.log.Warn(r.Context(), "cannot accept client", logging.String("client", c.id), logging.Err(err))
		conn.Close()
		return
	}

	s.log.Info(r.Context(), "client connected", logging.String("client", c.id), logging.String("name", name))
	go c.writer()
	go c.reader(s.hub, s.handleAction)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.log.Warn(context.Background(), "encode state", logging.Err(err))
	}
}

func (s *Server) handleAction(c *client, env Envelope) {
	ctx := context.Background()
	switch env.Type {
	case ActionPlaceBuilding:
		var p PlaceBuildingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.reject(c, env.Type, "malformed payload")
			return
		}
		typ, err := sim.ParseBuildingType(p.Type)
		if err != nil {
			s.reject(c, env.Type, err.Error())
			return
		}
		s.placeBuilding(ctx, c, p.X, p.Y, typ)
	case ActionBulldoze:
		var p BulldozePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			s.reject(c, env.Type, "malformed payload")
			return
		}
		s.bulldoze(ctx, c, p.X, p.Y)
	default:
		s.reject(c, env.Type, "unknown action")
	}
}

func (s *Server) placeBuilding(ctx context.Context, c *client, x, y int, typ sim.BuildingType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.city.PlaceBuilding(x, y, typ)
	s.metrics.RecordAction(ActionPlaceBuilding, b != nil)
	if b == nil {
		s.reject(c, ActionPlaceBuilding, fmt.Sprintf("cannot place %s at (%d,%d)", typ, x, y))
		return
	}
	s.log.Debug(ctx, "client placed building", logging.String("client", c.id), logging.Pos(x, y), logging.String("type", string(typ)))
	s.announce(ctx, EventBuildingPlaced, b.View())
	s.flushLocked(ctx)
}

func (s *Server) bulldoze(ctx context.Context, c *client, x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.city.Bulldoze(x, y)
	s.metrics.RecordAction(ActionBulldoze, ok)
	if !ok {
		s.reject(c, ActionBulldoze, fmt.Sprintf("nothing to bulldoze at (%d,%d)", x, y))
		return
	}
	s.announce(ctx, EventBulldozed, BulldozePayload{X: x, Y: y})
	s.flushLocked(ctx)
}

// flushLocked broadcasts the view changes collected since the last flush.
func (s *Server) flushLocked(ctx context.Context) {
	updates, animations, roads := s.view.drain()
	for _, r := range roads {
		s.announce(ctx, EventRoadChanged, r)
	}
	for _, a := range animations {
		s.announce(ctx, EventAnimation, a)
	}
	if len(updates) > 0 {
		s.announce(ctx, EventBuildingUpdate, struct {
			Updates []BuildingUpdate `json:"updates"`
		}{updates})
	}
}

func (s *Server) announce(ctx context.Context, t string, data any) {
	msg, err := encode(t, data)
	if err != nil {
		s.log.Error(ctx, "encode event", logging.String("event", t), logging.Err(err))
		return
	}
	s.hub.publish(msg)
}

// reject tells a single client its action was refused.
func (s *Server) reject(c *client, action, reason string) {
	msg, err := encode(EventRejected, RejectedEvent{Action: action, Reason: reason})
	if err != nil {
		return
	}
	s.hub.sendTo(c, msg)
}
