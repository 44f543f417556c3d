// Package sim is the tick-based city simulation core: tiles and buildings,
// zone development, power distribution, road access and citizens.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
)

// City owns the grid and the services and drives the simulation. It is not
// safe for concurrent use; callers serialise access.
type City struct {
	name     string
	grid     *Grid
	services []Service
	simTime  int64
	cfg      config.Simulation

	rng     Rand
	log     logging.Logger
	view    ViewHook
	metrics MetricsRecorder

	buildings map[BuildingID]*Building
	lastID    BuildingID
}

// Option configures a City during New.
type Option func(*City)

// WithRand injects the random source every chance roll draws from.
func WithRand(rng Rand) Option {
	return func(c *City) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(l logging.Logger) Option {
	return func(c *City) {
		if l != nil {
			c.log = l
		}
	}
}

// WithViewHook routes tile refreshes, animations and road changes to v.
func WithViewHook(v ViewHook) Option {
	return func(c *City) {
		if v != nil {
			c.view = v
		}
	}
}

func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(c *City) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithName(name string) Option {
	return func(c *City) { c.name = name }
}

// WithServices registers services that run after PowerService.
func WithServices(s ...Service) Option {
	return func(c *City) { c.services = append(c.services, s...) }
}

// New builds an empty size x size city.
func New(size int, cfg config.Simulation, opts ...Option) (*City, error) {
	if size <= 0 {
		return nil, fmt.Errorf("city size must be positive, got %d", size)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	c := &City{
		name:      "My City",
		grid:      newGrid(size),
		cfg:       cfg,
		log:       logging.Noop(),
		view:      nopView{},
		metrics:   nopMetrics{},
		buildings: make(map[BuildingID]*Building),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = newTimeSeededRand()
	}
	c.services = append([]Service{NewPowerService()}, c.services...)

	for _, t := range c.grid.tiles {
		c.view.RefreshTile(t)
	}
	return c, nil
}

func (c *City) Name() string   { return c.name }
func (c *City) Size() int      { return c.grid.size }
func (c *City) SimTime() int64 { return c.simTime }

// Tile returns nil outside the grid.
func (c *City) Tile(x, y int) *Tile { return c.grid.Tile(x, y) }

// Tiles returns every tile in row-major order.
func (c *City) Tiles() []*Tile {
	return append([]*Tile(nil), c.grid.tiles...)
}

// Neighbors returns the in-range orthogonal neighbours of (x, y).
func (c *City) Neighbors(x, y int) []*Tile {
	if !c.grid.inBounds(x, y) {
		return nil
	}
	return c.grid.neighbors(x, y)
}

// Building resolves an ID; it returns nil once the building is bulldozed.
func (c *City) Building(id BuildingID) *Building {
	if id == 0 {
		return nil
	}
	return c.buildings[id]
}

// Services returns the registered services in run order.
func (c *City) Services() []Service {
	return append([]Service(nil), c.services...)
}

// Simulate advances the city by steps. SimTime grows by one per call,
// whatever the step count.
func (c *City) Simulate(steps int) {
	start := time.Now()
	for i := 0; i < steps; i++ {
		for _, s := range c.services {
			s.Simulate(c)
		}
		for _, t := range c.grid.tiles {
			t.simulate(c)
		}
	}
	c.simTime++
	c.metrics.ObserveTick(time.Since(start), c.Stats())
}

// PlaceBuilding erects a building of typ at (x, y). It returns nil and changes
// nothing when the tile is out of range or occupied, or when the building
// cannot be constructed.
func (c *City) PlaceBuilding(x, y int, typ BuildingType) *Building {
	ctx := context.Background()
	t := c.grid.Tile(x, y)
	if t == nil || t.building != nil {
		return nil
	}
	b, err := newBuilding(typ, c.cfg)
	if err != nil {
		level := c.log.Error
		if errors.Is(err, ErrUnknownBuildingType) {
			level = c.log.Warn
		}
		level(ctx, "cannot place building", logging.Pos(x, y), logging.Err(err))
		return nil
	}
	c.lastID++
	b.id = c.lastID
	c.buildings[b.id] = b
	t.setBuilding(b)

	c.refreshAround(t)
	if b.typ == Road {
		c.view.RoadChanged(x, y, b)
	}
	c.log.Debug(ctx, "building placed", logging.Pos(x, y), logging.String("type", string(typ)))
	return b
}

// Bulldoze disposes the building at (x, y) and clears the tile. It reports
// whether anything was removed.
func (c *City) Bulldoze(x, y int) bool {
	t := c.grid.Tile(x, y)
	if t == nil || t.building == nil {
		return false
	}
	b := t.building
	if b.typ == Road {
		c.view.RoadChanged(x, y, nil)
	}
	b.dispose(c)
	delete(c.buildings, b.id)
	t.building = nil
	b.tile = nil

	c.refreshAround(t)
	c.log.Debug(context.Background(), "building bulldozed", logging.Pos(x, y), logging.String("type", string(b.typ)))
	return true
}

// Population sums the residents of every zone.
func (c *City) Population() int {
	n := 0
	for _, t := range c.grid.tiles {
		if b := t.building; b != nil && b.Residents != nil {
			n += b.Residents.Count()
		}
	}
	return n
}

func (c *City) refreshAround(t *Tile) {
	c.refresh(t)
	for _, n := range c.grid.neighbors(t.x, t.y) {
		c.refresh(n)
	}
}

func (c *City) refresh(t *Tile) {
	if t.building != nil {
		t.building.refreshConnections(c.grid)
	}
	c.view.RefreshTile(t)
}
