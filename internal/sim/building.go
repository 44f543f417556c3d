package sim

import (
	"errors"
	"fmt"

	"citysim/engine/internal/config"
)

var (
	ErrNegativePower       = errors.New("power required cannot be negative")
	ErrUnknownBuildingType = errors.New("unknown building type")
)

type BuildingType string

const (
	Residential BuildingType = "residential"
	Commercial  BuildingType = "commercial"
	Industrial  BuildingType = "industrial"
	Road        BuildingType = "road"
	PowerPlant  BuildingType = "power-plant"
	PowerLine   BuildingType = "power-line"
)

// BuildingTypes lists every placeable type in a stable order.
func BuildingTypes() []BuildingType {
	return []BuildingType{Residential, Commercial, Industrial, Road, PowerPlant, PowerLine}
}

// ParseBuildingType accepts the wire name of a building type.
func ParseBuildingType(s string) (BuildingType, error) {
	t := BuildingType(s)
	if !t.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownBuildingType, s)
	}
	return t, nil
}

func (t BuildingType) valid() bool {
	switch t {
	case Residential, Commercial, Industrial, Road, PowerPlant, PowerLine:
		return true
	}
	return false
}

// IsZone reports whether buildings of this type develop over time.
func (t BuildingType) IsZone() bool {
	return t == Residential || t == Commercial || t == Industrial
}

func (t BuildingType) displayName() string {
	switch t {
	case Residential:
		return "Residential Zone"
	case Commercial:
		return "Commercial Zone"
	case Industrial:
		return "Industrial Zone"
	case Road:
		return "Road"
	case PowerPlant:
		return "Power Plant"
	case PowerLine:
		return "Power Line"
	}
	return string(t)
}

type Status string

const (
	StatusOk           Status = "ok"
	StatusNoPower      Status = "no-power"
	StatusNoRoadAccess Status = "no-road-access"
)

// BuildingID is stable for the lifetime of a city and never reused.
type BuildingID uint64

// Building is a tagged variant: every building owns Power and RoadAccess, the
// remaining modules are present only for the types that use them.
type Building struct {
	id     BuildingID
	typ    BuildingType
	name   string
	tile   *Tile
	status Status

	Power       *PowerModule
	RoadAccess  *RoadAccessModule
	Development *DevelopmentModule
	Jobs        *JobsModule
	Residents   *ResidentsModule
	Plant       *PlantModule

	connections Connections
}

// newBuilding is the factory for every building variant.
func newBuilding(typ BuildingType, cfg config.Simulation) (*Building, error) {
	if !typ.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuildingType, string(typ))
	}
	power, err := NewPowerModule(cfg.Power.Required[string(typ)])
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", typ, err)
	}
	b := &Building{typ: typ, name: typ.displayName(), Power: power}
	b.RoadAccess = &RoadAccessModule{b: b, enabled: true, searchDistance: cfg.RoadAccess.SearchDistance}

	switch typ {
	case Residential:
		b.Development = newDevelopmentModule(b, cfg.Development)
		b.Residents = &ResidentsModule{b: b, cfg: cfg.Residents, citizenCfg: cfg.Citizen}
	case Commercial, Industrial:
		b.Development = newDevelopmentModule(b, cfg.Development)
		b.Jobs = &JobsModule{b: b, base: cfg.Jobs.MaxWorkers}
	case Road, PowerLine:
		b.RoadAccess.disable()
	case PowerPlant:
		b.Plant = &PlantModule{b: b, capacity: cfg.Power.PlantCapacity}
	}
	b.updateStatus()
	return b, nil
}

func (b *Building) ID() BuildingID     { return b.id }
func (b *Building) Type() BuildingType { return b.typ }
func (b *Building) Name() string       { return b.name }
func (b *Building) Status() Status     { return b.status }
func (b *Building) Tile() *Tile        { return b.tile }

// Pos is derived from the owning tile.
func (b *Building) Pos() (int, int) {
	if b.tile == nil {
		return -1, -1
	}
	return b.tile.x, b.tile.y
}

func (b *Building) HasDevelopment() bool { return b.Development != nil }
func (b *Building) HasJobs() bool        { return b.Jobs != nil }
func (b *Building) HasResidents() bool   { return b.Residents != nil }
func (b *Building) IsPowerPlant() bool   { return b.Plant != nil }

// Connections is the mask of same-type orthogonal neighbours, kept for roads
// and power lines.
func (b *Building) Connections() Connections { return b.connections }

func (b *Building) simulate(c *City) {
	b.RoadAccess.simulate(c)
	if b.updateStatus() {
		c.view.RefreshTile(b.tile)
	}
	if b.Development != nil {
		b.Development.simulate(c)
	}
	if b.Jobs != nil {
		b.Jobs.simulate()
	}
	if b.Residents != nil {
		b.Residents.simulate(c)
	}
}

// updateStatus recomputes status with priority NoPower > NoRoadAccess > Ok and
// reports whether it changed.
func (b *Building) updateStatus() bool {
	next := StatusOk
	switch {
	case !b.Power.IsFullyPowered():
		next = StatusNoPower
	case !b.RoadAccess.Value():
		next = StatusNoRoadAccess
	}
	changed := next != b.status
	b.status = next
	return changed
}

// dispose runs synchronously before the tile releases the building.
func (b *Building) dispose(c *City) {
	if b.Jobs != nil {
		b.Jobs.dispose()
	}
	if b.Residents != nil {
		b.Residents.dispose(c)
	}
	b.Power.supplied = 0
	if b.Plant != nil {
		b.Plant.consumed = 0
	}
}

// refreshConnections recomputes the neighbour mask for roads and power lines.
func (b *Building) refreshConnections(g *Grid) {
	if b.typ != Road && b.typ != PowerLine {
		return
	}
	x, y := b.Pos()
	same := func(x, y int) bool {
		t := g.Tile(x, y)
		return t != nil && t.building != nil && t.building.typ == b.typ
	}
	var c Connections
	if same(x, y-1) {
		c |= ConnTop
	}
	if same(x, y+1) {
		c |= ConnBottom
	}
	if same(x-1, y) {
		c |= ConnLeft
	}
	if same(x+1, y) {
		c |= ConnRight
	}
	b.connections = c
}
