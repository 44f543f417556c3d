package sim

import (
	"math/rand"
	"testing"

	"citysim/engine/internal/config"
)

// fixedRand returns the same Float64 for every roll; Intn and Read come from a
// seeded source.
type fixedRand struct {
	*rand.Rand
	f float64
}

func (r fixedRand) Float64() float64 { return r.f }

func alwaysRand() Rand { return fixedRand{Rand: rand.New(rand.NewSource(1)), f: 0} }
func neverRand() Rand  { return fixedRand{Rand: rand.New(rand.NewSource(1)), f: 0.999} }

// seqRand replays a fixed list of Float64 values, then repeats the last.
type seqRand struct {
	*rand.Rand
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[min(r.i, len(r.vals)-1)]
	r.i++
	return v
}

type viewCall struct {
	kind string
	x, y int
	road bool
	anim Animation
}

type recordingView struct {
	calls []viewCall
}

func (v *recordingView) RefreshTile(t *Tile) {
	v.calls = append(v.calls, viewCall{kind: "refresh", x: t.x, y: t.y})
}

func (v *recordingView) Animate(b *Building, a Animation) {
	x, y := b.Pos()
	v.calls = append(v.calls, viewCall{kind: "animate", x: x, y: y, anim: a})
}

func (v *recordingView) RoadChanged(x, y int, road *Building) {
	v.calls = append(v.calls, viewCall{kind: "road", x: x, y: y, road: road != nil})
}

func (v *recordingView) count(kind string) int {
	n := 0
	for _, c := range v.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// fastConfig develops zones immediately and never abandons them.
func fastConfig() config.Simulation {
	cfg := config.DefaultSimulation()
	cfg.Development.ConstructionTime = 1
	cfg.Development.RedevelopChance = 1
	cfg.Development.LevelUpChance = 0
	cfg.Development.AbandonChance = 0
	cfg.Residents.MaxResidents = 3
	cfg.Residents.MoveInChance = 1
	cfg.Jobs.MaxWorkers = 3
	cfg.Citizen.MinWorkingAge = 0
	cfg.Citizen.RetirementAge = 1000
	cfg.Power.Required = map[string]int{}
	return cfg
}

func newTestCity(t *testing.T, size int, cfg config.Simulation, opts ...Option) *City {
	t.Helper()
	c, err := New(size, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mustPlace(t *testing.T, c *City, x, y int, typ BuildingType) *Building {
	t.Helper()
	b := c.PlaceBuilding(x, y, typ)
	if b == nil {
		t.Fatalf("PlaceBuilding(%d, %d, %s) returned nil", x, y, typ)
	}
	return b
}
