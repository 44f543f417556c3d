package sim

import "time"

// Animation names a transition a renderer may want to play on a zone.
type Animation string

const (
	AnimationConstruction Animation = "construction"
	AnimationAbandonment  Animation = "abandonment"
	AnimationDevelopment  Animation = "development"
)

// ViewHook is implemented by whatever renders the city. The core calls it when
// a tile's visual representation may be stale and never depends on what it does.
type ViewHook interface {
	RefreshTile(t *Tile)
	Animate(b *Building, a Animation)
	// RoadChanged reports a road placed at (x, y), or removed when road is nil.
	RoadChanged(x, y int, road *Building)
}

type nopView struct{}

func (nopView) RefreshTile(*Tile)               {}
func (nopView) Animate(*Building, Animation)    {}
func (nopView) RoadChanged(int, int, *Building) {}

// MetricsRecorder receives one observation per Simulate call.
type MetricsRecorder interface {
	ObserveTick(d time.Duration, s Stats)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(time.Duration, Stats) {}
