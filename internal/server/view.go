package server

import "citysim/engine/internal/sim"

// viewBuffer collects view callbacks from the city between flushes. It is only
// touched with Server.mu held.
type viewBuffer struct {
	seen       map[*sim.Tile]bool
	dirty      []*sim.Tile
	animations []AnimationEvent
	roads      []RoadChangedEvent
}

func newViewBuffer() *viewBuffer {
	return &viewBuffer{seen: map[*sim.Tile]bool{}}
}

func (v *viewBuffer) RefreshTile(t *sim.Tile) {
	if t == nil || v.seen[t] {
		return
	}
	v.seen[t] = true
	v.dirty = append(v.dirty, t)
}

func (v *viewBuffer) Animate(b *sim.Building, a sim.Animation) {
	x, y := b.Pos()
	v.animations = append(v.animations, AnimationEvent{X: x, Y: y, BuildingID: b.ID(), Animation: a})
}

func (v *viewBuffer) RoadChanged(x, y int, road *sim.Building) {
	ev := RoadChangedEvent{X: x, Y: y}
	if road != nil {
		view := road.View()
		ev.Road = &view
	}
	v.roads = append(v.roads, ev)
}

// drain returns the pending tile updates in the order tiles were first
// refreshed and empties the buffer.
func (v *viewBuffer) drain() ([]BuildingUpdate, []AnimationEvent, []RoadChangedEvent) {
	updates := make([]BuildingUpdate, 0, len(v.dirty))
	for _, t := range v.dirty {
		u := BuildingUpdate{X: t.X(), Y: t.Y()}
		if b := t.Building(); b != nil {
			view := b.View()
			u.Building = &view
		}
		updates = append(updates, u)
	}
	animations, roads := v.animations, v.roads
	v.reset()
	return updates, animations, roads
}

func (v *viewBuffer) reset() {
	clear(v.seen)
	v.dirty = nil
	v.animations = nil
	v.roads = nil
}
