package sim

// FindTile runs a breadth-first search over the 4-neighbourhood of origin and
// returns the first tile satisfying pred, or nil. Tiles farther than
// maxDistance (Manhattan, inclusive) are pruned when dequeued, so the work is
// bounded by the search diamond rather than the grid. Each tile is visited at
// most once.
func (c *City) FindTile(origin Locatable, pred func(*Tile) bool, maxDistance int) *Tile {
	if origin == nil {
		return nil
	}
	start := c.grid.Tile(origin.Pos())
	if start == nil {
		return nil
	}

	visited := make(map[TileID]struct{})
	queue := []*Tile{start}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]

		if _, seen := visited[t.id]; seen {
			continue
		}
		visited[t.id] = struct{}{}

		if start.DistanceTo(t) > maxDistance {
			continue
		}
		queue = append(queue, c.grid.neighbors(t.x, t.y)...)

		if pred(t) {
			return t
		}
	}
	return nil
}
