package sim

// TileID is a tile's row-major index, unique within a grid.
type TileID int

// Locatable is anything with integer grid coordinates.
type Locatable interface {
	Pos() (x, y int)
}

// Tile is one parcel of land. It owns at most one building.
type Tile struct {
	id       TileID
	x, y     int
	building *Building
}

func (t *Tile) ID() TileID          { return t.id }
func (t *Tile) X() int              { return t.x }
func (t *Tile) Y() int              { return t.y }
func (t *Tile) Pos() (int, int)     { return t.x, t.y }
func (t *Tile) Building() *Building { return t.building }

// DistanceTo is the Manhattan distance, the same metric FindTile prunes with.
func (t *Tile) DistanceTo(o Locatable) int {
	ox, oy := o.Pos()
	return abs(t.x-ox) + abs(t.y-oy)
}

func (t *Tile) setBuilding(b *Building) {
	t.building = b
	if b != nil {
		b.tile = t
	}
}

func (t *Tile) simulate(c *City) {
	if t.building != nil {
		t.building.simulate(c)
	}
}

// Grid is a fixed NxN array of tiles stored row-major (y outer, x inner).
type Grid struct {
	size  int
	tiles []*Tile
}

func newGrid(size int) *Grid {
	g := &Grid{size: size, tiles: make([]*Tile, 0, size*size)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g.tiles = append(g.tiles, &Tile{id: TileID(y*size + x), x: x, y: y})
		}
	}
	return g
}

func (g *Grid) Size() int { return g.size }

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.size && y < g.size
}

// Tile returns nil outside the grid.
func (g *Grid) Tile(x, y int) *Tile {
	if !g.inBounds(x, y) {
		return nil
	}
	return g.tiles[y*g.size+x]
}

var neighborDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// neighbors returns the in-range 4-neighbourhood: left, right, up, down.
func (g *Grid) neighbors(x, y int) []*Tile {
	out := make([]*Tile, 0, 4)
	for _, d := range neighborDirs {
		if t := g.Tile(x+d[0], y+d[1]); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
