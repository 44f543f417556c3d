package sim

import (
	"testing"

	"citysim/engine/internal/config"
)

func TestGridRowMajorIDs(t *testing.T) {
	g := newGrid(4)
	for i, tile := range g.tiles {
		if int(tile.ID()) != i {
			t.Fatalf("tile %d has id %d", i, tile.ID())
		}
		if want := tile.Y()*4 + tile.X(); want != i {
			t.Fatalf("tile (%d,%d) stored at %d", tile.X(), tile.Y(), i)
		}
	}
	if g.Tile(3, 1) != g.tiles[7] {
		t.Fatal("Tile(3,1) is not the eighth tile")
	}
}

func TestTileOutOfRange(t *testing.T) {
	c := newTestCity(t, 4, config.DefaultSimulation())
	for _, p := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 4}, {100, 100}} {
		if tile := c.Tile(p[0], p[1]); tile != nil {
			t.Errorf("Tile(%d,%d) = %v, want nil", p[0], p[1], tile)
		}
		if b := c.PlaceBuilding(p[0], p[1], Road); b != nil {
			t.Errorf("PlaceBuilding(%d,%d) placed a building", p[0], p[1])
		}
		if c.Bulldoze(p[0], p[1]) {
			t.Errorf("Bulldoze(%d,%d) reported a removal", p[0], p[1])
		}
	}
}

func TestDistanceToIsManhattan(t *testing.T) {
	g := newGrid(8)
	tests := []struct {
		ax, ay, bx, by, want int
	}{
		{0, 0, 0, 0, 0},
		{0, 0, 3, 0, 3},
		{1, 1, 3, 4, 5},
		{5, 2, 2, 6, 7},
	}
	for _, tt := range tests {
		a, b := g.Tile(tt.ax, tt.ay), g.Tile(tt.bx, tt.by)
		if got := a.DistanceTo(b); got != tt.want {
			t.Errorf("(%d,%d)->(%d,%d) = %d, want %d", tt.ax, tt.ay, tt.bx, tt.by, got, tt.want)
		}
		if a.DistanceTo(b) != b.DistanceTo(a) {
			t.Errorf("distance not symmetric for (%d,%d),(%d,%d)", tt.ax, tt.ay, tt.bx, tt.by)
		}
	}
}

func TestNeighbors(t *testing.T) {
	c := newTestCity(t, 3, config.DefaultSimulation())
	tests := []struct {
		x, y int
		want [][2]int
	}{
		{0, 0, [][2]int{{1, 0}, {0, 1}}},
		{1, 1, [][2]int{{0, 1}, {2, 1}, {1, 0}, {1, 2}}},
		{2, 2, [][2]int{{1, 2}, {2, 1}}},
	}
	for _, tt := range tests {
		got := c.Neighbors(tt.x, tt.y)
		if len(got) != len(tt.want) {
			t.Fatalf("Neighbors(%d,%d) = %d tiles, want %d", tt.x, tt.y, len(got), len(tt.want))
		}
		for i, w := range tt.want {
			if got[i].X() != w[0] || got[i].Y() != w[1] {
				t.Errorf("Neighbors(%d,%d)[%d] = (%d,%d), want %v", tt.x, tt.y, i, got[i].X(), got[i].Y(), w)
			}
		}
	}
	if c.Neighbors(5, 5) != nil {
		t.Error("Neighbors outside the grid should be nil")
	}
}
