package sim

import (
	"github.com/boljen/go-bitmap"
)

// Service is a city-wide pass run before the tile pass of every step.
type Service interface {
	Name() string
	Simulate(c *City)
}

// PowerService connects plants to consumers through power lines and hands
// out plant capacity.
//
// Nodes are power-line tiles plus every building tile orthogonally adjacent
// to a line. Edges join a line to each adjacent building, line or not, so a
// building touching two separate lines bridges them. Within one component
// plants pool their Available capacity and consumers are served in row-major
// order, each receiving its full requirement. The first consumer that cannot
// be covered exhausts the component: it and everything after it get 0.
type PowerService struct {
	nodes  bitmap.Bitmap
	parent []int
}

func NewPowerService() *PowerService { return &PowerService{} }

func (s *PowerService) Name() string { return "power" }

type powerComponent struct {
	plants    []*Building
	consumers []*Building
}

func (s *PowerService) Simulate(c *City) {
	tiles := c.grid.tiles
	s.reset(len(tiles))

	for _, t := range tiles {
		if b := t.building; b != nil {
			b.Power.supplied = 0
			if b.Plant != nil {
				b.Plant.consumed = 0
			}
		}
	}

	for _, t := range tiles {
		if t.building == nil || t.building.typ != PowerLine {
			continue
		}
		s.nodes.Set(int(t.id), true)
		for _, n := range c.grid.neighbors(t.x, t.y) {
			if n.building == nil {
				continue
			}
			s.nodes.Set(int(n.id), true)
			s.union(int(t.id), int(n.id))
		}
	}

	var roots []int
	comps := make(map[int]*powerComponent)
	for _, t := range tiles {
		b := t.building
		if b == nil || !s.nodes.Get(int(t.id)) || b.typ == PowerLine {
			continue
		}
		root := s.find(int(t.id))
		comp, ok := comps[root]
		if !ok {
			comp = &powerComponent{}
			comps[root] = comp
			roots = append(roots, root)
		}
		if b.Plant != nil {
			comp.plants = append(comp.plants, b)
		} else {
			comp.consumers = append(comp.consumers, b)
		}
	}

	for _, root := range roots {
		comps[root].allocate()
	}
}

func (pc *powerComponent) allocate() {
	if len(pc.plants) == 0 {
		return
	}
	remaining := 0
	for _, p := range pc.plants {
		remaining += p.Plant.Available()
	}

	drawn := 0
	for _, b := range pc.consumers {
		req := b.Power.required
		if req > remaining {
			break
		}
		b.Power.supplied = req
		remaining -= req
		drawn += req
	}

	for _, p := range pc.plants {
		take := min(p.Plant.Available(), drawn)
		p.Plant.consumed += take
		drawn -= take
	}
}

func (s *PowerService) reset(n int) {
	if len(s.parent) != n {
		s.parent = make([]int, n)
		s.nodes = bitmap.New(n)
	} else {
		for i := range s.nodes {
			s.nodes[i] = 0
		}
	}
	for i := range s.parent {
		s.parent[i] = i
	}
}

func (s *PowerService) find(i int) int {
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return i
}

func (s *PowerService) union(a, b int) {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	s.parent[rb] = ra
}
