package sim

// RoadAccessModule records whether a road lies within the search radius.
// Roads and power lines have it disabled and always report access.
type RoadAccessModule struct {
	b              *Building
	enabled        bool
	value          bool
	searchDistance int
}

func (m *RoadAccessModule) Enabled() bool { return m.enabled }
func (m *RoadAccessModule) Value() bool   { return m.value }

func (m *RoadAccessModule) disable() {
	m.enabled = false
	m.value = true
}

func (m *RoadAccessModule) simulate(c *City) {
	if !m.enabled {
		m.value = true
		return
	}
	m.value = c.FindTile(m.b, isRoad, m.searchDistance) != nil
}

func isRoad(t *Tile) bool {
	return t.building != nil && t.building.typ == Road
}
