package sim

// PowerModule tracks what a building needs and what PowerService gave it.
type PowerModule struct {
	required int
	supplied int
}

// NewPowerModule fails with ErrNegativePower when required < 0.
func NewPowerModule(required int) (*PowerModule, error) {
	if required < 0 {
		return nil, ErrNegativePower
	}
	return &PowerModule{required: required}, nil
}

func (p *PowerModule) Required() int { return p.required }
func (p *PowerModule) Supplied() int { return p.supplied }

func (p *PowerModule) IsFullyPowered() bool { return p.supplied >= p.required }

// PlantModule is carried by power plants only.
type PlantModule struct {
	b        *Building
	capacity int
	consumed int
}

func (p *PlantModule) Capacity() int { return p.capacity }
func (p *PlantModule) Consumed() int { return p.consumed }

// Available is zero while the plant has no road access.
func (p *PlantModule) Available() int {
	if !p.b.RoadAccess.Value() {
		return 0
	}
	return p.capacity - p.consumed
}
