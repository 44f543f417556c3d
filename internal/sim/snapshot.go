package sim

// Stats is a city-wide summary taken after each Simulate call.
type Stats struct {
	SimTime       int64                `json:"simTime"`
	Population    int                  `json:"population"`
	Employed      int                  `json:"employed"`
	Buildings     map[BuildingType]int `json:"buildings"`
	Statuses      map[Status]int       `json:"statuses"`
	PowerRequired int                  `json:"powerRequired"`
	PowerSupplied int                  `json:"powerSupplied"`
	PlantCapacity int                  `json:"plantCapacity"`
}

func (c *City) Stats() Stats {
	s := Stats{
		SimTime:   c.simTime,
		Buildings: make(map[BuildingType]int),
		Statuses:  make(map[Status]int),
	}
	for _, t := range c.grid.tiles {
		b := t.building
		if b == nil {
			continue
		}
		s.Buildings[b.typ]++
		s.Statuses[b.status]++
		s.PowerRequired += b.Power.required
		s.PowerSupplied += b.Power.supplied
		if b.Plant != nil {
			s.PlantCapacity += b.Plant.capacity
		}
		if b.Residents != nil {
			s.Population += len(b.Residents.residents)
		}
		if b.Jobs != nil {
			s.Employed += len(b.Jobs.workers)
		}
	}
	return s
}

// Snapshot is a serialisable view of the whole city.
type Snapshot struct {
	Name       string         `json:"name"`
	Size       int            `json:"size"`
	SimTime    int64          `json:"simTime"`
	Population int            `json:"population"`
	Employed   int            `json:"employed"`
	Buildings  []BuildingView `json:"buildings"`
}

type BuildingView struct {
	ID         BuildingID   `json:"id"`
	X          int          `json:"x"`
	Y          int          `json:"y"`
	Type       BuildingType `json:"type"`
	Name       string       `json:"name"`
	Status     Status       `json:"status"`
	RoadAccess bool         `json:"roadAccess"`
	Required   int          `json:"powerRequired"`
	Supplied   int          `json:"powerSupplied"`

	Development *DevelopmentView `json:"development,omitempty"`
	Workers     *CapacityView    `json:"workers,omitempty"`
	Residents   *CapacityView    `json:"residents,omitempty"`
	Plant       *PlantView       `json:"plant,omitempty"`

	Connections Connections `json:"connections,omitempty"`
	RoadStyle   RoadStyle   `json:"roadStyle,omitempty"`
	Rotation    int         `json:"rotation,omitempty"`
}

type DevelopmentView struct {
	State               DevelopmentState `json:"state"`
	Level               int              `json:"level"`
	AbandonmentCounter  int              `json:"abandonmentCounter"`
	ConstructionCounter int              `json:"constructionCounter"`
}

type CapacityView struct {
	Count int `json:"count"`
	Max   int `json:"max"`
}

type PlantView struct {
	Capacity  int `json:"capacity"`
	Consumed  int `json:"consumed"`
	Available int `json:"available"`
}

// View captures the building's current state.
func (b *Building) View() BuildingView {
	x, y := b.Pos()
	v := BuildingView{
		ID:          b.id,
		X:           x,
		Y:           y,
		Type:        b.typ,
		Name:        b.name,
		Status:      b.status,
		RoadAccess:  b.RoadAccess.Value(),
		Required:    b.Power.required,
		Supplied:    b.Power.supplied,
		Connections: b.connections,
	}
	v.RoadStyle, v.Rotation = b.RoadStyle()
	if d := b.Development; d != nil {
		v.Development = &DevelopmentView{
			State:               d.cur.State,
			Level:               d.cur.Level,
			AbandonmentCounter:  d.cur.AbandonmentCounter,
			ConstructionCounter: d.cur.ConstructionCounter,
		}
	}
	if b.Jobs != nil {
		v.Workers = &CapacityView{Count: b.Jobs.FilledJobs(), Max: b.Jobs.MaxWorkers()}
	}
	if b.Residents != nil {
		v.Residents = &CapacityView{Count: b.Residents.Count(), Max: b.Residents.Maximum()}
	}
	if b.Plant != nil {
		v.Plant = &PlantView{Capacity: b.Plant.capacity, Consumed: b.Plant.consumed, Available: b.Plant.Available()}
	}
	return v
}

// Snapshot lists every building in row-major order.
func (c *City) Snapshot() Snapshot {
	s := Snapshot{
		Name:      c.name,
		Size:      c.grid.size,
		SimTime:   c.simTime,
		Buildings: []BuildingView{},
	}
	for _, t := range c.grid.tiles {
		b := t.building
		if b == nil {
			continue
		}
		s.Buildings = append(s.Buildings, b.View())
		if b.Residents != nil {
			s.Population += b.Residents.Count()
		}
		if b.Jobs != nil {
			s.Employed += b.Jobs.FilledJobs()
		}
	}
	return s
}
