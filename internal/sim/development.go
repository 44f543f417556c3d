package sim

import "citysim/engine/internal/config"

type DevelopmentState string

const (
	Undeveloped       DevelopmentState = "undeveloped"
	UnderConstruction DevelopmentState = "under-construction"
	Developed         DevelopmentState = "developed"
	Abandoned         DevelopmentState = "abandoned"
)

// devState is the full development record of a zone. advance maps one record
// to the next; nothing else writes it.
type devState struct {
	State               DevelopmentState
	Level               int
	AbandonmentCounter  int
	ConstructionCounter int
}

// advance runs one tick of the development state machine. criteriaMet is
// "has road access and is fully powered". Rolls are drawn from rng only when
// a transition is possible.
func advance(s devState, criteriaMet bool, cfg config.DevelopmentConfig, rng Rand) devState {
	if criteriaMet {
		s.AbandonmentCounter = 0
	} else {
		s.AbandonmentCounter++
	}

	switch s.State {
	case Undeveloped:
		if criteriaMet && roll(rng, cfg.RedevelopChance) {
			s.State = UnderConstruction
			s.ConstructionCounter = 0
		}
	case UnderConstruction:
		s.ConstructionCounter++
		if s.ConstructionCounter >= cfg.ConstructionTime {
			s.State = Developed
			s.Level = 1
			s.ConstructionCounter = 0
		}
	case Developed:
		if s.AbandonmentCounter > cfg.AbandonThreshold {
			if roll(rng, cfg.AbandonChance) {
				s.State = Abandoned
			}
		} else if s.Level < cfg.MaxLevel && roll(rng, cfg.LevelUpChance) {
			s.Level++
		}
	case Abandoned:
		if s.AbandonmentCounter == 0 && roll(rng, cfg.RedevelopChance) {
			s.State = Developed
		}
	}
	return s
}

// DevelopmentModule drives a zone through construction, growth and abandonment.
type DevelopmentModule struct {
	b   *Building
	cfg config.DevelopmentConfig
	cur devState
}

func newDevelopmentModule(b *Building, cfg config.DevelopmentConfig) *DevelopmentModule {
	return &DevelopmentModule{b: b, cfg: cfg, cur: devState{State: Undeveloped, Level: 1}}
}

func (m *DevelopmentModule) State() DevelopmentState { return m.cur.State }
func (m *DevelopmentModule) Level() int              { return m.cur.Level }
func (m *DevelopmentModule) MaxLevel() int           { return m.cfg.MaxLevel }

func (m *DevelopmentModule) AbandonmentCounter() int  { return m.cur.AbandonmentCounter }
func (m *DevelopmentModule) ConstructionCounter() int { return m.cur.ConstructionCounter }

func (m *DevelopmentModule) simulate(c *City) {
	criteria := m.b.RoadAccess.Value() && m.b.Power.IsFullyPowered()
	prev := m.cur
	m.cur = advance(prev, criteria, m.cfg, c.rng)

	if m.cur.State != prev.State {
		m.enter(c, m.cur.State)
	} else if m.cur.Level != prev.Level {
		c.view.RefreshTile(m.b.tile)
	}
}

// enter applies the side effects of a state change. Abandonment empties the
// zone at once so capacity ceilings hold at every point of the tick.
func (m *DevelopmentModule) enter(c *City, state DevelopmentState) {
	switch state {
	case UnderConstruction:
		c.view.Animate(m.b, AnimationConstruction)
	case Developed:
		c.view.Animate(m.b, AnimationDevelopment)
	case Abandoned:
		if m.b.Jobs != nil {
			m.b.Jobs.layOff()
		}
		if m.b.Residents != nil {
			m.b.Residents.evictAll(c)
		}
		c.view.Animate(m.b, AnimationAbandonment)
	default:
		c.view.RefreshTile(m.b.tile)
	}
}
