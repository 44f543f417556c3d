package sim

import "citysim/engine/internal/config"

// ResidentsModule owns the citizens living in a residential zone.
type ResidentsModule struct {
	b          *Building
	cfg        config.ResidentsConfig
	citizenCfg config.CitizenConfig
	residents  []*Citizen
}

// Maximum is base^level while developed, else 0.
func (m *ResidentsModule) Maximum() int {
	if m.b.Development.State() != Developed {
		return 0
	}
	return ipow(m.cfg.MaxResidents, m.b.Development.Level())
}

func (m *ResidentsModule) Count() int { return len(m.residents) }

// Residents returns a copy of the resident list.
func (m *ResidentsModule) Residents() []*Citizen {
	return append([]*Citizen(nil), m.residents...)
}

func (m *ResidentsModule) simulate(c *City) {
	switch m.b.Development.State() {
	case Abandoned:
		m.evictAll(c)
	case Developed:
		if len(m.residents) < m.Maximum() && roll(c.rng, m.cfg.MoveInChance) {
			m.residents = append(m.residents, newCitizen(m.b, m.citizenCfg, c.rng))
		}
	}

	for _, r := range m.residents {
		r.simulate(c)
	}
}

func (m *ResidentsModule) evictAll(c *City) {
	for _, r := range m.residents {
		r.dispose(c)
	}
	m.residents = nil
}

func (m *ResidentsModule) dispose(c *City) { m.evictAll(c) }
