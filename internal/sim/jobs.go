package sim

// JobsModule holds the workers of a commercial or industrial zone. It never
// hires on its own; citizens register through Citizen.FindJob.
type JobsModule struct {
	b       *Building
	base    int
	workers []*Citizen
}

// MaxWorkers is base^level while developed, else 0.
func (m *JobsModule) MaxWorkers() int {
	if m.b.Development.State() != Developed {
		return 0
	}
	return ipow(m.base, m.b.Development.Level())
}

func (m *JobsModule) AvailableJobs() int {
	if n := m.MaxWorkers() - len(m.workers); n > 0 {
		return n
	}
	return 0
}

func (m *JobsModule) FilledJobs() int { return len(m.workers) }

// Workers returns a copy of the worker list.
func (m *JobsModule) Workers() []*Citizen {
	return append([]*Citizen(nil), m.workers...)
}

func (m *JobsModule) simulate() {
	if m.b.Development.State() == Abandoned {
		m.layOff()
	}
}

func (m *JobsModule) hire(cz *Citizen) bool {
	if m.AvailableJobs() == 0 {
		return false
	}
	m.workers = append(m.workers, cz)
	cz.workplace = m.b.id
	return true
}

// remove drops cz from the worker list; absent citizens are ignored.
func (m *JobsModule) remove(cz *Citizen) {
	for i, w := range m.workers {
		if w == cz {
			m.workers = append(m.workers[:i], m.workers[i+1:]...)
			return
		}
	}
}

func (m *JobsModule) layOff() {
	for _, w := range m.workers {
		w.workplace = 0
	}
	m.workers = nil
}

func (m *JobsModule) dispose() { m.layOff() }
