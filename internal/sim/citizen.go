package sim

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
)

type CitizenState string

const (
	School     CitizenState = "school"
	Retired    CitizenState = "retired"
	Unemployed CitizenState = "unemployed"
	Employed   CitizenState = "employed"
	Idle       CitizenState = "idle"
)

// Citizen lives in a residential zone, which owns it. Residence and workplace
// are building IDs resolved through the city, never ownership.
type Citizen struct {
	ID   uuid.UUID
	Name string
	Age  int

	state     CitizenState
	residence BuildingID
	workplace BuildingID
	cfg       config.CitizenConfig
}

func newCitizen(residence *Building, cfg config.CitizenConfig, rng Rand) *Citizen {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		id = uuid.New()
	}
	cz := &Citizen{
		ID:        id,
		Name:      randomName(rng, 5),
		Age:       1 + rng.Intn(cfg.MaxAge),
		residence: residence.id,
		cfg:       cfg,
	}
	switch {
	case cz.Age < cfg.MinWorkingAge:
		cz.state = School
	case cz.Age >= cfg.RetirementAge:
		cz.state = Retired
	default:
		cz.state = Unemployed
	}
	return cz
}

func (cz *Citizen) State() CitizenState { return cz.state }

func (cz *Citizen) Residence() BuildingID { return cz.residence }

// Workplace is zero while the citizen has no job.
func (cz *Citizen) Workplace() BuildingID { return cz.workplace }

func (cz *Citizen) simulate(c *City) {
	switch cz.state {
	case Idle, School, Retired:
	case Unemployed:
		if cz.FindJob(c) != nil {
			cz.state = Employed
		}
	case Employed:
		if cz.workplace == 0 || c.Building(cz.workplace) == nil {
			cz.workplace = 0
			cz.state = Unemployed
		}
	default:
		c.log.Warn(context.Background(), "citizen in unknown state",
			logging.String("citizen", cz.ID.String()), logging.String("state", string(cz.state)))
	}
}

// FindJob searches outward from the residence for a commercial or industrial
// zone with an open job and registers the citizen there. It returns the
// employer, or nil when none is within reach. A citizen holds at most one
// job, so any current employer lets them go first.
func (cz *Citizen) FindJob(c *City) *Building {
	if cz.workplace != 0 {
		cz.dispose(c)
	}
	home := c.Building(cz.residence)
	if home == nil {
		return nil
	}
	t := c.FindTile(home, hasOpenJob, cz.cfg.MaxJobSearchDistance)
	if t == nil || !t.building.Jobs.hire(cz) {
		return nil
	}
	return t.building
}

func hasOpenJob(t *Tile) bool {
	b := t.building
	if b == nil || (b.typ != Commercial && b.typ != Industrial) {
		return false
	}
	return b.Jobs.AvailableJobs() > 0
}

// dispose unregisters the citizen from its workplace. Safe to repeat.
func (cz *Citizen) dispose(c *City) {
	if wp := c.Building(cz.workplace); wp != nil && wp.Jobs != nil {
		wp.Jobs.remove(cz)
	}
	cz.workplace = 0
}

// Report is a one-line summary of the citizen.
func (cz *Citizen) Report() string {
	return fmt.Sprintf("%s (age %d, %s)", cz.Name, cz.Age, cz.state)
}

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func randomName(rng Rand, length int) string {
	word := func() string {
		var sb strings.Builder
		for i := 0; i < length; i++ {
			sb.WriteByte(letters[rng.Intn(len(letters))])
		}
		s := sb.String()
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return word() + " " + word()
}
