package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the simulator and its surfaces.
type Config struct {
	City       CityConfig    `yaml:"city" json:"city"`
	Simulation Simulation    `yaml:"simulation" json:"simulation"`
	Server     ServerConfig  `yaml:"server" json:"server"`
	Logging    LoggingConfig `yaml:"logging" json:"logging"`
	Tracing    TracingConfig `yaml:"tracing" json:"tracing"`
	Scenario   []Placement   `yaml:"scenario" json:"scenario"`
}

type CityConfig struct {
	Name string `yaml:"name" json:"name"`
	Size int    `yaml:"size" json:"size"`
	Seed int64  `yaml:"seed" json:"seed"` // 0 picks a time-based seed
}

// Simulation holds every tunable the simulation core reads.
type Simulation struct {
	Development DevelopmentConfig `yaml:"development" json:"development"`
	Jobs        JobsConfig        `yaml:"jobs" json:"jobs"`
	Residents   ResidentsConfig   `yaml:"residents" json:"residents"`
	RoadAccess  RoadAccessConfig  `yaml:"road_access" json:"road_access"`
	Citizen     CitizenConfig     `yaml:"citizen" json:"citizen"`
	Power       PowerConfig       `yaml:"power" json:"power"`
}

type DevelopmentConfig struct {
	AbandonThreshold int     `yaml:"abandon_threshold" json:"abandon_threshold"`
	AbandonChance    float64 `yaml:"abandon_chance" json:"abandon_chance"`
	ConstructionTime int     `yaml:"construction_time" json:"construction_time"`
	LevelUpChance    float64 `yaml:"level_up_chance" json:"level_up_chance"`
	RedevelopChance  float64 `yaml:"redevelop_chance" json:"redevelop_chance"`
	MaxLevel         int     `yaml:"max_level" json:"max_level"`
}

type JobsConfig struct {
	MaxWorkers int `yaml:"max_workers" json:"max_workers"` // base of base^level
}

type ResidentsConfig struct {
	MaxResidents int     `yaml:"max_residents" json:"max_residents"` // base of base^level
	MoveInChance float64 `yaml:"move_in_chance" json:"move_in_chance"`
}

type RoadAccessConfig struct {
	SearchDistance int `yaml:"search_distance" json:"search_distance"`
}

type CitizenConfig struct {
	MinWorkingAge        int `yaml:"min_working_age" json:"min_working_age"`
	RetirementAge        int `yaml:"retirement_age" json:"retirement_age"`
	MaxAge               int `yaml:"max_age" json:"max_age"`
	MaxJobSearchDistance int `yaml:"max_job_search_distance" json:"max_job_search_distance"`
}

// PowerConfig sets per building type power demand and plant output.
// Required is keyed by building type name ("residential", "power-plant", ...).
type PowerConfig struct {
	Required      map[string]int `yaml:"required" json:"required"`
	PlantCapacity int            `yaml:"plant_capacity" json:"plant_capacity"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" json:"addr"`
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Exporter    string  `yaml:"exporter" json:"exporter"` // stdout | otlp
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// Placement is one building placed when the city is created.
type Placement struct {
	X    int    `yaml:"x" json:"x"`
	Y    int    `yaml:"y" json:"y"`
	Type string `yaml:"type" json:"type"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		City:       CityConfig{Name: "My City", Size: 16},
		Simulation: DefaultSimulation(),
		Server: ServerConfig{
			Addr:         ":8080",
			TickInterval: time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{
			ServiceName: "citysim",
			Exporter:    "stdout",
			SampleRatio: 1,
		},
	}
}

// DefaultSimulation returns the stock tunables.
func DefaultSimulation() Simulation {
	return Simulation{
		Development: DevelopmentConfig{
			AbandonThreshold: 10,
			AbandonChance:    0.25,
			ConstructionTime: 3,
			LevelUpChance:    0.05,
			RedevelopChance:  0.25,
			MaxLevel:         3,
		},
		Jobs:       JobsConfig{MaxWorkers: 2},
		Residents:  ResidentsConfig{MaxResidents: 2, MoveInChance: 0.5},
		RoadAccess: RoadAccessConfig{SearchDistance: 3},
		Citizen: CitizenConfig{
			MinWorkingAge:        16,
			RetirementAge:        65,
			MaxAge:               100,
			MaxJobSearchDistance: 4,
		},
		Power: PowerConfig{
			Required: map[string]int{
				"residential": 10,
				"commercial":  10,
				"industrial":  10,
			},
			PlantCapacity: 100,
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CITYSIM_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if strings.EqualFold(os.Getenv("CITYSIM_TRACING_ENABLED"), "true") {
		c.Tracing.Enabled = true
	}
}

// Validate reports every invalid knob at once.
func (c *Config) Validate() error {
	var errs []error
	if c.City.Size <= 0 {
		errs = append(errs, fmt.Errorf("city.size must be positive, got %d", c.City.Size))
	}
	errs = append(errs, c.Simulation.validate()...)
	if c.Server.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.tick_interval must be positive, got %s", c.Server.TickInterval))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be in [0,1], got %v", c.Tracing.SampleRatio))
	}
	for i, p := range c.Scenario {
		if p.X < 0 || p.Y < 0 || p.X >= c.City.Size || p.Y >= c.City.Size {
			errs = append(errs, fmt.Errorf("scenario[%d]: (%d,%d) outside %dx%d grid", i, p.X, p.Y, c.City.Size, c.City.Size))
		}
	}
	return errors.Join(errs...)
}

// Validate checks only the simulation tunables.
func (s Simulation) Validate() error {
	return errors.Join(s.validate()...)
}

func (s Simulation) validate() []error {
	var errs []error
	chance := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}
	chance("development.abandon_chance", s.Development.AbandonChance)
	chance("development.level_up_chance", s.Development.LevelUpChance)
	chance("development.redevelop_chance", s.Development.RedevelopChance)
	chance("residents.move_in_chance", s.Residents.MoveInChance)

	if s.Development.AbandonThreshold < 0 {
		errs = append(errs, fmt.Errorf("development.abandon_threshold must not be negative"))
	}
	if s.Development.ConstructionTime < 1 {
		errs = append(errs, fmt.Errorf("development.construction_time must be at least 1"))
	}
	if s.Development.MaxLevel < 1 {
		errs = append(errs, fmt.Errorf("development.max_level must be at least 1"))
	}
	if s.Jobs.MaxWorkers < 0 || s.Residents.MaxResidents < 0 {
		errs = append(errs, fmt.Errorf("jobs.max_workers and residents.max_residents must not be negative"))
	}
	if s.RoadAccess.SearchDistance < 0 || s.Citizen.MaxJobSearchDistance < 0 {
		errs = append(errs, fmt.Errorf("search distances must not be negative"))
	}
	if s.Citizen.MaxAge < 1 {
		errs = append(errs, fmt.Errorf("citizen.max_age must be at least 1"))
	}
	if s.Citizen.RetirementAge < s.Citizen.MinWorkingAge {
		errs = append(errs, fmt.Errorf("citizen.retirement_age %d below min_working_age %d",
			s.Citizen.RetirementAge, s.Citizen.MinWorkingAge))
	}
	if s.Power.PlantCapacity < 0 {
		errs = append(errs, fmt.Errorf("power.plant_capacity must not be negative"))
	}
	for name, v := range s.Power.Required {
		if v < 0 {
			errs = append(errs, fmt.Errorf("power.required[%s] must not be negative, got %d", name, v))
		}
	}
	return errs
}
