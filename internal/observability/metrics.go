package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"citysim/engine/internal/sim"
)

// SimCollector bundles the Prometheus metrics for the simulation loop and the
// websocket surface. It implements sim.MetricsRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	TickDurations prometheus.Histogram

	SimTime       prometheus.Gauge
	Population    prometheus.Gauge
	Employed      prometheus.Gauge
	Buildings     *prometheus.GaugeVec
	Statuses      *prometheus.GaugeVec
	PowerRequired prometheus.Gauge
	PowerSupplied prometheus.Gauge
	PlantCapacity prometheus.Gauge

	Clients prometheus.Gauge
	Actions *prometheus.CounterVec
}

// NewSimCollector registers the simulation metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citysim_ticks_total",
		Help: "Number of Simulate calls.",
	}), "citysim_ticks_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "citysim_tick_duration_seconds",
		Help:    "Wall time of one Simulate call in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}), "citysim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	c := &SimCollector{gatherer: gatherer, Ticks: ticks, TickDurations: durations}
	gauge := func(dst *prometheus.Gauge, name, help string) error {
		g, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help}), name)
		if err != nil {
			return err
		}
		*dst = g
		return nil
	}
	if err := errors.Join(
		gauge(&c.SimTime, "citysim_sim_time", "Simulation time counter of the city."),
		gauge(&c.Population, "citysim_population", "Citizens living in residential zones."),
		gauge(&c.Employed, "citysim_employed", "Citizens registered as workers."),
		gauge(&c.PowerRequired, "citysim_power_required_kw", "Power required by all buildings."),
		gauge(&c.PowerSupplied, "citysim_power_supplied_kw", "Power supplied to all buildings in the last pass."),
		gauge(&c.PlantCapacity, "citysim_plant_capacity_kw", "Combined capacity of all power plants."),
		gauge(&c.Clients, "citysim_websocket_clients", "Connected websocket clients."),
	); err != nil {
		return nil, err
	}

	c.Buildings, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "citysim_buildings",
		Help: "Buildings on the grid, labeled by type.",
	}, []string{"type"}), "citysim_buildings")
	if err != nil {
		return nil, err
	}
	c.Statuses, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "citysim_building_status",
		Help: "Buildings on the grid, labeled by status.",
	}, []string{"status"}), "citysim_building_status")
	if err != nil {
		return nil, err
	}
	c.Actions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citysim_actions_total",
		Help: "Client actions, labeled by action and result.",
	}, []string{"action", "result"}), "citysim_actions_total")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveTick records one Simulate call.
func (c *SimCollector) ObserveTick(d time.Duration, s sim.Stats) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDurations.Observe(d.Seconds())
	c.SimTime.Set(float64(s.SimTime))
	c.Population.Set(float64(s.Population))
	c.Employed.Set(float64(s.Employed))
	c.PowerRequired.Set(float64(s.PowerRequired))
	c.PowerSupplied.Set(float64(s.PowerSupplied))
	c.PlantCapacity.Set(float64(s.PlantCapacity))
	for _, t := range sim.BuildingTypes() {
		c.Buildings.WithLabelValues(string(t)).Set(float64(s.Buildings[t]))
	}
	for _, st := range []sim.Status{sim.StatusOk, sim.StatusNoPower, sim.StatusNoRoadAccess} {
		c.Statuses.WithLabelValues(string(st)).Set(float64(s.Statuses[st]))
	}
}

// RecordAction counts a client action and whether it changed the city.
func (c *SimCollector) RecordAction(action string, applied bool) {
	if c == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "rejected"
	}
	c.Actions.WithLabelValues(action, result).Inc()
}

// SetClients reports the number of connected websocket clients.
func (c *SimCollector) SetClients(n int) {
	if c == nil {
		return
	}
	c.Clients.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
