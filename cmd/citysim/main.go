package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
	"citysim/engine/internal/mapimage"
	"citysim/engine/internal/observability"
	"citysim/engine/internal/server"
	"citysim/engine/internal/sim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "citysim",
		Short:        "Tick-based city simulation engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults apply when empty)")

	load := func() (*config.Config, error) { return loadConfig(configPath) }
	rootCmd.AddCommand(runCmd(load))
	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(renderCmd(load))
	return rootCmd
}

func runCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		steps   int
		seed    int64
		asJSON  bool
		reports bool
		pngPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a city headless and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.City.Seed = seed
			}
			ctx := cmd.Context()
			log := newLogger(cfg, cmd.ErrOrStderr())

			tracing, err := observability.StartTracing(ctx, cfg.Tracing, cmd.ErrOrStderr(), log)
			if err != nil {
				return err
			}
			defer tracing.Close(ctx)

			city, err := newCity(cfg, log)
			if err != nil {
				return err
			}
			for i := 0; i < steps; i++ {
				_, span := observability.StartTick(ctx, city, 1)
				city.Simulate(1)
				observability.EndTick(span, city)
			}
			log.Info(ctx, "simulation finished", logging.Int("steps", steps), logging.Int("population", city.Population()))

			if pngPath != "" {
				if err := mapimage.Save(pngPath, city, 16, nil); err != nil {
					return fmt.Errorf("writing %s: %w", pngPath, err)
				}
			}
			return printCity(cmd.OutOrStdout(), city, asJSON, reports)
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 100, "Number of ticks to simulate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (overrides city.seed; 0 picks a time-based seed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final snapshot as JSON")
	cmd.Flags().BoolVar(&reports, "reports", false, "Print a report for every building")
	cmd.Flags().StringVar(&pngPath, "png", "", "Also write the final map to this PNG file")
	return cmd
}

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation live behind a websocket and /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			log := newLogger(cfg, cmd.ErrOrStderr())

			tracing, err := observability.StartTracing(ctx, cfg.Tracing, nil, log)
			if err != nil {
				return err
			}
			defer tracing.Close(ctx)

			collector, err := observability.NewSimCollector(prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("registering metrics: %w", err)
			}
			srv, err := server.New(cfg.Server, func(view sim.ViewHook) (*sim.City, error) {
				return newCity(cfg, log, sim.WithViewHook(view), sim.WithMetricsRecorder(collector))
			}, server.WithLogger(log), server.WithCollector(collector))
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func renderCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		steps int
		out   string
		cell  int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Simulate a city and write its map as a PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			city, err := newCity(cfg, log)
			if err != nil {
				return err
			}
			city.Simulate(steps)
			if err := mapimage.Save(out, city, cell, nil); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d tiles, sim time %d)\n", out, city.Size(), city.Size(), city.SimTime())
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 0, "Ticks to simulate before rendering")
	cmd.Flags().StringVarP(&out, "out", "o", "city.png", "Output PNG path")
	cmd.Flags().IntVar(&cell, "cell", 16, "Pixels per tile")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: w,
	})
}

// newCity builds the configured city and places the scenario buildings.
func newCity(cfg *config.Config, log logging.Logger, extra ...sim.Option) (*sim.City, error) {
	opts := []sim.Option{sim.WithName(cfg.City.Name), sim.WithLogger(log)}
	if cfg.City.Seed != 0 {
		opts = append(opts, sim.WithRand(rand.New(rand.NewSource(cfg.City.Seed))))
	}
	city, err := sim.New(cfg.City.Size, cfg.Simulation, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	for i, p := range cfg.Scenario {
		typ, err := sim.ParseBuildingType(p.Type)
		if err != nil {
			return nil, fmt.Errorf("scenario[%d]: %w", i, err)
		}
		if city.PlaceBuilding(p.X, p.Y, typ) == nil {
			log.Warn(context.Background(), "scenario placement skipped", logging.Pos(p.X, p.Y), logging.String("type", p.Type))
		}
	}
	return city, nil
}

func printCity(w io.Writer, city *sim.City, asJSON, reports bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(city.Snapshot())
	}

	s := city.Stats()
	fmt.Fprintf(w, "%s after %d ticks\n", city.Name(), s.SimTime)
	fmt.Fprintf(w, "  population: %d (employed %d)\n", s.Population, s.Employed)
	fmt.Fprintf(w, "  power: %d/%d kW supplied, %d kW plant capacity\n", s.PowerSupplied, s.PowerRequired, s.PlantCapacity)
	for _, t := range sim.BuildingTypes() {
		if n := s.Buildings[t]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", t, n)
		}
	}
	if !reports {
		return nil
	}
	for _, t := range city.Tiles() {
		if b := t.Building(); b != nil {
			fmt.Fprintf(w, "\n%s", b.Report())
		}
	}
	return nil
}
