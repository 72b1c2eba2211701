// Command neutron runs a 2D Monte Carlo neutral-particle transport
// simulation: a particle population advanced through discrete timesteps on
// a Cartesian mesh, tallying per-cell energy deposition.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pthm-cable/neutron/config"
	"github.com/pthm-cable/neutron/monitor"
	"github.com/pthm-cable/neutron/renderer"
	"github.com/pthm-cable/neutron/sim"
	"github.com/pthm-cable/neutron/telemetry"
)

var (
	configPath  = flag.String("config", "", "Config YAML file (empty = embedded defaults)")
	headless    = flag.Bool("headless", false, "Run without graphics")
	steps       = flag.Int("steps", 0, "Override the number of timesteps (0 = config value)")
	particles   = flag.Int("particles", 0, "Override the particle count (0 = config value)")
	workers     = flag.Int("workers", 0, "Override the worker count (0 = config value)")
	outputDir   = flag.String("output", "", "Directory for CSV telemetry output (empty = disabled)")
	monitorAddr = flag.String("monitor", "", "Serve live step stats on this address (e.g. :8080)")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()
	setupLogging(*logLevel)

	if err := run(); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Init(*configPath); err != nil {
		return err
	}
	cfg := config.Cfg()
	if *steps > 0 {
		cfg.Time.Steps = *steps
	}
	if *particles > 0 {
		cfg.Particles.Count = *particles
	}
	if *workers > 0 {
		cfg.Physics.Workers = *workers
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if output != nil {
		slog.Info("recording run", "dir", output.Dir(), "run_id", output.RunID())
	}

	s, err := sim.New(cfg, output)
	if err != nil {
		return err
	}

	if *monitorAddr != "" {
		updates := make(chan telemetry.StepStats, 1)
		done := make(chan struct{})
		defer close(done)

		srv := monitor.NewServer(*monitorAddr, done, updates)
		go func() {
			if err := srv.Serve(); err != nil {
				slog.Warn("monitor stopped", "err", err)
			}
		}()
		slog.Info("monitor listening", "addr", *monitorAddr)

		s.OnStep(func(st telemetry.StepStats) {
			// Drop updates nobody is reading; the stepping loop never waits
			// on the monitor.
			select {
			case updates <- st:
			default:
			}
		})
	}

	slog.Info("starting",
		"mesh", cfg.Mesh.NX*cfg.Mesh.NY,
		"particles", cfg.Particles.Count,
		"steps", cfg.Time.Steps,
		"dt", cfg.Time.Dt,
	)

	if *headless {
		return s.Run()
	}
	return renderer.Run(s, cfg)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
