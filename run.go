package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/config"
	"github.com/pthm-cable/mpm/dump"
	"github.com/pthm-cable/mpm/scene"
	"github.com/pthm-cable/mpm/sim"
	"github.com/pthm-cable/mpm/telemetry"
)

type runFlags struct {
	configPath  string
	steps       int
	outputDir   string
	dumpSkip    int
	metricsAddr string
	seed        uint64
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scene headless, writing frames and CSV stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return err
			}

			// CLI flags override the config when set
			flags := cmd.Flags()
			if flags.Changed("steps") {
				cfg.Run.Steps = f.steps
			}
			if flags.Changed("output-dir") {
				cfg.Output.Dir = f.outputDir
			}
			if flags.Changed("dump-skip") {
				cfg.Output.DumpSkip = f.dumpSkip
			}
			if flags.Changed("metrics-addr") {
				cfg.Telemetry.MetricsAddr = f.metricsAddr
			}
			if flags.Changed("seed") {
				cfg.Run.Seed = f.seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			baseDir := "."
			if f.configPath != "" {
				baseDir = filepath.Dir(f.configPath)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSimulation(ctx, cfg, baseDir)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to a scene/config YAML (empty = use defaults)")
	fl.IntVar(&f.steps, "steps", 0, "Steps to simulate (default from config)")
	fl.StringVar(&f.outputDir, "output-dir", "", "Output directory (default result/<run id>)")
	fl.IntVar(&f.dumpSkip, "dump-skip", 0, "Write a .poly frame every N steps, 0 disables")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fl.Uint64Var(&f.seed, "seed", 0, "Seeding RNG seed (default from config)")
	return cmd
}

func runSimulation(ctx context.Context, cfg *config.Config, baseDir string) error {
	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)

	outDir := cfg.Output.Dir
	if outDir == "" {
		outDir = filepath.Join("result", runID)
	}

	output, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	if addr := cfg.Telemetry.MetricsAddr; addr != "" {
		metrics = telemetry.NewMetrics()
		srv := &http.Server{Addr: addr, Handler: metricsMux(metrics)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	opts := sim.OptionsFromConfig(cfg)
	opts.Logger = logger
	opts.Metrics = metrics
	w, err := sim.New(opts)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := scene.Build(w, cfg, baseDir); err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	var frames *dump.PolyWriter
	if cfg.Output.DumpSkip > 0 {
		if frames, err = dump.NewPolyWriter(outDir, cfg.Output.DumpSkip, logger); err != nil {
			return err
		}
	}

	logger.Info("starting simulation",
		"output_dir", outDir,
		"steps", cfg.Run.Steps,
		"particles", w.NumParticles(),
		"grid", w.Dimension(),
		"dt", w.DT(),
		"seed", cfg.Run.Seed,
	)

	start := time.Now()
	visible := func() []r3.Vec { return w.Positions(false) }
	for i := 0; i < cfg.Run.Steps; i++ {
		if err := ctx.Err(); err != nil {
			logger.Info("interrupted", "step", w.StepCount())
			break
		}
		if err := w.StepChecked(); err != nil {
			return err
		}
		step := w.StepCount()

		if frames != nil {
			if _, err := frames.Maybe(step, visible); err != nil {
				return err
			}
		}

		if every := cfg.Output.StatsEvery; every > 0 && step%uint64(every) == 0 {
			stats := w.Stats()
			perf := w.Perf().Stats()
			if err := output.WriteStats(stats); err != nil {
				return err
			}
			if err := output.WritePerf(perf, step); err != nil {
				return err
			}
			logger.Info("step progress", "stats", stats, "perf", perf)
		}
	}

	stats := w.Stats()
	logger.Info("simulation finished",
		"steps", w.StepCount(),
		"sim_time", w.SimTime(),
		"wall_time", time.Since(start),
		"frames", frameCount(frames),
		"stats", stats,
	)
	return nil
}

func metricsMux(m *telemetry.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func frameCount(p *dump.PolyWriter) int {
	if p == nil {
		return 0
	}
	return p.Frames()
}
