package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/mpm/config"
	"github.com/pthm-cable/mpm/telemetry"
)

// ErrInvalidOptions is wrapped by New for unusable parameters.
var ErrInvalidOptions = errors.New("invalid world options")

// Options are the construction parameters of a World.
type Options struct {
	Size            r3.Vec
	H               float64 // grid spacing
	DT              float64
	Gravity         r3.Vec
	ParticleDensity float64 // seeding radius is H / ParticleDensity
	PICRatio        float64
	ApplyHardening  bool
	Workers         int // 0 uses GOMAXPROCS
	Seed            uint64
	PerfWindow      int

	Logger  *slog.Logger       // nil uses slog.Default()
	Metrics *telemetry.Metrics // optional
}

// DefaultOptions returns a unit box with h = 0.02.
func DefaultOptions() Options {
	return Options{
		Size:            r3.Vec{X: 1, Y: 1, Z: 1},
		H:               0.02,
		DT:              1e-3,
		Gravity:         r3.Vec{Y: -9.8},
		ParticleDensity: 2,
		PICRatio:        0.05,
		Seed:            1,
		PerfWindow:      100,
	}
}

// OptionsFromConfig maps the world and physics sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Size:            cfg.World.Size.Vec(),
		H:               cfg.World.H,
		DT:              cfg.World.DT,
		Gravity:         cfg.World.Gravity.Vec(),
		ParticleDensity: cfg.World.ParticleDensity,
		PICRatio:        cfg.Physics.PICRatio,
		ApplyHardening:  cfg.Physics.ApplyHardening,
		Workers:         cfg.Physics.Workers,
		Seed:            cfg.Run.Seed,
		PerfWindow:      cfg.Telemetry.PerfWindow,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.DT > 0):
		return fmt.Errorf("%w: dt must be > 0, got %g", ErrInvalidOptions, o.DT)
	case !(o.ParticleDensity > 0):
		return fmt.Errorf("%w: particle density must be > 0, got %g", ErrInvalidOptions, o.ParticleDensity)
	case o.PICRatio < 0 || o.PICRatio > 1:
		return fmt.Errorf("%w: pic ratio must be in [0, 1], got %g", ErrInvalidOptions, o.PICRatio)
	}
	return nil
}
