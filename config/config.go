// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Material models.
const (
	ModelElastic = "elastic"
	ModelPlastic = "plastic"
)

// Body shapes.
const (
	ShapeBall = "ball"
	ShapeCube = "cube"
	ShapeMesh = "mesh"
)

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig               `yaml:"world"`
	Physics   PhysicsConfig             `yaml:"physics"`
	Materials map[string]MaterialConfig `yaml:"materials" validate:"dive"`
	Boundary  BoundaryConfig            `yaml:"boundary"`
	Output    OutputConfig              `yaml:"output"`
	Run       RunConfig                 `yaml:"run"`
	Viewer    ViewerConfig              `yaml:"viewer"`
	Telemetry TelemetryConfig           `yaml:"telemetry"`
	Bodies    []BodyConfig              `yaml:"bodies" validate:"dive"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Vec3 is a YAML-friendly 3-vector.
type Vec3 [3]float64

// Vec converts to r3.Vec.
func (v Vec3) Vec() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// WorldConfig holds the simulation box and time stepping.
type WorldConfig struct {
	Size            Vec3    `yaml:"size" validate:"posvec"`
	H               float64 `yaml:"h" validate:"gt=0"`
	DT              float64 `yaml:"dt" validate:"gt=0"`
	Gravity         Vec3    `yaml:"gravity"`
	ParticleDensity float64 `yaml:"particle_density" validate:"gt=0"`
}

// PhysicsConfig holds solver switches.
type PhysicsConfig struct {
	PICRatio       float64 `yaml:"pic_ratio" validate:"gte=0,lte=1"`
	ApplyHardening bool    `yaml:"apply_hardening"`
	Workers        int     `yaml:"workers" validate:"gte=0"`
}

// MaterialConfig describes a constitutive model preset.
type MaterialConfig struct {
	Model               string  `yaml:"model" validate:"oneof=elastic plastic"`
	YoungsModulus       float64 `yaml:"youngs_modulus" validate:"gt=0"`
	PoissonRatio        float64 `yaml:"poisson_ratio" validate:"gte=0,lt=0.5"`
	CriticalCompression float64 `yaml:"critical_compression,omitempty" validate:"gte=0,lt=1"`
	CriticalStretch     float64 `yaml:"critical_stretch,omitempty" validate:"gte=0"`
	Hardening           float64 `yaml:"hardening,omitempty" validate:"gte=0"`
}

// BoundaryConfig describes the wrapping wall boundary.
type BoundaryConfig struct {
	Kind      string  `yaml:"kind" validate:"oneof=none sticky sliding diminish friction"`
	Thickness float64 `yaml:"thickness" validate:"gte=0"`
	Mu        float64 `yaml:"mu" validate:"gte=0"`
	Factor    float64 `yaml:"factor" validate:"gte=0,lte=1"`
}

// OutputConfig holds file output cadence.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	DumpSkip   int    `yaml:"dump_skip" validate:"gte=0"`
	StatsEvery int    `yaml:"stats_every" validate:"gte=0"`
}

// RunConfig holds headless run settings.
type RunConfig struct {
	Steps int    `yaml:"steps" validate:"gte=0"`
	Seed  uint64 `yaml:"seed"`
}

// ViewerConfig holds display settings.
type ViewerConfig struct {
	Width         int     `yaml:"width" validate:"gt=0"`
	Height        int     `yaml:"height" validate:"gt=0"`
	TargetFPS     int     `yaml:"target_fps" validate:"gt=0"`
	PointSize     float64 `yaml:"point_size" validate:"gt=0"`
	StepsPerFrame int     `yaml:"steps_per_frame" validate:"gt=0"`
}

// TelemetryConfig holds perf and metrics settings.
type TelemetryConfig struct {
	PerfWindow  int    `yaml:"perf_window" validate:"gt=0"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// BodyConfig places one body in the scene.
type BodyConfig struct {
	Name  string `yaml:"name"`
	Shape string `yaml:"shape" validate:"oneof=ball cube mesh"`

	// ball
	Center Vec3    `yaml:"center,omitempty"`
	Radius float64 `yaml:"radius,omitempty" validate:"gte=0"`

	// cube
	Min Vec3 `yaml:"min,omitempty"`
	Max Vec3 `yaml:"max,omitempty"`

	// mesh, placed by a similarity transform
	Mesh        string  `yaml:"mesh,omitempty"`
	Translation Vec3    `yaml:"translation,omitempty"`
	Rotation    Vec3    `yaml:"rotation,omitempty"` // Euler angles, radians
	Scale       float64 `yaml:"scale,omitempty" validate:"gte=0"`

	Mass     float64 `yaml:"mass" validate:"gt=0"`
	Velocity Vec3    `yaml:"velocity,omitempty"`
	Material string  `yaml:"material,omitempty"` // empty for point masses
	Hide     float64 `yaml:"hide,omitempty" validate:"gte=0,lte=1"`

	// Colors are RGB in [0,1]. Two colors with pattern "octant" alternate
	// across the octants around Center.
	Colors  []Vec3 `yaml:"colors,omitempty" validate:"max=2"`
	Pattern string `yaml:"pattern,omitempty" validate:"omitempty,oneof=solid octant"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	GridDim        [3]int
	ParticleRadius float64
	Lame           map[string][2]float64 // material name -> (μ, λ)
}

// validate is the shared validator instance, with custom tags registered in
// init.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("posvec", validatePositiveVec)
}

// validatePositiveVec checks every component of a Vec3 is > 0.
func validatePositiveVec(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().(Vec3)
	if !ok {
		return false
	}
	return v[0] > 0 && v[1] > 0 && v[2] > 0
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns the embedded default configuration.
func Defaults() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return Parse(data)
}

// Parse overlays data on the embedded defaults, then validates and
// computes derived values.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if len(data) > 0 {
		// A bodies list in the user file replaces the default scene.
		cfg.Bodies = nil
		// Unmarshal into same struct - only overwrites fields present in data
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if len(cfg.Bodies) == 0 {
			defaults := &Config{}
			_ = yaml.Unmarshal(defaultsYAML, defaults)
			cfg.Bodies = defaults.Bodies
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate checks field ranges and cross references.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	for axis, size := range c.World.Size {
		if math.Floor(size/c.World.H) < 1 {
			return fmt.Errorf("%w: world.size[%d]=%g is smaller than h=%g", ErrInvalid, axis, size, c.World.H)
		}
	}

	for i, b := range c.Bodies {
		if b.Material != "" {
			if _, ok := c.Materials[b.Material]; !ok {
				return fmt.Errorf("%w: bodies[%d] uses unknown material %q", ErrInvalid, i, b.Material)
			}
		}
		switch b.Shape {
		case ShapeBall:
			if b.Radius <= 0 {
				return fmt.Errorf("%w: bodies[%d] ball needs radius > 0", ErrInvalid, i)
			}
		case ShapeCube:
			if b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || b.Max[2] <= b.Min[2] {
				return fmt.Errorf("%w: bodies[%d] cube needs max > min", ErrInvalid, i)
			}
		case ShapeMesh:
			if b.Mesh == "" {
				return fmt.Errorf("%w: bodies[%d] mesh needs a file", ErrInvalid, i)
			}
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	for axis, size := range c.World.Size {
		c.Derived.GridDim[axis] = int(math.Floor(size / c.World.H))
	}
	c.Derived.ParticleRadius = c.World.H / c.World.ParticleDensity

	c.Derived.Lame = make(map[string][2]float64, len(c.Materials))
	for name, m := range c.Materials {
		mu := m.YoungsModulus / (2 * (1 + m.PoissonRatio))
		lambda := m.YoungsModulus * m.PoissonRatio / ((1 + m.PoissonRatio) * (1 - 2*m.PoissonRatio))
		c.Derived.Lame[name] = [2]float64{mu, lambda}
	}

	for i := range c.Bodies {
		if c.Bodies[i].Scale == 0 {
			c.Bodies[i].Scale = 1
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
