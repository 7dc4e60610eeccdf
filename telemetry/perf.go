package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/mpm/systems"
)

// Phase names for the parts of a step that run on the caller goroutine.
// Stage timings are recorded under their stage IDs.
const (
	PhaseGather = "gather"
	PhaseStages = "stages"
	PhaseCommit = "commit"
	PhaseOutput = "output"
)

// PerfSample holds timing data for a single step.
type PerfSample struct {
	StepDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
// It is not safe for concurrent use; stage timings gathered by the
// scheduler are handed over with RecordPhase after the stages finish.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	stepStart     time.Time
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (viewer)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of steps to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartStep begins timing a new step.
func (p *PerfCollector) StartStep() {
	p.stepStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// RecordPhase adds an externally measured duration to the current step.
func (p *PerfCollector) RecordPhase(phase string, d time.Duration) {
	p.currentPhases[phase] += d
}

// EndStep finishes timing the current step and records the sample.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for the viewer.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Average duration per phase or stage
	PhaseAvg map[string]time.Duration

	// Phase percentages of total step time. Stages may overlap, so stage
	// percentages need not sum to 100.
	PhasePct map[string]float64

	StepsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var total, minStep, maxStep time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.StepDuration
		if i == 0 || s.StepDuration < minStep {
			minStep = s.StepDuration
		}
		if s.StepDuration > maxStep {
			maxStep = s.StepDuration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration, len(phaseSum))
	phasePct := make(map[string]float64, len(phaseSum))
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var stepsPerSec float64
	if avg > 0 {
		stepsPerSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgStepDuration: avg,
		MinStepDuration: minStep,
		MaxStepDuration: maxStep,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		StepsPerSecond:  stepsPerSec,
		FrameDuration:   p.frameDuration,
		FPS:             fps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStepDuration.Microseconds()),
		slog.Int64("min_step_us", s.MinStepDuration.Microseconds()),
		slog.Int64("max_step_us", s.MaxStepDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range loggedPhases() {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

func loggedPhases() []string {
	return append([]string{PhaseGather, PhaseStages, PhaseCommit, PhaseOutput}, systems.NewSystemRegistry().IDs()...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	StepEnd              uint64  `csv:"step_end"`
	AvgStepUS            int64   `csv:"avg_step_us"`
	MinStepUS            int64   `csv:"min_step_us"`
	MaxStepUS            int64   `csv:"max_step_us"`
	StepsPerSec          float64 `csv:"steps_per_sec"`
	FPS                  float64 `csv:"fps"`
	GatherPct            float64 `csv:"gather_pct"`
	CommitPct            float64 `csv:"commit_pct"`
	OutputPct            float64 `csv:"output_pct"`
	CleanGridPct         float64 `csv:"clean_grid_pct"`
	P2GPct               float64 `csv:"p2g_pct"`
	GridM2VPct           float64 `csv:"grid_m2v_pct"`
	ApplyGravityPct      float64 `csv:"apply_gravity_pct"`
	ApplyElasticityPct   float64 `csv:"apply_elasticity_pct"`
	ApplyFrictionPct     float64 `csv:"apply_friction_pct"`
	GridF2VPct           float64 `csv:"grid_f2v_pct"`
	GridSetBoundaryPct   float64 `csv:"grid_set_boundary_pct"`
	EvolveDeformationPct float64 `csv:"evolve_deformation_pct"`
	G2PPct               float64 `csv:"g2p_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(stepEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		StepEnd:              stepEnd,
		AvgStepUS:            s.AvgStepDuration.Microseconds(),
		MinStepUS:            s.MinStepDuration.Microseconds(),
		MaxStepUS:            s.MaxStepDuration.Microseconds(),
		StepsPerSec:          s.StepsPerSecond,
		FPS:                  s.FPS,
		GatherPct:            s.PhasePct[PhaseGather],
		CommitPct:            s.PhasePct[PhaseCommit],
		OutputPct:            s.PhasePct[PhaseOutput],
		CleanGridPct:         s.PhasePct[systems.StageCleanGrid],
		P2GPct:               s.PhasePct[systems.StageP2G],
		GridM2VPct:           s.PhasePct[systems.StageGridM2V],
		ApplyGravityPct:      s.PhasePct[systems.StageApplyGravity],
		ApplyElasticityPct:   s.PhasePct[systems.StageApplyElasticity],
		ApplyFrictionPct:     s.PhasePct[systems.StageApplyFriction],
		GridF2VPct:           s.PhasePct[systems.StageGridF2V],
		GridSetBoundaryPct:   s.PhasePct[systems.StageGridSetBoundary],
		EvolveDeformationPct: s.PhasePct[systems.StageEvolveDeformation],
		G2PPct:               s.PhasePct[systems.StageG2P],
	}
}
