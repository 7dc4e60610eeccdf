package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/mpm/systems"
)

// ErrInvalidPipeline is returned for stage graphs with unknown
// dependencies, duplicate IDs or cycles.
var ErrInvalidPipeline = errors.New("invalid pipeline")

// StagePanic carries a panic raised inside a stage to the caller.
type StagePanic struct {
	Stage string
	Value any
}

func (p *StagePanic) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", p.Stage, p.Value)
}

// Scheduler runs pipeline stages in dependency order. Stages whose
// dependencies are all done form a wave and run concurrently; waves run in
// turn.
type Scheduler struct {
	stages    []systems.Stage
	waves     [][]int // indices into stages
	durations []time.Duration
	logger    *slog.Logger
}

// NewScheduler validates the stage graph and groups stages into waves.
func NewScheduler(stages []systems.Stage, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]int, len(stages))
	for i, st := range stages {
		if st.Run == nil {
			return nil, fmt.Errorf("%w: stage %q has no kernel", ErrInvalidPipeline, st.ID)
		}
		if _, dup := index[st.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrInvalidPipeline, st.ID)
		}
		index[st.ID] = i
	}

	pending := make([]int, len(stages))
	dependents := make([][]int, len(stages))
	for i, st := range stages {
		for _, dep := range st.DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: stage %q depends on unknown stage %q", ErrInvalidPipeline, st.ID, dep)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Kahn's algorithm, one level at a time.
	var waves [][]int
	var ready []int
	for i := range stages {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}
	placed := 0
	for len(ready) > 0 {
		waves = append(waves, ready)
		placed += len(ready)
		var next []int
		for _, i := range ready {
			for _, d := range dependents[i] {
				pending[d]--
				if pending[d] == 0 {
					next = append(next, d)
				}
			}
		}
		ready = next
	}
	if placed != len(stages) {
		var stuck []string
		for i, st := range stages {
			if pending[i] > 0 {
				stuck = append(stuck, st.ID)
			}
		}
		return nil, fmt.Errorf("%w: dependency cycle among %v", ErrInvalidPipeline, stuck)
	}

	return &Scheduler{
		stages:    stages,
		waves:     waves,
		durations: make([]time.Duration, len(stages)),
		logger:    logger,
	}, nil
}

// Waves returns the stage IDs of each wave in execution order.
func (s *Scheduler) Waves() [][]string {
	out := make([][]string, len(s.waves))
	for w, wave := range s.waves {
		for _, i := range wave {
			out[w] = append(out[w], s.stages[i].ID)
		}
	}
	return out
}

// Run executes every stage once. A panic inside a stage is re-raised on
// the caller as a *StagePanic after the rest of its wave has finished.
func (s *Scheduler) Run(st *systems.State) {
	for _, wave := range s.waves {
		if len(wave) == 1 {
			if err := s.runStage(wave[0], st); err != nil {
				panic(err)
			}
			continue
		}

		var g errgroup.Group
		for _, i := range wave {
			g.Go(func() error { return s.runStage(i, st) })
		}
		if err := g.Wait(); err != nil {
			panic(err)
		}
	}
}

func (s *Scheduler) runStage(i int, st *systems.State) (err error) {
	stage := s.stages[i]
	defer func() {
		if r := recover(); r != nil {
			err = &StagePanic{Stage: stage.ID, Value: r}
		}
	}()

	start := time.Now()
	stage.Run(st)
	s.durations[i] = time.Since(start)
	s.logger.Debug("stage done", "stage", stage.ID, "duration", s.durations[i])
	return nil
}

// Durations returns the wall time of each stage in the last Run.
func (s *Scheduler) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.stages))
	for i, st := range s.stages {
		out[st.ID] = s.durations[i]
	}
	return out
}
