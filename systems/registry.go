package systems

import "slices"

// Stage IDs, used by the scheduler and perf tracking.
const (
	StageStepCounter       = "step_counter"
	StageCleanGrid         = "clean_grid"
	StageP2G               = "p2g"
	StageGridM2V           = "grid_m2v"
	StageApplyGravity      = "apply_gravity"
	StageApplyElasticity   = "apply_elasticity"
	StageApplyFriction     = "apply_friction"
	StageGridF2V           = "grid_f2v"
	StageGridSetBoundary   = "grid_set_boundary"
	StageEvolveDeformation = "evolve_deformation"
	StageG2P               = "g2p"
)

// SystemInfo describes a pipeline stage.
type SystemInfo struct {
	ID          string   // Internal identifier (used for perf tracking)
	Name        string   // Display name
	Description string   // What this stage does
	Category    string   // Grouping (e.g., "grid", "transfer", "material")
	DependsOn   []string // Stages that must finish first
}

// Stage is a runnable pipeline stage.
type Stage struct {
	SystemInfo
	Run func(*State)
}

// SystemRegistry holds metadata about all stages.
// This centralizes stage naming so the scheduler, perf tracker and CSV
// columns stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known stages.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds the MPM pipeline.
// grid_f2v also waits for apply_friction since both touch node force.
func (r *SystemRegistry) registerDefaults() {
	// Bookkeeping
	r.Register(SystemInfo{ID: StageStepCounter, Name: "Step Counter", Description: "Advances the step count", Category: "core"})
	r.Register(SystemInfo{ID: StageCleanGrid, Name: "Clean Grid", Description: "Resets transient node state", Category: "grid"})

	// Particle to grid
	r.Register(SystemInfo{ID: StageP2G, Name: "P2G", Description: "Scatters particle mass and momentum", Category: "transfer",
		DependsOn: []string{StageCleanGrid}})
	r.Register(SystemInfo{ID: StageGridM2V, Name: "Momentum to Velocity", Description: "Derives node velocity from momentum", Category: "grid",
		DependsOn: []string{StageP2G}})

	// Forces
	r.Register(SystemInfo{ID: StageApplyGravity, Name: "Gravity", Description: "Adds node weight", Category: "grid",
		DependsOn: []string{StageGridM2V}})
	r.Register(SystemInfo{ID: StageApplyElasticity, Name: "Elasticity", Description: "Scatters fixed-corotated stress forces", Category: "material",
		DependsOn: []string{StageApplyGravity}})
	r.Register(SystemInfo{ID: StageApplyFriction, Name: "Friction", Description: "Applies boundary friction", Category: "grid",
		DependsOn: []string{StageApplyElasticity}})
	r.Register(SystemInfo{ID: StageGridF2V, Name: "Force to Velocity", Description: "Integrates node forces", Category: "grid",
		DependsOn: []string{StageApplyGravity, StageApplyElasticity, StageApplyFriction}})
	r.Register(SystemInfo{ID: StageGridSetBoundary, Name: "Boundary", Description: "Enforces boundary conditions", Category: "grid",
		DependsOn: []string{StageGridF2V}})

	// Grid to particle
	r.Register(SystemInfo{ID: StageEvolveDeformation, Name: "Deformation", Description: "Updates deformation gradients", Category: "material",
		DependsOn: []string{StageGridSetBoundary}})
	r.Register(SystemInfo{ID: StageG2P, Name: "G2P", Description: "Gathers PIC/FLIP velocity and moves particles", Category: "transfer",
		DependsOn: []string{StageGridSetBoundary}})
}

// Register adds a stage to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns stage info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// All returns all registered stages.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns stages filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns the stage categories in order of first registration.
func (r *SystemRegistry) Categories() []string {
	var cats []string
	for _, info := range r.systems {
		if !slices.Contains(cats, info.Category) {
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all stage IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}

var kernels = map[string]func(*State){
	StageStepCounter:       StepCounter,
	StageCleanGrid:         CleanGrid,
	StageP2G:               P2G,
	StageGridM2V:           GridM2V,
	StageApplyGravity:      ApplyGravity,
	StageApplyElasticity:   ApplyElasticity,
	StageApplyFriction:     ApplyFriction,
	StageGridF2V:           GridF2V,
	StageGridSetBoundary:   GridSetBoundary,
	StageEvolveDeformation: EvolveDeformation,
	StageG2P:               G2P,
}

// Pipeline returns the runnable stages for every registered ID that has a
// kernel, in registration order.
func (r *SystemRegistry) Pipeline() []Stage {
	stages := make([]Stage, 0, len(r.systems))
	for _, info := range r.systems {
		if run, ok := kernels[info.ID]; ok {
			stages = append(stages, Stage{SystemInfo: info, Run: run})
		}
	}
	return stages
}

// RunSequential executes the stages in registration order on the calling
// goroutine. Registration order is a valid topological order.
func RunSequential(s *State, stages []Stage) {
	for _, st := range stages {
		st.Run(s)
	}
}
