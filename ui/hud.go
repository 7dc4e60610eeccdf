package ui

import (
	"fmt"
	"slices"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/mpm/systems"
	"github.com/pthm-cable/mpm/telemetry"
)

// HUDData holds everything the main HUD shows.
type HUDData struct {
	Title     string
	Step      uint64
	SimTime   float64
	DT        float64
	Particles int
	Visible   int
	GridDim   [3]int
	FPS       float64
	Paused    bool
	Failure   string // non-empty once a step failed
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD in the top-left corner and returns its bottom edge.
func (h *HUD) Draw(data HUDData) int32 {
	r := h.renderer
	x, y := int32(10), int32(10)

	rl.DrawText(data.Title, x, y, 20, rl.DarkGray)
	y += 26

	lines := []string{
		fmt.Sprintf("Step: %d | t = %.3f s | dt = %.1e", data.Step, data.SimTime, data.DT),
		fmt.Sprintf("Particles: %d (%d shown)", data.Particles, data.Visible),
		fmt.Sprintf("Grid: %d x %d x %d | FPS: %.0f", data.GridDim[0], data.GridDim[1], data.GridDim[2], data.FPS),
	}
	for _, line := range lines {
		rl.DrawText(line, x, y, 16, rl.Gray)
		y += 20
	}

	switch {
	case data.Failure != "":
		rl.DrawText("FAILED", x, y, 16, r.Theme.WarnColor)
		y += 20
		y = r.DrawWrapped(x, y, data.Failure, 60, r.Theme.WarnColor)
	case data.Paused:
		rl.DrawText("PAUSED", x, y, 16, rl.Orange)
		y += 20
	}
	return y
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-stage timing as a share of the step.
type PerfPanel struct {
	renderer *Renderer
	registry *systems.SystemRegistry
	x, y     int32
	width    int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y, width int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		registry: systems.NewSystemRegistry(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the panel with stages grouped by category, slowest stage
// first within each group.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	r := p.renderer
	cats := p.registry.Categories()

	height := r.Theme.Padding*2 + r.Theme.LineHeight*int32(len(p.registry.All())+3) +
		(r.Theme.LineHeight+2)*int32(len(cats))
	r.DrawPanel(p.x, p.y, p.width, height)

	x := p.x + r.Theme.Padding
	y := p.y + r.Theme.Padding
	y = r.DrawSectionHeader(x, y, "Stage Performance")
	y = r.DrawLabelValue(x, y, "Step", fmt.Sprintf("%s (%.0f/s)",
		stats.AvgStepDuration.Round(time.Microsecond), stats.StepsPerSecond))

	inner := p.width - 2*r.Theme.Padding
	for _, cat := range cats {
		infos := p.registry.ByCategory(cat)
		slices.SortStableFunc(infos, func(a, b systems.SystemInfo) int {
			return int(stats.PhaseAvg[b.ID] - stats.PhaseAvg[a.ID])
		})
		y = r.DrawSectionHeader(x, y, cat)
		for _, info := range infos {
			y = r.DrawBar(x, y, info.Name, float32(stats.PhasePct[info.ID]/100), inner)
		}
	}
}
