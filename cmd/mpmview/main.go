// Interactive MPM viewer - renders particles in 3D with playback controls.
//
// Usage: go run ./cmd/mpmview --config scenes/rolling_snowball.yaml
package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	rl "github.com/gen2brain/raylib-go/raylib"
	gui "github.com/gen2brain/raylib-go/raygui"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/mpm/camera"
	"github.com/pthm-cable/mpm/config"
	"github.com/pthm-cable/mpm/renderer"
	"github.com/pthm-cable/mpm/scene"
	"github.com/pthm-cable/mpm/sim"
	"github.com/pthm-cable/mpm/ui"
)

const panelWidth = 280

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "mpmview",
		Short:        "Interactive material point method viewer",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)

			if err := config.Init(configPath); err != nil {
				return err
			}
			baseDir := "."
			if configPath != "" {
				baseDir = filepath.Dir(configPath)
			}
			return run(config.Cfg(), baseDir)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a scene/config YAML (empty = use defaults)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// viewer holds the playback state around one world.
type viewer struct {
	cfg     *config.Config
	baseDir string

	world     *sim.World
	cam       *camera.Camera
	hud       *ui.HUD
	perf      *ui.PerfPanel
	particles *renderer.ParticleRenderer
	visible   int

	paused        bool
	showHidden    bool
	stepsPerFrame float32
	dtScale       float32 // dt multiplier, log2
	failure       string
}

func run(cfg *config.Config, baseDir string) error {
	v := &viewer{
		cfg:           cfg,
		baseDir:       baseDir,
		paused:        true,
		stepsPerFrame: float32(cfg.Viewer.StepsPerFrame),
		hud:           ui.NewHUD(),
		perf:          ui.NewPerfPanel(10, 0, 300),
		particles:     renderer.NewParticleRenderer(float32(cfg.Viewer.PointSize)),
	}
	if err := v.reset(); err != nil {
		return err
	}
	defer func() { v.world.Close() }()

	rl.InitWindow(int32(cfg.Viewer.Width), int32(cfg.Viewer.Height), "MPM Viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Viewer.TargetFPS))

	for !rl.WindowShouldClose() {
		v.handleInput()
		v.update()

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)
		v.drawScene()
		v.drawHUD()
		if err := v.drawPanel(); err != nil {
			return err
		}
		rl.EndDrawing()

		v.world.Perf().RecordFrame()
	}
	return nil
}

// reset rebuilds the world from the config.
func (v *viewer) reset() error {
	if v.world != nil {
		v.world.Close()
	}
	opts := sim.OptionsFromConfig(v.cfg)
	w, err := sim.New(opts)
	if err != nil {
		return err
	}
	if _, err := scene.Build(w, v.cfg, v.baseDir); err != nil {
		w.Close()
		return err
	}
	v.world = w
	v.world.SetDT(v.dt())
	if v.cam == nil {
		v.cam = camera.New(w.Size())
	}
	v.failure = ""

	slog.Info("scene loaded", "particles", w.NumParticles(), "grid", w.Dimension())
	return nil
}

func (v *viewer) dt() float64 {
	return v.cfg.World.DT * math.Exp2(float64(v.dtScale))
}

func (v *viewer) handleInput() {
	mouse := rl.GetMousePosition()
	overPanel := mouse.X > float32(rl.GetScreenWidth()-panelWidth)

	if !overPanel {
		delta := rl.GetMouseDelta()
		if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
			v.cam.Orbit(float64(delta.X), float64(delta.Y))
		}
		if rl.IsMouseButtonDown(rl.MouseButtonRight) {
			v.cam.Pan(float64(delta.X), float64(delta.Y))
		}
		if wheel := rl.GetMouseWheelMove(); wheel != 0 {
			v.cam.ZoomBy(math.Pow(1.1, float64(wheel)))
		}
	}

	if rl.IsKeyPressed(rl.KeySpace) && v.failure == "" {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyC) {
		v.cam.Reset()
	}
}

func (v *viewer) update() {
	if v.paused {
		return
	}
	for i := 0; i < int(v.stepsPerFrame); i++ {
		if err := v.world.StepChecked(); err != nil {
			slog.Error("simulation stopped", "error", err)
			v.failure = err.Error()
			v.paused = true
			return
		}
	}
}

func (v *viewer) drawScene() {
	rl.BeginMode3D(rl.Camera3D{
		Position:   renderer.Vec3(v.cam.Position()),
		Target:     renderer.Vec3(v.cam.Target),
		Up:         rl.Vector3{Y: 1},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	})

	renderer.DrawBox(v.world.Size())
	v.particles.ShowHidden = v.showHidden
	v.visible = v.particles.Draw(v.world)

	rl.EndMode3D()
}

func (v *viewer) drawPanel() error {
	x := float32(rl.GetScreenWidth() - panelWidth + 10)
	y := float32(10)
	width := float32(panelWidth - 20)

	rl.DrawRectangle(int32(x-10), 0, panelWidth, int32(rl.GetScreenHeight()), color.RGBA{R: 240, G: 240, B: 240, A: 230})

	w := v.world
	rl.DrawText("Controls", int32(x), int32(y), 20, rl.DarkGray)
	y += 30

	// Steps per frame slider
	rl.DrawText("Steps per frame", int32(x), int32(y), 14, rl.Gray)
	y += 18
	v.stepsPerFrame = float32(math.Round(float64(gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: width - 50, Height: 20},
		"", "", v.stepsPerFrame, 1, 32,
	))))
	rl.DrawText(fmt.Sprintf("%d", int(v.stepsPerFrame)), int32(x+width-40), int32(y+2), 16, rl.DarkGray)
	y += 35

	// dt slider, in powers of two around the configured dt
	rl.DrawText("Timestep", int32(x), int32(y), 14, rl.Gray)
	y += 18
	newScale := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: width - 50, Height: 20},
		"", "", v.dtScale, -4, 1,
	)
	if newScale != v.dtScale {
		v.dtScale = newScale
		w.SetDT(v.dt())
	}
	rl.DrawText(fmt.Sprintf("%.1e", w.DT()), int32(x+width-48), int32(y+2), 12, rl.DarkGray)
	y += 35

	v.showHidden = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "Show hidden particles", v.showHidden)
	y += 35

	// Buttons
	label := "Play"
	if !v.paused {
		label = "Pause"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, label) && v.failure == "" {
		v.paused = !v.paused
	}
	if gui.Button(rl.Rectangle{X: x + 130, Y: y, Width: 120, Height: 30}, "Step") && v.failure == "" {
		if err := w.StepChecked(); err != nil {
			v.failure = err.Error()
		}
	}
	y += 40
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 30}, "Restart") {
		if err := v.reset(); err != nil {
			return err
		}
		v.paused = true
	}
	if gui.Button(rl.Rectangle{X: x + 130, Y: y, Width: 120, Height: 30}, "Reset View") {
		v.cam.Reset()
	}
	return nil
}

func (v *viewer) drawHUD() {
	w := v.world
	dim := w.Dimension()
	bottom := v.hud.Draw(ui.HUDData{
		Title:     "MPM Viewer",
		Step:      w.StepCount(),
		SimTime:   w.SimTime(),
		DT:        w.DT(),
		Particles: w.NumParticles(),
		Visible:   v.visible,
		GridDim:   [3]int{dim.X, dim.Y, dim.Z},
		FPS:       w.Perf().Stats().FPS,
		Paused:    v.paused,
		Failure:   v.failure,
	})

	v.perf.SetPosition(10, bottom+10)
	v.perf.Draw(w.Perf().Stats())

	v.hud.DrawControls(int32(rl.GetScreenHeight()),
		"Drag: orbit | Right drag: pan | Wheel: zoom | Space: play/pause | C: reset view")
}
