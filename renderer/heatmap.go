// Package renderer draws the live state of a run: the energy-deposition
// tally as a heatmap with the particle population overlaid, plus a small
// control strip.
package renderer

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/neutron/config"
	"github.com/pthm-cable/neutron/sim"
)

// Run opens a window and advances the simulation while drawing it, until
// the window closes or the configured step count is reached (the window
// stays open afterwards for inspection).
func Run(s *sim.Simulation, cfg *config.Config) error {
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "neutron transport")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	if err := s.InjectParticles(); err != nil {
		return err
	}

	paused := false
	stepsPerFrame := float32(1)

	for !rl.WindowShouldClose() {
		if !paused {
			for k := 0; k < int(stepsPerFrame) && s.Step() < cfg.Time.Steps; k++ {
				if _, err := s.AdvanceOneStep(); err != nil {
					return err
				}
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		drawHeatmap(s, cfg)
		drawParticles(s, cfg)

		if gui.Button(rl.Rectangle{X: 10, Y: 10, Width: 90, Height: 24}, pauseLabel(paused)) {
			paused = !paused
		}
		stepsPerFrame = gui.SliderBar(
			rl.Rectangle{X: 110, Y: 10, Width: 120, Height: 24},
			"1", "16",
			stepsPerFrame, 1, 16,
		)

		rl.DrawText(
			fmt.Sprintf("step %d/%d  alive %d  tally %.3e",
				s.Step(), cfg.Time.Steps, s.Store().AliveCount(), s.TallySum()),
			240, 14, 16, rl.RayWhite,
		)

		rl.EndDrawing()
	}

	return nil
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

// drawHeatmap maps each tally cell onto a screen rectangle, coloured on a
// log scale from cold blue to hot red.
func drawHeatmap(s *sim.Simulation, cfg *config.Config) {
	cells := s.ReadTally()
	nx, ny := cfg.Mesh.NX, cfg.Mesh.NY

	maxVal := 0.0
	for _, v := range cells {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		return
	}
	logMax := math.Log1p(maxVal)

	cellW := float32(cfg.Screen.Width) / float32(nx)
	cellH := float32(cfg.Screen.Height) / float32(ny)

	for cy := 0; cy < ny; cy++ {
		for cx := 0; cx < nx; cx++ {
			v := cells[cy*nx+cx]
			if v <= 0 {
				continue
			}
			heat := math.Log1p(v) / logMax
			rl.DrawRectangle(
				int32(float32(cx)*cellW),
				// screen y grows downward, mesh y upward
				int32(float32(ny-1-cy)*cellH),
				int32(cellW)+1,
				int32(cellH)+1,
				heatColor(heat),
			)
		}
	}
}

// heatColor blends blue through purple to red as heat goes 0 to 1.
func heatColor(heat float64) rl.Color {
	if heat < 0 {
		heat = 0
	} else if heat > 1 {
		heat = 1
	}
	return rl.Color{
		R: uint8(40 + 215*heat),
		G: uint8(20 * (1 - heat)),
		B: uint8(200 * (1 - heat)),
		A: 255,
	}
}

// drawParticles plots the alive population as single pixels.
func drawParticles(s *sim.Simulation, cfg *config.Config) {
	store := s.Store()
	scaleX := float64(cfg.Screen.Width) / cfg.Mesh.Width
	scaleY := float64(cfg.Screen.Height) / cfg.Mesh.Height

	for i := 0; i < store.Len(); i++ {
		if !store.Alive[i] {
			continue
		}
		px := int32(store.X[i] * scaleX)
		py := int32(float64(cfg.Screen.Height) - store.Y[i]*scaleY)
		rl.DrawPixel(px, py, rl.RayWhite)
	}
}
