package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/sph"
	"github.com/pthm-cable/sph/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	State     sph.State
	Tick      int64
	SimTime   float64
	Particles int
	Workers   int
	FPS       int32
	LastError error
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | Workers: %d | FPS: %d", data.Particles, data.Workers, data.FPS),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Tick: %d | Sim time: %.2fs", data.Tick, data.SimTime),
		10, 55, 16, rl.LightGray,
	)

	statusColor := rl.Yellow
	if data.State == sph.StateRunning {
		statusColor = rl.Green
	}
	rl.DrawText(data.State.String(), 10, 75, 16, statusColor)

	if data.LastError != nil {
		rl.DrawText(data.LastError.Error(), 10, 95, 14, rl.Red)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the pipeline stage timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	phases := telemetry.Phases()
	p.renderer.DrawPanel(x-6, y-6, 280, int32(len(phases))*14+62)

	rl.DrawText("Pipeline Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Tick: %s  (%.0f/s)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("p95 %s  max %s", stats.P95TickDuration.Round(time.Microsecond), stats.MaxTickDuration.Round(time.Microsecond)), x, y, 12, rl.Gray)
	y += 14

	for _, name := range phases {
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}

// StatsPanel renders the latest telemetry window through descriptors.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	sections []SectionDescriptor
}

// NewStatsPanel creates a field statistics panel. restDensity and
// gasConstant size the bar ranges.
func NewStatsPanel(x, y, width int32, restDensity, gasConstant float32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		sections: statsSections(restDensity, gasConstant),
	}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the panel for stats.
func (s *StatsPanel) Draw(stats telemetry.WindowStats) {
	r := s.renderer
	padding := r.Theme.Padding

	height := padding * 2
	for _, sd := range s.sections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(s.x, s.y, s.width, height)

	y := s.y + padding
	for _, sd := range s.sections {
		y = r.DrawSection(s.x+padding, y, sd, stats, s.width-padding*2)
	}
}

func windowStats(data any) telemetry.WindowStats {
	ws, _ := data.(telemetry.WindowStats)
	return ws
}

func statsField(label, format string, get func(telemetry.WindowStats) float64) FieldDescriptor {
	return FieldDescriptor{
		ID:     label,
		Label:  label,
		Widget: WidgetText,
		Format: format,
		Getter: func(d any) float32 { return float32(get(windowStats(d))) },
	}
}

func statsSections(restDensity, gasConstant float32) []SectionDescriptor {
	return []SectionDescriptor{
		{
			ID:    "density",
			Title: "Density",
			Fields: []FieldDescriptor{
				{
					ID:     "density_mean",
					Label:  "Mean",
					Widget: WidgetBar,
					Range:  FieldRange{Min: 0, Max: 2 * restDensity},
					Getter: func(d any) float32 { return float32(windowStats(d).DensityMean) },
				},
				{
					ID:     "density_spread",
					Label:  "P10..P90",
					Widget: WidgetText,
					TextGetter: func(d any) string {
						w := windowStats(d)
						return fmt.Sprintf("%.0f .. %.0f", w.DensityP10, w.DensityP90)
					},
				},
				{
					ID:     "density_error",
					Label:  "Error",
					Widget: WidgetBar,
					Range:  DefaultRange(),
					Getter: func(d any) float32 { return float32(windowStats(d).DensityError) },
				},
			},
		},
		{
			ID:    "pressure",
			Title: "Pressure",
			Fields: []FieldDescriptor{
				{
					ID:     "pressure_mean",
					Label:  "Mean",
					Widget: WidgetCenteredBar,
					Range:  FieldRange{Min: -gasConstant * restDensity, Max: gasConstant * restDensity},
					Getter: func(d any) float32 { return float32(windowStats(d).PressureMean) },
				},
				{
					ID:     "pressure_range",
					Label:  "Range",
					Widget: WidgetText,
					TextGetter: func(d any) string {
						w := windowStats(d)
						return fmt.Sprintf("%.1f .. %.1f", w.PressureMin, w.PressureMax)
					},
				},
			},
		},
		{
			ID:    "motion",
			Title: "Motion",
			Fields: []FieldDescriptor{
				statsField("Kinetic", "%.3f", func(w telemetry.WindowStats) float64 { return w.KineticEnergy }),
				statsField("Speed avg", "%.3f", func(w telemetry.WindowStats) float64 { return w.SpeedMean }),
				statsField("Speed max", "%.3f", func(w telemetry.WindowStats) float64 { return w.SpeedMax }),
				statsField("Height avg", "%.3f", func(w telemetry.WindowStats) float64 { return w.HeightMean }),
			},
		},
		{
			ID:      "failures",
			Title:   "Failures",
			Visible: func(d any) bool { return windowStats(d).FailedTicks > 0 },
			Fields: []FieldDescriptor{
				statsField("Failed ticks", "%.0f", func(w telemetry.WindowStats) float64 { return float64(w.FailedTicks) }),
			},
		},
	}
}
