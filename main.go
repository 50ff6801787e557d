package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/sph/camera"
	"github.com/pthm-cable/sph/config"
	"github.com/pthm-cable/sph/game"
	"github.com/pthm-cable/sph/sim"
	"github.com/pthm-cable/sph/termview"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	terminal := flag.Bool("terminal", false, "Render in the terminal instead of a window")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Layout jitter seed (0 = use config)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	workers := flag.Int("workers", 0, "Worker goroutines (0 = use config)")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// The terminal viewer owns stdout, so logs go to stderr there.
	logOut := os.Stdout
	if *terminal {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))
	slog.SetDefault(logger)

	runner, err := sim.NewRunner(cfg, sim.Options{
		Seed:           *seed,
		Workers:        *workers,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		MaxFailures:    10,
		Logger:         logger,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *headless:
		runHeadless(ctx, runner, *maxTicks)
	case *terminal:
		runTerminal(ctx, cfg, runner)
	default:
		runWindow(cfg, runner, *maxTicks)
	}
}

func runHeadless(ctx context.Context, runner *sim.Runner, maxTicks int64) {
	defer runner.Close()

	sys := runner.System()
	slog.Info("starting headless simulation",
		"particles", sys.Count(),
		"workers", sys.Workers(),
		"fixed_dt", sys.FixedStep(),
		"max_ticks", maxTicks,
	)
	if err := runner.Run(ctx, maxTicks); err != nil && ctx.Err() == nil {
		slog.Error("simulation stopped", "tick", runner.System().Tick(), "error", err)
		runner.Close()
		os.Exit(1)
	}
}

func runTerminal(ctx context.Context, cfg *config.Config, runner *sim.Runner) {
	defer runner.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("failed to open terminal", "error", err)
		return
	}
	if err := screen.Init(); err != nil {
		slog.Error("failed to initialise terminal", "error", err)
		return
	}
	defer screen.Fini()

	cc := cfg.Camera
	cam := camera.New(1, 1, cfg.CameraTarget(),
		float32(cc.Distance), float32(cc.Yaw), float32(cc.Pitch), float32(cc.FovY))
	view := termview.New(screen, cam)

	if err := view.Run(ctx, runner, cfg.Terminal.FPS); err != nil && ctx.Err() == nil {
		slog.Error("terminal view stopped", "error", err)
	}
}

func runWindow(cfg *config.Config, runner *sim.Runner, maxTicks int64) {
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "SPH Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g := game.NewGame(cfg, runner)
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if maxTicks > 0 && g.Tick() >= maxTicks {
			break
		}
	}
}
