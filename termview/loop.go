package termview

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/sph/sph"
	"github.com/pthm-cable/sph/telemetry"
)

// Driver is the simulation the terminal loop controls. *sim.Runner
// satisfies it.
type Driver interface {
	Start()
	Reset()
	Step(frameDT float32) error
	System() *sph.System
	LastStats() telemetry.WindowStats
	LastError() error
}

// Run draws at fps frames per second, stepping d once per frame, until ctx
// is done or the user quits. The caller owns the screen and must Fini it.
func (v *View) Run(ctx context.Context, d Driver, fps int) error {
	if fps <= 0 {
		fps = 30
	}
	frame := time.Second / time.Duration(fps)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quit:
				return
			}
		}
	}()

	frameDT := float32(frame.Seconds())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-eventChan:
			if !v.handleEvent(ev, d) {
				return nil
			}

		case <-ticker.C:
			// Failures are reported on the status row; the system is unchanged.
			_ = d.Step(frameDT)
			sys := d.System()
			v.Draw(sys.Particles(), Status{
				State:   sys.State(),
				Tick:    sys.Tick(),
				Stats:   d.LastStats(),
				LastErr: d.LastError(),
			})
			v.screen.Show()
		}
	}
}

// handleEvent applies one input event. It returns false to quit.
func (v *View) handleEvent(ev tcell.Event, d Driver) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			v.cam.Orbit(-5, 0)
		case tcell.KeyRight:
			v.cam.Orbit(5, 0)
		case tcell.KeyUp:
			v.cam.Orbit(0, 5)
		case tcell.KeyDown:
			v.cam.Orbit(0, -5)
		case tcell.KeyHome:
			v.cam.Reset()
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 's':
				d.Start()
			case 'r':
				d.Reset()
			case '+', '=':
				v.cam.ZoomBy(0.8)
			case '-':
				v.cam.ZoomBy(1.25)
			}
		}

	case *tcell.EventResize:
		v.Resize()
		v.screen.Sync()
	}

	return true
}
