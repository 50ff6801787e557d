package sph

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSystem(t *testing.T, width, workers int) *System {
	t.Helper()
	sys, err := NewSystem(width, MustSettings(DefaultParams()), Options{
		Workers: workers,
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	t.Cleanup(sys.Close)
	return sys
}

func TestNewSystem_InitialLayout(t *testing.T) {
	sys := newTestSystem(t, 4, 2)

	if sys.Count() != 64 {
		t.Fatalf("Count() = %d, want 64", sys.Count())
	}
	if sys.State() != StateIdle {
		t.Errorf("State() = %v, want idle", sys.State())
	}
	if len(sys.Transforms()) != sys.Count() {
		t.Errorf("got %d transforms, want %d", len(sys.Transforms()), sys.Count())
	}

	h := sys.Settings().H()
	sep := h + DefaultLayout().SpacingPad
	for idx, p := range sys.Particles() {
		if p.ID != uint32(idx) {
			t.Fatalf("particle %d has ID %d", idx, p.ID)
		}
		i := idx % 4
		j := (idx / 4) % 4
		k := idx / 16
		want := mgl32.Vec3{
			float32(i)*sep - 1.5,
			float32(j)*sep + h + 0.1,
			float32(k)*sep - 1.5,
		}
		// Jitter is within h/10 on each axis.
		for a := 0; a < 3; a++ {
			if math.Abs(float64(p.Position[a]-want[a])) > float64(h)/10+1e-6 {
				t.Errorf("particle %d axis %d at %v, want near %v", idx, a, p.Position[a], want[a])
			}
		}
		if p.Velocity != (mgl32.Vec3{}) {
			t.Errorf("particle %d has initial velocity %v", idx, p.Velocity)
		}
		if sys.Transforms()[idx] != Transform(&p, sys.Settings().SphereScale()) {
			t.Errorf("transform %d does not match position", idx)
		}
	}
}

func TestNewSystem_Errors(t *testing.T) {
	s := MustSettings(DefaultParams())
	if _, err := NewSystem(0, s, Options{}); !errors.Is(err, ErrInvalidCubeWidth) {
		t.Errorf("width 0: err = %v, want ErrInvalidCubeWidth", err)
	}
	if _, err := NewSystem(3, nil, Options{}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("nil settings: err = %v, want ErrInvalidParams", err)
	}
}

func TestSystem_UpdateBeforeStartIsNoop(t *testing.T) {
	sys := newTestSystem(t, 3, 1)
	before := slices.Clone(sys.Particles())
	beforeT := slices.Clone(sys.Transforms())

	for i := 0; i < 5; i++ {
		if err := sys.Update(1.0 / 60); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if !slices.Equal(sys.Particles(), before) {
		t.Error("particles changed while idle")
	}
	if !slices.Equal(sys.Transforms(), beforeT) {
		t.Error("transforms changed while idle")
	}
	if sys.Tick() != 0 {
		t.Errorf("Tick() = %d, want 0", sys.Tick())
	}
}

func TestSystem_ResetIsReproducible(t *testing.T) {
	sys := newTestSystem(t, 5, 4)
	initial := slices.Clone(sys.Particles())

	sys.Start()
	if sys.State() != StateRunning {
		t.Fatalf("State() = %v, want running", sys.State())
	}
	for i := 0; i < 10; i++ {
		if err := sys.Update(1.0 / 60); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if sys.Tick() != 10 {
		t.Errorf("Tick() = %d, want 10", sys.Tick())
	}

	sys.Reset()
	if sys.State() != StateIdle {
		t.Errorf("State() after reset = %v, want idle", sys.State())
	}
	if sys.Tick() != 0 {
		t.Errorf("Tick() after reset = %d, want 0", sys.Tick())
	}
	if !slices.Equal(sys.Particles(), initial) {
		t.Error("reset did not reproduce the initial particles")
	}

	// A second reset from idle is identical too.
	sys.Reset()
	if !slices.Equal(sys.Particles(), initial) {
		t.Error("second reset differs")
	}
}

func TestSystem_FixedStepIgnoresFrameTime(t *testing.T) {
	a := newTestSystem(t, 3, 1)
	b := newTestSystem(t, 3, 1)
	a.Start()
	b.Start()
	if err := a.Update(0.001); err != nil {
		t.Fatal(err)
	}
	if err := b.Update(0.5); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(a.Particles(), b.Particles()) {
		t.Error("frame time changed the integration step")
	}
}

func TestSystem_WorkerCountDoesNotChangeResults(t *testing.T) {
	serial := newTestSystem(t, 6, 1)
	parallel := newTestSystem(t, 6, 5)
	serial.Start()
	parallel.Start()

	for i := 0; i < 20; i++ {
		if err := serial.Update(0); err != nil {
			t.Fatal(err)
		}
		if err := parallel.Update(0); err != nil {
			t.Fatal(err)
		}
	}

	byID := make(map[uint32]Particle, serial.Count())
	for _, p := range serial.Particles() {
		byID[p.ID] = p
	}
	for _, p := range parallel.Particles() {
		q := byID[p.ID]
		for a := 0; a < 3; a++ {
			if math.Abs(float64(p.Position[a]-q.Position[a])) > 1e-4 {
				t.Fatalf("particle %d position %v vs %v", p.ID, p.Position, q.Position)
			}
			if math.Abs(float64(p.Velocity[a]-q.Velocity[a])) > 1e-4 {
				t.Fatalf("particle %d velocity %v vs %v", p.ID, p.Velocity, q.Velocity)
			}
		}
		if e := relErr(float64(p.Density), float64(q.Density)); e > 1e-4 {
			t.Fatalf("particle %d density %v vs %v", p.ID, p.Density, q.Density)
		}
	}
}

func TestSystem_ParticlesStayInsideBox(t *testing.T) {
	sys := newTestSystem(t, 6, 4)
	sys.Start()
	self := sys.Settings().SelfDensity()
	for i := 0; i < 100; i++ {
		if err := sys.Update(0); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		for _, p := range sys.Particles() {
			if p.Density < self {
				t.Fatalf("tick %d: particle %d density %v below self density %v", i, p.ID, p.Density, self)
			}
		}
	}

	b := DefaultBoundary()
	for _, p := range sys.Particles() {
		if p.Position[1] < 0 {
			t.Fatalf("particle %d below floor: %v", p.ID, p.Position)
		}
		for _, axis := range []int{0, 2} {
			if math.Abs(float64(p.Position[axis])) > float64(b.HalfWidth) {
				t.Fatalf("particle %d outside walls: %v", p.ID, p.Position)
			}
		}
	}
}

func TestBoundary_Collide(t *testing.T) {
	const h = float32(0.15)
	b := DefaultBoundary()

	tests := []struct {
		name    string
		pos     mgl32.Vec3
		vel     mgl32.Vec3
		wantPos mgl32.Vec3
		wantVel mgl32.Vec3
	}{
		{
			name:    "floor",
			pos:     mgl32.Vec3{0, 0.05, 0},
			vel:     mgl32.Vec3{0, -2, 0},
			wantPos: mgl32.Vec3{0, -0.05 + 2*h + 1e-4, 0},
			wantVel: mgl32.Vec3{0, 1, 0},
		},
		{
			name:    "low x wall",
			pos:     mgl32.Vec3{-7.9, 1, 0},
			vel:     mgl32.Vec3{-3, 0, 0},
			wantPos: mgl32.Vec3{7.9 + 2*(h-8) + 1e-4, 1, 0},
			wantVel: mgl32.Vec3{1.5, 0, 0},
		},
		{
			name:    "high z wall",
			pos:     mgl32.Vec3{0, 1, 7.9},
			vel:     mgl32.Vec3{0, 0, 4},
			wantPos: mgl32.Vec3{0, 1, -7.9 + 2*(8-h) - 1e-4},
			wantVel: mgl32.Vec3{0, 0, -2},
		},
		{
			name:    "inside",
			pos:     mgl32.Vec3{1, 1, 1},
			vel:     mgl32.Vec3{1, 1, 1},
			wantPos: mgl32.Vec3{1, 1, 1},
			wantVel: mgl32.Vec3{1, 1, 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Particle{Position: tc.pos, Velocity: tc.vel}
			b.Collide(&p, h)
			for a := 0; a < 3; a++ {
				if math.Abs(float64(p.Position[a]-tc.wantPos[a])) > 1e-5 {
					t.Errorf("position = %v, want %v", p.Position, tc.wantPos)
					break
				}
			}
			for a := 0; a < 3; a++ {
				if math.Abs(float64(p.Velocity[a]-tc.wantVel[a])) > 1e-5 {
					t.Errorf("velocity = %v, want %v", p.Velocity, tc.wantVel)
					break
				}
			}
		})
	}
}

func TestSystem_FailedUpdateKeepsTick(t *testing.T) {
	sys := newTestSystem(t, 3, 2)
	sys.Start()
	sys.Particles()[0].Velocity = mgl32.Vec3{0, float32(math.NaN()), 0}

	err := sys.Update(0)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("err = %v, want ErrNonFinite", err)
	}
	if sys.Tick() != 0 {
		t.Errorf("Tick() = %d, want 0 after failed update", sys.Tick())
	}
	if sys.State() != StateRunning {
		t.Errorf("State() = %v, want running", sys.State())
	}
}
