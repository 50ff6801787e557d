package sph

import (
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// bruteDensity sums the poly6 kernel over every other particle.
func bruteDensity(ps []Particle, i int, s *Settings) float64 {
	h2 := float64(s.H2())
	sum := float64(s.SelfDensity())
	for j := range ps {
		if j == i {
			continue
		}
		d := ps[j].Position.Sub(ps[i].Position)
		d2 := float64(d.Dot(d))
		if d2 < h2 {
			w := h2 - d2
			sum += float64(s.MassPoly6()) * w * w * w
		}
	}
	return sum
}

func densityViaTable(t *testing.T, ps []Particle, s *Settings) {
	t.Helper()
	sortByHash(ps, s.H())
	table := NewNeighborTable()
	if err := table.Build(ps); err != nil {
		t.Fatalf("Build: %v", err)
	}
	computeDensity(ps, table, s, 0, len(ps), nil)
}

func TestDensity_MatchesBruteForce(t *testing.T) {
	s := MustSettings(DefaultParams())

	cube := make([]Particle, 8)
	DefaultLayout().Fill(cube, 2, s.H())

	rng := rand.New(rand.NewSource(5))
	cloud := make([]Particle, 300)
	for i := range cloud {
		cloud[i].Position = mgl32.Vec3{rng.Float32() * 0.6, rng.Float32() * 0.6, rng.Float32() * 0.6}
		cloud[i].ID = uint32(i)
	}

	for name, ps := range map[string][]Particle{"cube": cube, "cloud": cloud} {
		t.Run(name, func(t *testing.T) {
			densityViaTable(t, ps, s)
			for i := range ps {
				want := bruteDensity(ps, i, s)
				if e := relErr(float64(ps[i].Density), want); e > 1e-5 {
					t.Errorf("particle %d: density %v, want %v (rel err %g)", ps[i].ID, ps[i].Density, want, e)
				}
				wantP := float64(s.GasConstant()) * (float64(ps[i].Density) - float64(s.RestDensity()))
				if math.Abs(float64(ps[i].Pressure)-wantP) > 1e-3 {
					t.Errorf("particle %d: pressure %v, want %v", ps[i].ID, ps[i].Pressure, wantP)
				}
			}
		})
	}
}

func TestDensity_AtLeastSelfDensity(t *testing.T) {
	s := MustSettings(DefaultParams())
	ps := make([]Particle, 5*5*5)
	DefaultLayout().Fill(ps, 5, s.H())
	densityViaTable(t, ps, s)

	for i := range ps {
		if ps[i].Density < s.SelfDensity() {
			t.Errorf("particle %d: density %v below self density %v", ps[i].ID, ps[i].Density, s.SelfDensity())
		}
	}

	lone := []Particle{{Position: mgl32.Vec3{0, 1, 0}}}
	densityViaTable(t, lone, s)
	if lone[0].Density != s.SelfDensity() {
		t.Errorf("isolated density = %v, want %v", lone[0].Density, s.SelfDensity())
	}
}

func TestPipeline_PairRepulsion(t *testing.T) {
	s := MustSettings(DefaultParams())
	h := s.H()
	sep := h / 2

	ps := []Particle{
		{Position: mgl32.Vec3{0, 2, 0}, ID: 0},
		{Position: mgl32.Vec3{sep, 2, 0}, ID: 1},
	}
	transforms := make([]mgl32.Mat4, len(ps))

	pool := NewPool(2)
	defer pool.Close()
	pl := NewPipeline(s, DefaultBoundary(), pool)
	if err := pl.Step(ps, transforms, DefaultFixedStep); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if pl.Table().Built() {
		t.Error("table should be released after Step")
	}

	var a, b Particle
	for _, p := range ps {
		if p.ID == 0 {
			a = p
		} else {
			b = p
		}
	}

	// Expected values from the kernel definitions.
	d := float64(sep)
	w := float64(s.H2()) - d*d
	rho := float64(s.SelfDensity()) + float64(s.MassPoly6())*w*w*w
	pres := float64(s.GasConstant()) * (rho - float64(s.RestDensity()))
	hd := float64(h) - d
	mag := float64(s.Mass()) * (2 * pres) / (2 * rho) * float64(s.SpikyGrad()) * hd * hd
	wantFx := -mag // force on a points away from b

	for _, p := range []Particle{a, b} {
		if e := relErr(float64(p.Density), rho); e > 1e-4 {
			t.Errorf("particle %d: density %v, want %v", p.ID, p.Density, rho)
		}
	}
	if e := relErr(float64(a.Force[0]), wantFx); e > 1e-3 {
		t.Errorf("force on a = %v, want x=%v", a.Force, wantFx)
	}
	if a.Force[0] >= 0 || b.Force[0] <= 0 {
		t.Errorf("expected repulsion, got a=%v b=%v", a.Force, b.Force)
	}
	if math.Abs(float64(a.Force[0]+b.Force[0])) > 1e-3*math.Abs(float64(a.Force[0])) {
		t.Errorf("forces not equal and opposite: a=%v b=%v", a.Force, b.Force)
	}
	for axis := 1; axis < 3; axis++ {
		if a.Force[axis] != 0 || b.Force[axis] != 0 {
			t.Errorf("expected no force on axis %d: a=%v b=%v", axis, a.Force, b.Force)
		}
	}
	if a.Position[0] >= 0 || b.Position[0] <= sep {
		t.Errorf("expected particles to move apart: a=%v b=%v", a.Position, b.Position)
	}
}

type recordingObserver struct{ phases []string }

func (r *recordingObserver) StartPhase(name string) { r.phases = append(r.phases, name) }

func TestPipeline_StageOrder(t *testing.T) {
	s := MustSettings(DefaultParams())
	ps := make([]Particle, 27)
	DefaultLayout().Fill(ps, 3, s.H())
	transforms := make([]mgl32.Mat4, len(ps))

	pool := NewPool(3)
	defer pool.Close()
	pl := NewPipeline(s, DefaultBoundary(), pool)
	obs := &recordingObserver{}
	pl.SetObserver(obs)

	if err := pl.Step(ps, transforms, DefaultFixedStep); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !slices.Equal(obs.phases, Stages) {
		t.Errorf("phases = %v, want %v", obs.phases, Stages)
	}
	for i := 1; i < len(ps); i++ {
		if ps[i].Hash < ps[i-1].Hash {
			t.Fatalf("particles not sorted by hash at %d", i)
		}
	}
	for i := range ps {
		want := Transform(&ps[i], s.SphereScale())
		if transforms[i] != want {
			t.Fatalf("transform %d = %v, want %v", i, transforms[i], want)
		}
	}
}

func TestPipeline_FailedStepRestoresParticles(t *testing.T) {
	s := MustSettings(DefaultParams())
	ps := make([]Particle, 64)
	DefaultLayout().Fill(ps, 4, s.H())
	ps[10].Velocity = mgl32.Vec3{float32(math.Inf(1)), 0, 0}

	scale := s.SphereScale()
	transforms := make([]mgl32.Mat4, len(ps))
	for i := range ps {
		transforms[i] = Transform(&ps[i], scale)
	}
	before := slices.Clone(ps)

	pool := NewPool(4)
	defer pool.Close()
	pl := NewPipeline(s, DefaultBoundary(), pool)

	err := pl.Step(ps, transforms, DefaultFixedStep)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("err = %v, want ErrNonFinite", err)
	}
	for i := range ps {
		if ps[i].Position != before[i].Position || ps[i].ID != before[i].ID {
			t.Fatalf("particle %d changed: %+v, want %+v", i, ps[i], before[i])
		}
		if transforms[i] != Transform(&before[i], scale) {
			t.Fatalf("transform %d not restored", i)
		}
	}
	if pl.Table().Built() {
		t.Error("table should be released after a failed Step")
	}
}

func TestPipeline_RejectsMismatchedTransforms(t *testing.T) {
	s := MustSettings(DefaultParams())
	pool := NewPool(1)
	defer pool.Close()
	pl := NewPipeline(s, DefaultBoundary(), pool)

	if err := pl.Step(make([]Particle, 3), make([]mgl32.Mat4, 2), DefaultFixedStep); err == nil {
		t.Error("expected error for mismatched transform buffer")
	}
}

func TestForces_SkipsZeroDensityNeighbor(t *testing.T) {
	s := MustSettings(DefaultParams())
	ps := []Particle{
		{Position: mgl32.Vec3{0, 2, 0}, ID: 0},
		{Position: mgl32.Vec3{s.H() / 2, 2, 0}, Velocity: mgl32.Vec3{1, 0, 0}, ID: 1},
	}
	densityViaTable(t, ps, s)
	table := NewNeighborTable()
	if err := table.Build(ps); err != nil {
		t.Fatal(err)
	}

	zeroed := -1
	for i := range ps {
		if ps[i].ID == 1 {
			ps[i].Density = 0
			zeroed = i
		}
	}
	computeForces(ps, table, s, 0, len(ps), nil)

	for _, p := range ps {
		if !finiteVec(p.Force) {
			t.Errorf("particle %d: force %v not finite", p.ID, p.Force)
		}
	}
	other := 1 - zeroed
	if ps[other].Force != (mgl32.Vec3{}) {
		t.Errorf("force from zero-density neighbor = %v, want zero", ps[other].Force)
	}
}

func TestIntegrate_ZeroDensityUsesGravityOnly(t *testing.T) {
	s := MustSettings(DefaultParams())
	dt := DefaultFixedStep
	ps := []Particle{{
		Position: mgl32.Vec3{0, 2, 0},
		Force:    mgl32.Vec3{5, 5, 5},
		Density:  0,
	}}
	transforms := make([]mgl32.Mat4, 1)

	if err := integrate(ps, transforms, s, DefaultBoundary(), dt, 0, 1); err != nil {
		t.Fatalf("integrate: %v", err)
	}
	p := ps[0]
	if !finiteVec(p.Position) || !finiteVec(p.Velocity) {
		t.Fatalf("state not finite: pos %v vel %v", p.Position, p.Velocity)
	}
	wantVY := s.Gravity() * dt
	if p.Velocity[0] != 0 || p.Velocity[2] != 0 || math.Abs(float64(p.Velocity[1]-wantVY)) > 1e-7 {
		t.Errorf("velocity = %v, want [0 %v 0]", p.Velocity, wantVY)
	}
}
