package sph

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"testing"
)

func newBenchSystem(b *testing.B, width, workers int) *System {
	b.Helper()
	sys, err := NewSystem(width, MustSettings(DefaultParams()), Options{
		Workers: workers,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(sys.Close)
	sys.Start()
	return sys
}

// Benchmark one full tick at the reference cube size and a smaller one.
func BenchmarkSystemUpdate(b *testing.B) {
	for _, width := range []int{8, 15} {
		for _, workers := range []int{1, runtime.GOMAXPROCS(0)} {
			b.Run(fmt.Sprintf("w%d/workers%d", width, workers), func(b *testing.B) {
				sys := newBenchSystem(b, width, workers)

				b.ResetTimer()
				for n := 0; n < b.N; n++ {
					if err := sys.Update(0); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// Benchmark the 27-cell neighbor walk for every particle.
func BenchmarkNeighborQuery(b *testing.B) {
	sys := newBenchSystem(b, 15, 1)
	if err := sys.Update(0); err != nil {
		b.Fatal(err)
	}
	particles := sys.Particles()
	for i := range particles {
		particles[i].Hash = HashPosition(particles[i].Position, sys.Settings().H())
	}
	slices.SortStableFunc(particles, func(a, b Particle) int { return cmp.Compare(a.Hash, b.Hash) })

	table := NewNeighborTable()
	if err := table.Build(particles); err != nil {
		b.Fatal(err)
	}
	h, h2 := sys.Settings().H(), sys.Settings().H2()
	buf := make([]Neighbor, 0, 64)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range particles {
			buf = table.QueryInto(buf[:0], particles, i, h, h2)
		}
	}
}
