package sph

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// TableSize is the number of hash buckets.
	TableSize = 262144
	// EmptyBucket marks a bucket with no particles.
	EmptyBucket = math.MaxUint32
)

// Hash primes for the three cell axes.
const (
	primeX uint32 = 73856093
	primeY uint32 = 19349663
	primeZ uint32 = 83492791
)

var (
	// ErrUnsortedParticles is returned by Build when hashes are not non-decreasing.
	ErrUnsortedParticles = errors.New("sph: particles not sorted by hash")
	// ErrHashOutOfRange is returned by Build when a hash is not a valid bucket.
	ErrHashOutOfRange = errors.New("sph: hash out of range")
	// ErrTooManyParticles is returned when a particle index collides with EmptyBucket.
	ErrTooManyParticles = errors.New("sph: too many particles")
)

// Cell is an integer grid cell of side h.
type Cell [3]int32

// CellOf returns the grid cell containing pos.
func CellOf(pos mgl32.Vec3, h float32) Cell {
	return Cell{
		int32(math.Floor(float64(pos[0] / h))),
		int32(math.Floor(float64(pos[1] / h))),
		int32(math.Floor(float64(pos[2] / h))),
	}
}

// HashCell maps a cell to a bucket in [0, TableSize). Negative coordinates
// wrap through uint32 before mixing.
func HashCell(c Cell) uint32 {
	return ((uint32(c[0]) * primeX) ^ (uint32(c[1]) * primeY) ^ (uint32(c[2]) * primeZ)) % TableSize
}

// HashPosition is HashCell(CellOf(pos, h)).
func HashPosition(pos mgl32.Vec3, h float32) uint32 {
	return HashCell(CellOf(pos, h))
}

// NeighborTable maps each bucket to the first index of its run in a
// hash-sorted particle array. The table is only valid between Build and
// Release.
type NeighborTable struct {
	starts []uint32
	built  bool
}

// NewNeighborTable allocates a table with TableSize buckets.
func NewNeighborTable() *NeighborTable {
	return &NeighborTable{starts: make([]uint32, TableSize)}
}

// Build fills the table from particles already sorted by Hash.
func (t *NeighborTable) Build(sorted []Particle) error {
	t.built = false
	if uint64(len(sorted)) >= EmptyBucket {
		return fmt.Errorf("%w: %d", ErrTooManyParticles, len(sorted))
	}
	for i := range t.starts {
		t.starts[i] = EmptyBucket
	}

	prev := uint32(EmptyBucket)
	for i := range sorted {
		h := sorted[i].Hash
		if h >= TableSize {
			return fmt.Errorf("%w: particle %d hash %d", ErrHashOutOfRange, i, h)
		}
		if i > 0 && h < prev {
			return fmt.Errorf("%w: index %d (%d after %d)", ErrUnsortedParticles, i, h, prev)
		}
		if h != prev {
			t.starts[h] = uint32(i)
			prev = h
		}
	}
	t.built = true
	return nil
}

// Start returns the first index of the bucket's run.
func (t *NeighborTable) Start(hash uint32) (int, bool) {
	if !t.built || hash >= uint32(len(t.starts)) {
		return 0, false
	}
	s := t.starts[hash]
	if s == EmptyBucket {
		return 0, false
	}
	return int(s), true
}

// Built reports whether the table currently reflects a particle array.
func (t *NeighborTable) Built() bool { return t.built }

// Release invalidates the table until the next Build.
func (t *NeighborTable) Release() { t.built = false }

// Neighbor is a particle within h of a query particle.
type Neighbor struct {
	Index  int
	Delta  mgl32.Vec3 // neighbor position minus query position
	DistSq float32
}

// QueryInto appends to dst every particle j != i with |x_j - x_i|^2 < h^2,
// scanning the 27 cells around particle i. Reuse dst across calls.
func (t *NeighborTable) QueryInto(dst []Neighbor, particles []Particle, i int, h, h2 float32) []Neighbor {
	origin := particles[i].Position
	center := CellOf(origin, h)

	// Adjacent cells may collide into one bucket; visit each bucket once.
	var seen [27]uint32
	nSeen := 0

	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				bucket := HashCell(Cell{center[0] + dx, center[1] + dy, center[2] + dz})

				dup := false
				for k := 0; k < nSeen; k++ {
					if seen[k] == bucket {
						dup = true
						break
					}
				}
				if dup {
					continue
				}
				seen[nSeen] = bucket
				nSeen++

				start, ok := t.Start(bucket)
				if !ok {
					continue
				}
				for j := start; j < len(particles) && particles[j].Hash == bucket; j++ {
					if j == i {
						continue
					}
					d := particles[j].Position.Sub(origin)
					d2 := d.Dot(d)
					if d2 < h2 {
						dst = append(dst, Neighbor{Index: j, Delta: d, DistSq: d2})
					}
				}
			}
		}
	}
	return dst
}
