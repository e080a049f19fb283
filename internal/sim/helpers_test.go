package sim

import (
	"math/rand"
	"testing"

	"github.com/iburimskiy/synapse-field/internal/config"
)

// placed builds a particle arena at fixed positions with lives long enough
// that nothing retires during a test.
func placed(points ...Point) []Particle {
	ps := make([]Particle, len(points))
	for i, pt := range points {
		ps[i] = Particle{
			ID:       i,
			X:        pt.X,
			Y:        pt.Y,
			HeadingX: 1,
			Size:     1,
			MaxLife:  config.MaxLifeFrames,
		}
	}
	return ps
}

func newTestGraph() *Graph {
	return NewGraph(config.FormationDistance, config.BreakDistance, config.MaxNeighbors)
}

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

// checkSymmetry fails the test when a neighbour list is not mirrored.
func checkSymmetry(t *testing.T, ps []Particle) {
	t.Helper()
	for i := range ps {
		for _, j := range ps[i].Neighbors {
			if !ps[j].hasNeighbor(i) {
				t.Fatalf("asymmetric edge: %d lists %d but not the reverse", i, j)
			}
		}
	}
}

func checkInvariants(t *testing.T, ps []Particle) {
	t.Helper()
	for i := range ps {
		p := &ps[i]
		if p.Age < 0 || p.Age > p.MaxLife {
			t.Fatalf("particle %d age %d outside [0, %d]", i, p.Age, p.MaxLife)
		}
		if len(p.Neighbors) > config.MaxNeighbors {
			t.Fatalf("particle %d has %d neighbours, cap %d", i, len(p.Neighbors), config.MaxNeighbors)
		}
		if p.Value < 0 || p.Value > 1 {
			t.Fatalf("particle %d value %v outside [0,1]", i, p.Value)
		}
		if p.ID != i {
			t.Fatalf("particle at slot %d has id %d", i, p.ID)
		}
	}
	checkSymmetry(t, ps)
}
