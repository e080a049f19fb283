package sim

import (
	"testing"

	"github.com/iburimskiy/synapse-field/internal/config"
)

func TestSpawnBatchRespectsCap(t *testing.T) {
	s := NewStore(newTestRand(), 10, 800, 600)

	if got := s.SpawnBatch(4); got != 4 {
		t.Fatalf("SpawnBatch(4) = %d, want 4", got)
	}
	if got := s.SpawnBatch(100); got != 6 {
		t.Fatalf("SpawnBatch(100) = %d, want 6 (cap)", got)
	}
	if !s.Full() {
		t.Fatalf("store should be full")
	}
	if got := s.SpawnBatch(1); got != 0 {
		t.Fatalf("SpawnBatch on full store = %d, want 0", got)
	}

	for i, p := range s.Particles() {
		if p.ID != i {
			t.Errorf("slot %d has id %d", i, p.ID)
		}
		if p.MaxLife < config.MinLifeFrames || p.MaxLife > config.MaxLifeFrames {
			t.Errorf("MaxLife %d outside [%d, %d]", p.MaxLife, config.MinLifeFrames, config.MaxLifeFrames)
		}
		if p.X < 0 || p.X > 800 || p.Y < 0 || p.Y > 600 {
			t.Errorf("particle %d spawned outside bounds at (%v, %v)", i, p.X, p.Y)
		}
		if p.Value < 0 || p.Value > 1 {
			t.Errorf("Value %v outside [0,1]", p.Value)
		}
	}
}

// TestTickRetiresAtEndOfLife checks that a particle at age == maxLife is
// gone after the next tick and that its id comes back fresh.
func TestTickRetiresAtEndOfLife(t *testing.T) {
	s := NewStore(newTestRand(), 3, 800, 600)
	s.SpawnBatch(3)
	ps := s.Particles()
	g := newTestGraph()

	// Wire 1 to both others, then push it to the end of its life.
	for i := range ps {
		ps[i].X, ps[i].Y = float64(i)*20, 0
	}
	g.Update(ps)
	if len(ps[1].Neighbors) == 0 {
		t.Fatalf("setup: expected particle 1 to have neighbours")
	}
	ps[1].Age = ps[1].MaxLife
	ps[1].Value = 0.7
	oldMaxLife := ps[1].MaxLife

	var released []int
	replaced := s.Tick(func(id int) {
		released = append(released, id)
		g.Detach(s.Particles(), id)
	})

	if len(replaced) != 1 || replaced[0] != 1 {
		t.Fatalf("replaced = %v, want [1]", replaced)
	}
	if len(released) != 1 || released[0] != 1 {
		t.Fatalf("release called with %v, want [1]", released)
	}
	p := s.Particles()[1]
	if p.ID != 1 || p.Age != 0 {
		t.Fatalf("respawned particle id=%d age=%d, want id=1 age=0", p.ID, p.Age)
	}
	if len(p.Neighbors) != 0 {
		t.Fatalf("respawned particle kept edges %v", p.Neighbors)
	}
	for _, q := range s.Particles() {
		if q.hasNeighbor(1) {
			t.Fatalf("particle %d still lists retired id 1", q.ID)
		}
	}
	if p.MaxLife == oldMaxLife && p.Value == 0.7 && p.X == 20 {
		t.Fatalf("particle 1 does not look respawned")
	}
	checkInvariants(t, s.Particles())
}

func TestTickReplacesOverConnected(t *testing.T) {
	s := NewStore(newTestRand(), 2, 800, 600)
	s.SpawnBatch(2)
	ps := s.Particles()
	ps[0].Neighbors = make([]int, config.MaxNeighbors+1)

	replaced := s.Tick(nil)
	if len(replaced) != 1 || replaced[0] != 0 {
		t.Fatalf("replaced = %v, want [0]", replaced)
	}
	if n := len(s.Particles()[0].Neighbors); n != 0 {
		t.Fatalf("expected fresh particle without neighbours, got %d", n)
	}
}

func TestTickAgesEveryone(t *testing.T) {
	s := NewStore(newTestRand(), 5, 800, 600)
	s.SpawnBatch(5)
	for i := 0; i < 10; i++ {
		s.Tick(nil)
	}
	for _, p := range s.Particles() {
		if p.Age != 10 {
			t.Fatalf("particle %d age %d, want 10", p.ID, p.Age)
		}
	}
}

func TestResetEmptiesAndRecaps(t *testing.T) {
	s := NewStore(newTestRand(), 5, 800, 600)
	s.SpawnBatch(5)
	s.Reset(2)
	if s.Len() != 0 || s.Cap() != 2 {
		t.Fatalf("after Reset: len=%d cap=%d, want 0/2", s.Len(), s.Cap())
	}
	if got := s.SpawnBatch(5); got != 2 {
		t.Fatalf("SpawnBatch after Reset = %d, want 2", got)
	}
}

func TestSetBoundsClampsPositions(t *testing.T) {
	s := NewStore(newTestRand(), 1, 800, 600)
	s.SpawnBatch(1)
	s.Particles()[0].X, s.Particles()[0].Y = 790, 590
	s.SetBounds(400, 300)
	p := s.Particles()[0]
	if p.X != 400 || p.Y != 300 {
		t.Fatalf("expected clamp to (400, 300), got (%v, %v)", p.X, p.Y)
	}
}

func TestLifeFade(t *testing.T) {
	p := Particle{MaxLife: 1000}
	if f := p.LifeFade(); f != 0 {
		t.Errorf("newborn fade = %v, want 0", f)
	}
	p.Age = 500
	if f := p.LifeFade(); f != 1 {
		t.Errorf("mid-life fade = %v, want 1", f)
	}
	p.Age = p.MaxLife
	if f := p.LifeFade(); f != 0 {
		t.Errorf("end-of-life fade = %v, want 0", f)
	}
}
