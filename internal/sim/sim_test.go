package sim

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/logging"
)

func checkFrame(t *testing.T, s *Simulation, st Stats) {
	t.Helper()
	ps := s.Particles()
	checkInvariants(t, ps)

	if len(ps) > s.Profile().Cap {
		t.Fatalf("frame %d: %d particles over cap %d", st.Frame, len(ps), s.Profile().Cap)
	}
	degree := 0
	for _, p := range ps {
		degree += len(p.Neighbors)
		if p.X < 0 || p.X > s.Profile().Width || p.Y < 0 || p.Y > s.Profile().Height {
			t.Fatalf("frame %d: particle %d outside surface at (%v, %v)", st.Frame, p.ID, p.X, p.Y)
		}
		if p.ActivePulses < 0 {
			t.Fatalf("frame %d: particle %d has negative ActivePulses", st.Frame, p.ID)
		}
	}
	if degree != 2*s.EdgeCount() {
		t.Fatalf("frame %d: degree sum %d, edge count %d", st.Frame, degree, s.EdgeCount())
	}
	if st.Edges != s.EdgeCount() || st.Particles != len(ps) || st.Pulses != len(s.Pulses()) {
		t.Fatalf("frame %d: stats out of sync: %+v", st.Frame, st)
	}
	if len(s.Pulses()) > config.MaxLivePulses {
		t.Fatalf("frame %d: %d live pulses over cap", st.Frame, len(s.Pulses()))
	}
	for _, pl := range s.Pulses() {
		if pl.Source >= len(ps) || pl.Dest >= len(ps) || pl.Source == pl.Dest {
			t.Fatalf("frame %d: bad pulse %+v", st.Frame, pl)
		}
		if pl.Progress < 0 || pl.Progress >= 1 {
			t.Fatalf("frame %d: pulse progress %v", st.Frame, pl.Progress)
		}
	}
	for _, g := range s.Glows() {
		if g.Source >= len(ps) || g.Dest >= len(ps) || g.Life <= 0 || g.Life > 1 {
			t.Fatalf("frame %d: bad glow %+v", st.Frame, g)
		}
	}
}

func TestInvariantsHoldOverManyFrames(t *testing.T) {
	s := New(800, 600, WithSeed(7))

	for i := 0; i < 900; i++ {
		in := Input{Pointer: Pointer{X: 400, Y: 300, Active: i%200 < 100}}
		if i%50 == 0 && len(s.Particles()) > 0 {
			p := s.Particles()[i%len(s.Particles())]
			in.Click = &Point{X: p.X, Y: p.Y}
		}
		checkFrame(t, s, s.Step(in))
	}
	if s.Frame() != 900 {
		t.Fatalf("Frame = %d, want 900", s.Frame())
	}
}

func TestProgressiveSpawn(t *testing.T) {
	s := New(1920, 1080, WithSeed(1))
	if s.Profile().Cap != 250 {
		t.Fatalf("setup: cap = %d, want 250", s.Profile().Cap)
	}
	if len(s.Particles()) != 0 {
		t.Fatalf("simulation should start empty")
	}

	first := s.Step(Input{})
	if first.Spawned != config.SpawnBatchSize {
		t.Fatalf("first frame spawned %d, want %d", first.Spawned, config.SpawnBatchSize)
	}
	for i := 0; i < 400; i++ {
		st := s.Step(Input{})
		if st.Spawned > config.SpawnBatchSize {
			t.Fatalf("frame %d spawned %d at once", st.Frame, st.Spawned)
		}
		if st.Particles > 250 {
			t.Fatalf("frame %d: %d particles", st.Frame, st.Particles)
		}
	}
	if n := len(s.Particles()); n != 250 {
		t.Fatalf("population = %d after warm-up, want 250", n)
	}
}

func TestResizeToSmallerTierResets(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "info", Output: &buf})
	s := New(1920, 1080, WithSeed(3), WithLogger(log))
	for i := 0; i < 400; i++ {
		s.Step(Input{})
	}
	if len(s.Particles()) != 250 {
		t.Fatalf("setup: population %d, want 250", len(s.Particles()))
	}

	if !s.Resize(375, 812) {
		t.Fatalf("resize into the compact tier should reset")
	}
	if s.Profile().Cap != 90 || len(s.Particles()) != 0 || s.EdgeCount() != 0 || len(s.Pulses()) != 0 {
		t.Fatalf("after reset: cap=%d particles=%d edges=%d pulses=%d",
			s.Profile().Cap, len(s.Particles()), s.EdgeCount(), len(s.Pulses()))
	}
	if !strings.Contains(buf.String(), "population reset") || !strings.Contains(buf.String(), "tier=compact") {
		t.Fatalf("reset not logged: %q", buf.String())
	}

	for i := 0; i < 300; i++ {
		checkFrame(t, s, s.Step(Input{}))
	}
	if n := len(s.Particles()); n != 90 {
		t.Fatalf("population = %d, want 90", n)
	}
}

func TestResizeWithinTierKeepsPopulation(t *testing.T) {
	s := New(1920, 1080, WithSeed(5))
	for i := 0; i < 100; i++ {
		s.Step(Input{})
	}
	before := len(s.Particles())

	if s.Resize(1920, 1080) {
		t.Fatalf("same size should not reset")
	}
	if s.Resize(1900, 1000) {
		t.Fatalf("resize within the large tier should not reset")
	}
	if len(s.Particles()) != before {
		t.Fatalf("population changed from %d to %d", before, len(s.Particles()))
	}
	for _, p := range s.Particles() {
		if p.X > 1900 || p.Y > 1000 {
			t.Fatalf("particle %d left outside the new bounds", p.ID)
		}
	}
	if math.Abs(s.Profile().MinDistance-config.MinDistanceFraction*1000) > 1e-9 {
		t.Fatalf("profile not refreshed: %+v", s.Profile())
	}
}

func TestClickExcitesParticle(t *testing.T) {
	s := New(1280, 720, WithSeed(11))
	for i := 0; i < 120; i++ {
		s.Step(Input{})
	}
	target := s.Particles()[0]

	st := s.Step(Input{Click: &Point{X: target.X, Y: target.Y}})
	if !st.Excited {
		t.Fatalf("click on particle 0 did not excite anything")
	}
	if il := s.Particles()[0].Illumination; il < 1-config.IlluminationDecay-1e-9 {
		t.Fatalf("excited particle illumination = %v", il)
	}

	miss := s.Step(Input{Click: &Point{X: -500, Y: -500}})
	if miss.Excited {
		t.Fatalf("click off the surface should not excite")
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a := New(1024, 768, WithSeed(99))
	b := New(1024, 768, WithSeed(99))
	for i := 0; i < 200; i++ {
		sa, sb := a.Step(Input{}), b.Step(Input{})
		if sa.Edges != sb.Edges || sa.Pulses != sb.Pulses {
			t.Fatalf("frame %d diverged: %+v vs %+v", i, sa, sb)
		}
	}
	for i, p := range a.Particles() {
		q := b.Particles()[i]
		if p.X != q.X || p.Y != q.Y || p.Value != q.Value {
			t.Fatalf("particle %d diverged", i)
		}
	}
}
