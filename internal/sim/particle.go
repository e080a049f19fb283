package sim

import (
	"math"
	"math/rand"

	"github.com/iburimskiy/synapse-field/internal/config"
)

// Particle is one node of the network. Its ID is also its index in the
// store's arena and survives respawns.
type Particle struct {
	ID int

	X, Y               float64
	VX, VY             float64
	HeadingX, HeadingY float64 // unit vector the particle drifts along when left alone

	Value        float64 // wrapping counter in [0,1], shown as the glyph
	Size         float64
	Hue          float64
	Illumination float64

	Neighbors    []int
	ActivePulses int

	Age     int
	MaxLife int

	Phase     float64 // breathing offset
	Tolerance float64 // in [-1,1], jitters the spacing of pairs involving this particle
}

// Radius is the visual radius of the glyph before breathing is applied.
// Clicks within it hit the particle.
func (p *Particle) Radius() float64 {
	return (config.GlyphBaseSize*(0.8+0.4*p.Value) + 2*p.Size) / 2
}

// LifeFade is an opacity factor that fades a particle in after birth and
// out before death.
func (p *Particle) LifeFade() float64 {
	f := 1.0
	if p.Age < config.FadeInFrames {
		f = float64(p.Age) / config.FadeInFrames
	}
	if left := p.MaxLife - p.Age; left < config.FadeOutFrames {
		f = math.Min(f, float64(left)/config.FadeOutFrames)
	}
	return clamp01(f)
}

func (p *Particle) hasNeighbor(id int) bool {
	for _, n := range p.Neighbors {
		if n == id {
			return true
		}
	}
	return false
}

func (p *Particle) dropNeighbor(id int) {
	for i, n := range p.Neighbors {
		if n == id {
			p.Neighbors = append(p.Neighbors[:i], p.Neighbors[i+1:]...)
			return
		}
	}
}

// Store owns the particle arena. Slots 0..Len()-1 are alive; the arena grows
// by progressive spawning until it reaches the cap.
type Store struct {
	rng           *rand.Rand
	width, height float64
	cap           int
	particles     []Particle
}

func NewStore(rng *rand.Rand, capacity int, width, height float64) *Store {
	return &Store{
		rng:       rng,
		width:     width,
		height:    height,
		cap:       capacity,
		particles: make([]Particle, 0, capacity),
	}
}

// Particles returns the live arena. Callers in this package mutate it in
// place; the slice is only valid until the next Reset.
func (s *Store) Particles() []Particle { return s.particles }

func (s *Store) Len() int   { return len(s.particles) }
func (s *Store) Cap() int   { return s.cap }
func (s *Store) Full() bool { return len(s.particles) >= s.cap }

// SetBounds changes the spawn area and pulls every particle back inside it.
func (s *Store) SetBounds(width, height float64) {
	s.width, s.height = width, height
	for i := range s.particles {
		p := &s.particles[i]
		p.X = math.Min(math.Max(p.X, 0), width)
		p.Y = math.Min(math.Max(p.Y, 0), height)
	}
}

// SpawnBatch adds up to n particles, never growing past the cap. It returns
// how many were added.
func (s *Store) SpawnBatch(n int) int {
	added := 0
	for ; added < n && !s.Full(); added++ {
		id := len(s.particles)
		s.particles = append(s.particles, s.spawn(id))
	}
	return added
}

// Tick ages every particle by one frame. Particles past their life or over
// the neighbour cap are handed to release, which must detach their edges
// and cancel anything referencing them, and are then respawned in place.
// It returns the ids that were replaced.
func (s *Store) Tick(release func(id int)) []int {
	var replaced []int
	for i := range s.particles {
		p := &s.particles[i]
		p.Age++
		if p.Age <= p.MaxLife && len(p.Neighbors) <= config.MaxNeighbors {
			continue
		}
		if release != nil {
			release(p.ID)
		}
		s.particles[i] = s.spawn(p.ID)
		replaced = append(replaced, i)
	}
	return replaced
}

// Reset drops the whole population and sets a new cap. Progressive spawn
// then refills it from scratch.
func (s *Store) Reset(capacity int) {
	s.cap = capacity
	s.particles = make([]Particle, 0, capacity)
}

func (s *Store) spawn(id int) Particle {
	angle := s.rng.Float64() * 2 * math.Pi
	hx, hy := math.Cos(angle), math.Sin(angle)
	span := config.MaxLifeFrames - config.MinLifeFrames
	return Particle{
		ID:        id,
		X:         s.rng.Float64() * s.width,
		Y:         s.rng.Float64() * s.height,
		VX:        hx * config.BaseSpeed,
		VY:        hy * config.BaseSpeed,
		HeadingX:  hx,
		HeadingY:  hy,
		Value:     math.Round(s.rng.Float64()*10) / 10,
		Size:      s.rng.Float64()*1.5 + 0.5,
		Hue:       200 + s.rng.Float64()*60,
		MaxLife:   config.MinLifeFrames + s.rng.Intn(span+1),
		Phase:     s.rng.Float64() * 2 * math.Pi,
		Tolerance: s.rng.Float64()*2 - 1,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
