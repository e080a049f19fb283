package sim

import (
	"context"
	"math/rand"
	"time"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/logging"
)

// Point is a surface coordinate in pixels.
type Point struct {
	X, Y float64
}

// Input is everything the host hands to one frame. It is read once at the
// start of Step.
type Input struct {
	Pointer Pointer
	Click   *Point
}

// Stats summarises one frame for metrics, tracing and sound.
type Stats struct {
	Frame     uint64
	Particles int
	Edges     int
	Pulses    int
	Glows     int
	Spawned   int
	Replaced  int
	Formed    int
	Dropped   int
	Excited   bool
	Arrivals  []Arrival
}

// Simulation runs the per-frame pipeline: spawn and retire, connectivity,
// forces, propagation. Drawing is left to the caller.
type Simulation struct {
	log     logging.Logger
	rng     *rand.Rand
	profile config.Profile

	store   *Store
	graph   *Graph
	forces  *Integrator
	signals *Propagator

	frame      uint64
	spawnClock int
}

type Option func(*options)

type options struct {
	seed   int64
	log    logging.Logger
	limits Limits
}

// WithSeed makes the run reproducible. A zero seed uses the clock.
func WithSeed(seed int64) Option { return func(o *options) { o.seed = seed } }

func WithLogger(l logging.Logger) Option { return func(o *options) { o.log = l } }

func WithLimits(l Limits) Option { return func(o *options) { o.limits = l } }

// New builds a simulation for a width×height surface. The population starts
// empty and fills through progressive spawning.
func New(width, height int, opts ...Option) *Simulation {
	o := options{log: logging.Noop(), limits: DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(o.seed))
	profile := config.ProfileFor(width, height)
	return &Simulation{
		log:     o.log,
		rng:     rng,
		profile: profile,
		store:   NewStore(rng, profile.Cap, profile.Width, profile.Height),
		graph:   NewGraph(config.FormationDistance, config.BreakDistance, config.MaxNeighbors),
		forces:  NewIntegrator(rng, profile),
		signals: NewPropagator(rng, o.limits),
	}
}

func (s *Simulation) Profile() config.Profile { return s.profile }
func (s *Simulation) Frame() uint64            { return s.frame }
func (s *Simulation) Particles() []Particle    { return s.store.Particles() }
func (s *Simulation) Pulses() []Pulse          { return s.signals.Pulses() }
func (s *Simulation) Glows() []Glow            { return s.signals.Glows() }
func (s *Simulation) EdgeCount() int           { return s.graph.EdgeCount() }

// Resize adopts a new surface size. When the population tier changes the
// network is rebuilt from scratch; otherwise particles are pulled inside the
// new bounds. It reports whether the population was reset.
func (s *Simulation) Resize(width, height int) bool {
	next := config.ProfileFor(width, height)
	if next.Width == s.profile.Width && next.Height == s.profile.Height {
		return false
	}
	prev := s.profile
	s.profile = next
	s.forces.SetProfile(next)
	s.store.SetBounds(next.Width, next.Height)

	if next.Cap == prev.Cap {
		return false
	}
	s.reset()
	s.log.Info(context.Background(), "population reset",
		logging.String("tier", next.Tier),
		logging.Int("cap", next.Cap),
		logging.Int("previous_cap", prev.Cap),
		logging.Float("width", next.Width),
		logging.Float("height", next.Height),
	)
	return true
}

func (s *Simulation) reset() {
	s.store.Reset(s.profile.Cap)
	s.graph.Reset()
	s.signals.Reset()
	s.spawnClock = 0
}

// Step advances the network by one frame.
func (s *Simulation) Step(in Input) Stats {
	s.frame++
	st := Stats{Frame: s.frame}

	if !s.store.Full() {
		if s.spawnClock%config.SpawnIntervalFrames == 0 {
			st.Spawned = s.store.SpawnBatch(config.SpawnBatchSize)
		}
		s.spawnClock++
	}
	st.Replaced = len(s.store.Tick(s.release))

	ps := s.store.Particles()
	for _, e := range s.graph.Update(ps) {
		st.Formed++
		if s.signals.AddGlow(e.A, e.B) {
			s.signals.Emit(ps, e.A, e.B, 0)
		}
	}

	if in.Click != nil {
		_, st.Excited = s.signals.Excite(ps, in.Click.X, in.Click.Y)
	}

	s.forces.Step(ps, s.graph, in.Pointer)

	dropped := s.signals.Dropped()
	st.Arrivals = s.signals.Step(ps)
	s.signals.Decay()
	st.Dropped = s.signals.Dropped() - dropped

	st.Particles = len(ps)
	st.Edges = s.graph.EdgeCount()
	st.Pulses = len(s.signals.Pulses())
	st.Glows = len(s.signals.Glows())
	return st
}

// release detaches a particle from everything that references it before it
// is respawned.
func (s *Simulation) release(id int) {
	ps := s.store.Particles()
	s.graph.Detach(ps, id)
	s.signals.Cancel(ps, id)
	s.log.Debug(context.Background(), "particle retired",
		logging.Int("id", id),
		logging.Int("age", ps[id].Age),
	)
}
