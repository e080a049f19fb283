package sim

import (
	"math"
	"math/rand"

	"github.com/iburimskiy/synapse-field/internal/config"
)

// Pulse is a signal travelling from Source to Dest. Progress runs from 0 to
// 1 along the straight line between the two particles.
type Pulse struct {
	Source, Dest int
	Progress     float64
	Speed        float64
	Depth        int
}

// Glow highlights a freshly formed edge until Life runs out.
type Glow struct {
	Source, Dest int
	Life         float64
}

// Arrival records a pulse reaching its destination.
type Arrival struct {
	ID       int
	From     int
	Value    float64
	Depth    int
	Children int
}

// Limits bound how far and how wide a chain reaction can spread.
type Limits struct {
	MaxChainDepth    int
	MaxPulsesPerNode int
	MaxLivePulses    int
}

func DefaultLimits() Limits {
	return Limits{
		MaxChainDepth:    config.MaxChainDepth,
		MaxPulsesPerNode: config.MaxPulsesPerNode,
		MaxLivePulses:    config.MaxLivePulses,
	}
}

// Propagator owns pulses and glows and resolves arrivals into particle
// state changes and chain reactions.
type Propagator struct {
	rng     *rand.Rand
	limits  Limits
	pulses  []Pulse
	arrived []Pulse
	glows   []Glow
	dropped int
}

func NewPropagator(rng *rand.Rand, limits Limits) *Propagator {
	return &Propagator{rng: rng, limits: limits}
}

func (pr *Propagator) Pulses() []Pulse { return pr.pulses }
func (pr *Propagator) Glows() []Glow   { return pr.glows }

// Dropped is the running count of pulses refused because the live cap was
// reached.
func (pr *Propagator) Dropped() int { return pr.dropped }

// Emit starts a pulse from src to dst. Coincident endpoints, depths past the
// limit and a full pulse pool all refuse silently.
func (pr *Propagator) Emit(ps []Particle, src, dst, depth int) bool {
	if src == dst || depth > pr.limits.MaxChainDepth {
		return false
	}
	a, b := &ps[src], &ps[dst]
	d := math.Hypot(b.X-a.X, b.Y-a.Y)
	if d == 0 {
		return false
	}
	if len(pr.pulses) >= pr.limits.MaxLivePulses {
		pr.dropped++
		return false
	}
	pr.pulses = append(pr.pulses, Pulse{
		Source: src,
		Dest:   dst,
		Speed:  config.PulsePixelsPerFrame / d,
		Depth:  depth,
	})
	a.ActivePulses++
	return true
}

// Step decays illumination, advances every pulse and resolves the ones that
// arrive. Children emitted on arrival first move on the next step.
func (pr *Propagator) Step(ps []Particle) []Arrival {
	for i := range ps {
		if ps[i].Illumination > 0 {
			ps[i].Illumination = math.Max(0, ps[i].Illumination-config.IlluminationDecay)
		}
	}

	kept := pr.pulses[:0]
	arrived := pr.arrived[:0]
	for _, pl := range pr.pulses {
		pl.Progress += pl.Speed
		if pl.Progress >= 1 {
			arrived = append(arrived, pl)
			continue
		}
		kept = append(kept, pl)
	}
	pr.pulses = kept

	var out []Arrival
	for _, pl := range arrived {
		out = append(out, pr.arrive(ps, pl))
	}
	pr.arrived = arrived[:0]
	return out
}

func (pr *Propagator) arrive(ps []Particle, pl Pulse) Arrival {
	dst := &ps[pl.Dest]
	dst.Illumination = 1
	dst.Value = stepValue(dst.Value)
	if src := &ps[pl.Source]; src.ActivePulses > 0 {
		src.ActivePulses--
	}

	a := Arrival{ID: pl.Dest, From: pl.Source, Value: dst.Value, Depth: pl.Depth}
	if pl.Depth >= pr.limits.MaxChainDepth {
		return a
	}
	budget := pr.limits.MaxPulsesPerNode - dst.ActivePulses
	if budget <= 0 {
		return a
	}

	targets := make([]int, 0, len(dst.Neighbors))
	for _, n := range dst.Neighbors {
		if n != pl.Source {
			targets = append(targets, n)
		}
	}
	pr.rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })
	for _, t := range targets {
		if a.Children == budget {
			break
		}
		if pr.Emit(ps, pl.Dest, t, pl.Depth+1) {
			a.Children++
		}
	}
	return a
}

// stepValue advances the glyph counter, wrapping to 0 once it would pass 1.
func stepValue(v float64) float64 {
	v += config.ValueStep
	if v > 1+1e-9 {
		return 0
	}
	return math.Min(v, 1)
}

// Excite lights the particle under (x, y) and fires a pulse to each of its
// neighbours. It reports whether a particle was hit.
func (pr *Propagator) Excite(ps []Particle, x, y float64) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for i := range ps {
		d := math.Hypot(ps[i].X-x, ps[i].Y-y)
		if d <= ps[i].Radius() && d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return -1, false
	}
	p := &ps[best]
	p.Illumination = 1
	for _, n := range p.Neighbors {
		pr.Emit(ps, best, n, 0)
	}
	return best, true
}

// Cancel drops every pulse and glow touching id. Surviving sources get
// their in-flight count back.
func (pr *Propagator) Cancel(ps []Particle, id int) {
	kept := pr.pulses[:0]
	for _, pl := range pr.pulses {
		if pl.Source != id && pl.Dest != id {
			kept = append(kept, pl)
			continue
		}
		if pl.Source != id && pl.Source < len(ps) && ps[pl.Source].ActivePulses > 0 {
			ps[pl.Source].ActivePulses--
		}
	}
	pr.pulses = kept

	glows := pr.glows[:0]
	for _, g := range pr.glows {
		if g.Source != id && g.Dest != id {
			glows = append(glows, g)
		}
	}
	pr.glows = glows
}

// AddGlow starts a glow on the edge a-b unless one is already showing. It
// reports whether a new glow was added.
func (pr *Propagator) AddGlow(a, b int) bool {
	for _, g := range pr.glows {
		if (g.Source == a && g.Dest == b) || (g.Source == b && g.Dest == a) {
			return false
		}
	}
	pr.glows = append(pr.glows, Glow{Source: a, Dest: b, Life: 1})
	return true
}

// Decay fades every glow and drops the spent ones.
func (pr *Propagator) Decay() {
	kept := pr.glows[:0]
	for _, g := range pr.glows {
		g.Life -= config.GlowDecay
		if g.Life > 0 {
			kept = append(kept, g)
		}
	}
	pr.glows = kept
}

func (pr *Propagator) Reset() {
	pr.pulses = nil
	pr.glows = nil
}
