package sim

import (
	"math"
	"math/rand"

	"github.com/iburimskiy/synapse-field/internal/config"
)

// Pointer is the last known pointer position. Active is false when the
// pointer has left the surface or never entered it.
type Pointer struct {
	X, Y   float64
	Active bool
}

// Integrator advances velocities and positions. Every contribution is read
// from the positions at the start of the step, summed, then applied.
type Integrator struct {
	rng          *rand.Rand
	profile      config.Profile
	jitterChance float64
	ax, ay       []float64
}

func NewIntegrator(rng *rand.Rand, profile config.Profile) *Integrator {
	return &Integrator{rng: rng, profile: profile, jitterChance: config.JitterChance}
}

func (in *Integrator) SetProfile(p config.Profile) { in.profile = p }

// Step applies one frame of forces to ps. g supplies edge rest lengths for
// the connection pull and may be nil.
func (in *Integrator) Step(ps []Particle, g *Graph, ptr Pointer) {
	n := len(ps)
	if cap(in.ax) < n {
		in.ax = make([]float64, n)
		in.ay = make([]float64, n)
	}
	in.ax, in.ay = in.ax[:n], in.ay[:n]
	for i := range in.ax {
		in.ax[i], in.ay[i] = 0, 0
	}

	in.heading(ps)
	in.repulsion(ps)
	if ptr.Active {
		in.pointer(ps, g, ptr)
	}
	in.jitter(ps)
	in.integrate(ps)
}

// heading eases each particle back toward its preferred drift.
func (in *Integrator) heading(ps []Particle) {
	for i := range ps {
		p := &ps[i]
		in.ax[i] += (p.HeadingX*config.BaseSpeed - p.VX) * config.HeadingReturn
		in.ay[i] += (p.HeadingY*config.BaseSpeed - p.VY) * config.HeadingReturn
	}
}

// repulsion applies both the screen-relative minimum distance and the tight
// local radius. Both fall off as (1 - d/r)².
func (in *Integrator) repulsion(ps []Particle) {
	minDist := in.profile.MinDistance
	local := in.profile.LocalRadius
	for i := 0; i < len(ps); i++ {
		a := &ps[i]
		for j := i + 1; j < len(ps); j++ {
			b := &ps[j]
			dx, dy := a.X-b.X, a.Y-b.Y
			d := math.Hypot(dx, dy)
			if d == 0 {
				continue
			}

			var f float64
			r := minDist * (1 + config.ToleranceSpread*(a.Tolerance+b.Tolerance)/2)
			if d < r {
				k := 1 - d/r
				f += config.RepulsionForce * k * k
			}
			if d < local {
				k := 1 - d/local
				f += config.LocalRepulsionForce * k * k
			}
			if f == 0 {
				continue
			}

			ux, uy := dx/d, dy/d
			in.ax[i] += ux * f
			in.ay[i] += uy * f
			in.ax[j] -= ux * f
			in.ay[j] -= uy * f
		}
	}
}

// pointer pulls particles toward the pointer, and lets each of them draw
// its neighbours a little closer without going under PullFloor of the
// edge's rest length.
func (in *Integrator) pointer(ps []Particle, g *Graph, ptr Pointer) {
	radius := in.profile.PointerRadius
	for i := range ps {
		p := &ps[i]
		dx, dy := ptr.X-p.X, ptr.Y-p.Y
		d := math.Hypot(dx, dy)
		if d >= radius {
			continue
		}
		k := 1 - d/radius
		if d > 0 {
			in.ax[i] += dx / d * config.PointerForce * k
			in.ay[i] += dy / d * config.PointerForce * k
		}

		for _, nb := range p.Neighbors {
			q := &ps[nb]
			ex, ey := p.X-q.X, p.Y-q.Y
			sep := math.Hypot(ex, ey)
			if sep == 0 {
				continue
			}
			rest := sep
			if g != nil {
				if r, ok := g.Rest(i, nb); ok {
					rest = r
				}
			}
			room := sep - config.PullFloor*rest
			if room <= 0 {
				continue
			}
			// The impulse moves q by pull*Damping this frame; that step
			// alone may not take the pair under the floor.
			pull := math.Min(config.ConnectionPull*k, room/config.Damping)
			in.ax[nb] += ex / sep * pull
			in.ay[nb] += ey / sep * pull
		}
	}
}

func (in *Integrator) jitter(ps []Particle) {
	for i := range ps {
		if in.rng.Float64() >= in.jitterChance {
			continue
		}
		angle := in.rng.Float64() * 2 * math.Pi
		in.ax[i] += math.Cos(angle) * config.JitterForce
		in.ay[i] += math.Sin(angle) * config.JitterForce
	}
}

func (in *Integrator) integrate(ps []Particle) {
	w, h := in.profile.Width, in.profile.Height
	for i := range ps {
		p := &ps[i]
		p.VX = (p.VX + in.ax[i]) * config.Damping
		p.VY = (p.VY + in.ay[i]) * config.Damping
		if s := math.Hypot(p.VX, p.VY); s > config.MaxSpeed {
			p.VX = p.VX / s * config.MaxSpeed
			p.VY = p.VY / s * config.MaxSpeed
		}

		p.X += p.VX
		p.Y += p.VY

		if p.X < 0 {
			p.X = 0
			p.VX, p.HeadingX = bounce(p.VX, p.HeadingX, 1)
		} else if p.X > w {
			p.X = w
			p.VX, p.HeadingX = bounce(p.VX, p.HeadingX, -1)
		}
		if p.Y < 0 {
			p.Y = 0
			p.VY, p.HeadingY = bounce(p.VY, p.HeadingY, 1)
		} else if p.Y > h {
			p.Y = h
			p.VY, p.HeadingY = bounce(p.VY, p.HeadingY, -1)
		}
	}
}

// bounce reflects an outward velocity component back toward inward (+1 or
// -1) with damping, and turns the heading the same way so the particle does
// not drift straight back into the wall.
func bounce(v, heading, inward float64) (float64, float64) {
	if v*inward < 0 {
		v = -v * config.BounceDamping
	}
	if heading*inward < 0 {
		heading = -heading
	}
	return v, heading
}
