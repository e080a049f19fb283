package render

import (
	"image/color"
	"math"
	"strconv"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/sim"
)

// Canvas is a drawing surface in pixel coordinates. Colours are
// non-premultiplied; the canvas blends them over what is already drawn.
type Canvas interface {
	Size() (w, h int)
	Fill(c color.NRGBA)
	Line(x0, y0, x1, y1, width float64, c color.NRGBA)
	Dot(x, y, r float64, c color.NRGBA)
	Glyph(x, y, size float64, s string, c color.NRGBA)
}

// Frame is a read-only view of the simulation for one draw.
type Frame struct {
	Particles []sim.Particle
	Pulses    []sim.Pulse
	Glows     []sim.Glow
	Tick      uint64
}

// FrameOf snapshots s for drawing.
func FrameOf(s *sim.Simulation) Frame {
	return Frame{
		Particles: s.Particles(),
		Pulses:    s.Pulses(),
		Glows:     s.Glows(),
		Tick:      s.Frame(),
	}
}

const (
	pulseRadius   = 1.5
	breathDepth   = 0.08
	litHaloAlpha  = 0.25
	glowHaloWidth = 4.0
)

// Renderer turns a Frame into canvas calls, back to front.
type Renderer struct {
	labels [11]string
}

func NewRenderer() *Renderer {
	r := &Renderer{}
	for i := range r.labels {
		r.labels[i] = strconv.Itoa(i)
	}
	return r
}

// DrawFrame paints f onto c. A nil or empty canvas is skipped.
func (r *Renderer) DrawFrame(c Canvas, f Frame, p Palette) {
	if c == nil {
		return
	}
	if w, h := c.Size(); w <= 0 || h <= 0 {
		return
	}

	c.Fill(p.Background)
	r.drawEdges(c, f, p)
	r.drawGlows(c, f, p)
	r.drawPulses(c, f, p)
	r.drawParticles(c, f, p)
}

func (r *Renderer) drawEdges(c Canvas, f Frame, p Palette) {
	ps := f.Particles
	for i := range ps {
		a := &ps[i]
		for _, n := range a.Neighbors {
			if n <= i || n >= len(ps) {
				continue
			}
			b := &ps[n]
			// Larger particles read as closer, so their edges are brighter.
			depth := (a.Size + b.Size) / 4
			alpha := p.EdgeAlpha * (0.5 + 0.5*depth) * math.Min(a.LifeFade(), b.LifeFade())
			if alpha <= 0 {
				continue
			}
			c.Line(a.X, a.Y, b.X, b.Y, 1, hsl(p.EdgeHue, 1, p.EdgeLight, alpha))
		}
	}
}

func (r *Renderer) drawGlows(c Canvas, f Frame, p Palette) {
	ps := f.Particles
	for _, g := range f.Glows {
		if g.Source >= len(ps) || g.Dest >= len(ps) {
			continue
		}
		a, b := &ps[g.Source], &ps[g.Dest]
		col := hsl(p.GlowHue, 1, p.GlowLight, p.GlowAlpha*g.Life)
		c.Line(a.X, a.Y, b.X, b.Y, glowHaloWidth*g.Life, withAlpha(col, p.GlowAlpha*g.Life*0.3))
		c.Line(a.X, a.Y, b.X, b.Y, 1, col)
	}
}

func (r *Renderer) drawPulses(c Canvas, f Frame, p Palette) {
	ps := f.Particles
	col := hsl(p.GlowHue, 1, p.PulseLight, p.PulseAlpha)
	for _, pl := range f.Pulses {
		if pl.Source >= len(ps) || pl.Dest >= len(ps) {
			continue
		}
		a, b := &ps[pl.Source], &ps[pl.Dest]
		x := a.X + (b.X-a.X)*pl.Progress
		y := a.Y + (b.Y-a.Y)*pl.Progress
		c.Dot(x, y, pulseRadius, col)
	}
}

func (r *Renderer) drawParticles(c Canvas, f Frame, p Palette) {
	tick := float64(f.Tick)
	for i := range f.Particles {
		pt := &f.Particles[i]
		fade := pt.LifeFade()
		if fade <= 0 {
			continue
		}
		breath := 1 + breathDepth*math.Sin(tick*config.BreathRate+pt.Phase)
		size := 2*pt.Radius()*breath + 3*pt.Illumination
		alpha := (0.5 + 0.4*pt.Illumination) * fade

		if pt.Illumination > 0 {
			c.Dot(pt.X, pt.Y, size*0.8, hsl(pt.Hue, 1, 0.7, litHaloAlpha*pt.Illumination*fade))
		}
		light := p.GlyphLight + p.GlyphLift*pt.Illumination
		c.Glyph(pt.X, pt.Y, size, r.label(pt.Value), hsl(pt.Hue, 1, light, alpha))
	}
}

// label renders a value in [0,1] as the integer 0..10.
func (r *Renderer) label(v float64) string {
	i := int(math.Round(clamp01(v) * 10))
	return r.labels[i]
}
