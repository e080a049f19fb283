// Package term runs the simulation in a terminal through tcell.
package term

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/logging"
	"github.com/iburimskiy/synapse-field/internal/observability"
	"github.com/iburimskiy/synapse-field/internal/render"
	"github.com/iburimskiy/synapse-field/internal/sim"
)

// Backend is the label this driver reports to metrics and traces.
const Backend = config.BackendTerminal

// Terminals report no event when the mouse leaves, so the pointer lets go
// after this many frames without mouse input.
const pointerIdleFrames = 180

// Chime receives each frame's arrivals. *game.Chime satisfies it.
type Chime interface {
	Arrivals(frame uint64, arrivals []sim.Arrival)
	Level() float64
}

type Options struct {
	Night   bool
	Chime   Chime
	Metrics *observability.FrameCollector
	Tracer  *observability.FrameTracer
	Log     logging.Logger
}

// Runner owns an initialised screen and steps the simulation on a fixed
// ticker, reading terminal events in between.
type Runner struct {
	screen   tcell.Screen
	canvas   *Canvas
	sim      *sim.Simulation
	renderer *render.Renderer

	chime   Chime
	metrics *observability.FrameCollector
	tracer  *observability.FrameTracer
	log     logging.Logger

	night        bool
	pointer      sim.Pointer
	pointerIdle  int
	click        *sim.Point
	buttonDown   bool
	resetPending bool
}

// NewRunner takes over screen, which must already be initialised.
func NewRunner(screen tcell.Screen, s *sim.Simulation, opts Options) *Runner {
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewFrameTracer(nil, Backend)
	}
	screen.EnableMouse(tcell.MouseMotionEvents)
	screen.EnableFocus()
	screen.HideCursor()
	return &Runner{
		screen:   screen,
		canvas:   NewCanvas(screen),
		sim:      s,
		renderer: render.NewRenderer(),
		chime:    opts.Chime,
		metrics:  opts.Metrics,
		tracer:   tracer,
		log:      log.With(logging.String("backend", Backend)),
		night:    opts.Night,
	}
}

// Run blocks until Esc, q or Ctrl-C is pressed or ctx is done. The screen is
// finalised on return.
func (r *Runner) Run(ctx context.Context) error {
	done := make(chan struct{})
	events := make(chan tcell.Event, 64)
	defer func() {
		close(done)
		r.screen.Fini()
	}()
	go func() {
		for {
			ev := r.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	r.resize(ctx)
	cols, rows := r.screen.Size()
	r.log.Info(ctx, "terminal opened",
		logging.Int("cols", cols),
		logging.Int("rows", rows),
		logging.String("tier", r.sim.Profile().Tier),
	)

	ticker := time.NewTicker(config.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !r.handleEvent(ctx, ev) {
				return nil
			}
		case <-ticker.C:
			r.frame(ctx)
		}
	}
}

// handleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (r *Runner) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case 'n', 'N':
				r.night = !r.night
				r.log.Debug(ctx, "theme changed", logging.Bool("night", r.night))
			}
		}

	case *tcell.EventMouse:
		col, row := ev.Position()
		x := (float64(col) + 0.5) * config.CellWidth
		y := (float64(row) + 0.5) * config.CellHeight
		r.pointer = sim.Pointer{X: x, Y: y, Active: true}
		r.pointerIdle = 0
		down := ev.Buttons()&tcell.Button1 != 0
		if down && !r.buttonDown {
			r.click = &sim.Point{X: x, Y: y}
		}
		r.buttonDown = down

	case *tcell.EventFocus:
		if !ev.Focused {
			r.pointer.Active = false
		}

	case *tcell.EventResize:
		r.resize(ctx)
		r.screen.Sync()
	}
	return true
}

// resize follows the terminal size. Cells are scaled to virtual pixels so the
// simulation keeps its pixel-based tuning.
func (r *Runner) resize(ctx context.Context) {
	r.canvas.Sync()
	w, h := r.canvas.Size()
	if w <= 0 || h <= 0 {
		return
	}
	if r.sim.Resize(w, h) {
		p := r.sim.Profile()
		r.metrics.ObserveReset()
		r.resetPending = true
		r.log.Debug(ctx, "terminal resized",
			logging.Int("width", w),
			logging.Int("height", h),
			logging.String("tier", p.Tier),
		)
	}
}

// frame steps once with the input gathered since the last tick and draws.
func (r *Runner) frame(ctx context.Context) sim.Stats {
	if r.pointer.Active {
		r.pointerIdle++
		if r.pointerIdle > pointerIdleFrames {
			r.pointer.Active = false
		}
	}
	in := sim.Input{Pointer: r.pointer, Click: r.click}
	r.click = nil

	_, span := r.tracer.Start(ctx)
	if r.resetPending {
		p := r.sim.Profile()
		r.tracer.Reset(span, p.Tier, p.Cap)
		r.resetPending = false
	}
	start := time.Now()
	st := r.sim.Step(in)
	r.metrics.ObserveStep(Backend, st, time.Since(start))
	r.tracer.End(span, st)

	if r.chime != nil {
		r.chime.Arrivals(st.Frame, st.Arrivals)
		r.metrics.SetChimeLevel(r.chime.Level())
	}

	start = time.Now()
	r.renderer.DrawFrame(r.canvas, render.FrameOf(r.sim), render.PaletteFor(r.night))
	r.canvas.Flush()
	r.metrics.ObserveDraw(Backend, time.Since(start))
	return st
}
