package game

import (
	"context"
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/ncruces/zenity"

	"github.com/iburimskiy/synapse-field/internal/config"
	"github.com/iburimskiy/synapse-field/internal/logging"
	"github.com/iburimskiy/synapse-field/internal/observability"
	"github.com/iburimskiy/synapse-field/internal/render"
	"github.com/iburimskiy/synapse-field/internal/sim"
)

// Backend is the label this driver reports to metrics and traces.
const Backend = config.BackendWindow

type Options struct {
	Night   bool
	Chime   *Chime // nil plays no sound
	Metrics *observability.FrameCollector
	Tracer  *observability.FrameTracer
	Log     logging.Logger
}

// Game drives a Simulation from the ebiten loop: Update steps, Draw renders,
// Layout follows the window size.
type Game struct {
	ctx      context.Context
	log      logging.Logger
	sim      *sim.Simulation
	renderer *render.Renderer
	canvas   *Canvas

	chime   *Chime
	metrics *observability.FrameCollector
	tracer  *observability.FrameTracer

	night         bool
	width, height int
	resetPending  bool

	picking bool
	picked  chan error
	lastErr error
}

// New builds a game for s. Cancelling ctx ends the run on the next update.
func New(ctx context.Context, s *sim.Simulation, opts Options) (*Game, error) {
	canvas, err := NewCanvas()
	if err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewFrameTracer(nil, Backend)
	}
	p := s.Profile()
	return &Game{
		ctx:      ctx,
		log:      log.With(logging.String("backend", Backend)),
		sim:      s,
		renderer: render.NewRenderer(),
		canvas:   canvas,
		chime:    opts.Chime,
		metrics:  opts.Metrics,
		tracer:   tracer,
		night:    opts.Night,
		width:    int(p.Width),
		height:   int(p.Height),
		picked:   make(chan error, 1),
	}, nil
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.toggleTheme()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyO) {
		g.pickSample()
	}
	g.collectPicked()

	g.step(g.input())
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	g.canvas.SetTarget(screen)
	g.renderer.DrawFrame(g.canvas, render.FrameOf(g.sim), render.PaletteFor(g.night))
	g.canvas.SetTarget(nil)

	if g.lastErr != nil {
		ebitenutil.DebugPrintAt(screen, "chime: "+g.lastErr.Error(), 12, 12)
	}
	g.metrics.ObserveDraw(Backend, time.Since(start))
}

// Layout draws at the outside size, one pixel per pixel, and resizes the
// simulation whenever it changes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth <= 0 || outsideHeight <= 0 {
		return g.width, g.height
	}
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if g.sim.Resize(outsideWidth, outsideHeight) {
			g.metrics.ObserveReset()
			g.resetPending = true
		}
	}
	return g.width, g.height
}

// input snapshots the pointer and at most one new click or tap.
func (g *Game) input() sim.Input {
	x, y := ebiten.CursorPosition()
	in := sim.Input{Pointer: sim.Pointer{
		X:      float64(x),
		Y:      float64(y),
		Active: ebiten.IsFocused() && x >= 0 && y >= 0 && x < g.width && y < g.height,
	}}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		in.Click = &sim.Point{X: float64(x), Y: float64(y)}
	}
	if in.Click == nil {
		if ids := inpututil.AppendJustPressedTouchIDs(nil); len(ids) > 0 {
			tx, ty := ebiten.TouchPosition(ids[0])
			in.Click = &sim.Point{X: float64(tx), Y: float64(ty)}
			in.Pointer = sim.Pointer{X: float64(tx), Y: float64(ty), Active: true}
		}
	}
	return in
}

// step advances one frame and feeds metrics, tracing and sound.
func (g *Game) step(in sim.Input) sim.Stats {
	_, span := g.tracer.Start(g.ctx)
	if g.resetPending {
		p := g.sim.Profile()
		g.tracer.Reset(span, p.Tier, p.Cap)
		g.resetPending = false
	}

	start := time.Now()
	st := g.sim.Step(in)
	g.metrics.ObserveStep(Backend, st, time.Since(start))
	g.tracer.End(span, st)

	if g.chime != nil {
		g.chime.Arrivals(st.Frame, st.Arrivals)
		g.metrics.SetChimeLevel(g.chime.Level())
	}
	return st
}

func (g *Game) toggleTheme() {
	g.night = !g.night
	g.log.Debug(g.ctx, "theme changed", logging.Bool("night", g.night))
}

// pickSample asks for a chime sample without blocking the frame loop.
func (g *Game) pickSample() {
	if g.chime == nil || g.picking {
		return
	}
	g.picking = true
	go func() {
		path, err := zenity.SelectFile(
			zenity.Title("Choose a chime sample"),
			zenity.FileFilters{{
				Name:     "Audio",
				Patterns: []string{"*.wav", "*.mp3", "*.flac"},
			}},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			err = nil
		}
		if err == nil && path != "" {
			err = g.chime.LoadSample(path)
		}
		g.picked <- err
	}()
}

func (g *Game) collectPicked() {
	select {
	case err := <-g.picked:
		g.picking = false
		g.lastErr = err
		if err != nil {
			g.log.Warn(g.ctx, "chime sample not loaded", logging.Err(err))
		}
	default:
	}
}

// Run opens the window and blocks until the game ends. Quitting from the
// keyboard or cancelling the game's context is not an error.
func Run(g *Game, title string) error {
	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(int(time.Second / config.FrameInterval))

	g.log.Info(g.ctx, "window opened",
		logging.Int("width", g.width),
		logging.Int("height", g.height),
		logging.String("tier", g.sim.Profile().Tier),
	)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
