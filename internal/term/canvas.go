package term

import (
	"image/color"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/iburimskiy/synapse-field/internal/config"
)

// Thin strokes cover a small part of a cell, so they are weighted up to
// stay visible on a coarse grid.
const lineGain = 2.5

type rgb struct{ r, g, b float64 }

func rgbOf(c color.NRGBA) rgb {
	return rgb{float64(c.R), float64(c.G), float64(c.B)}
}

func (c rgb) over(src color.NRGBA, alpha float64) rgb {
	a := math.Max(0, math.Min(1, alpha*float64(src.A)/255))
	s := rgbOf(src)
	return rgb{
		r: c.r + (s.r-c.r)*a,
		g: c.g + (s.g-c.g)*a,
		b: c.b + (s.b-c.b)*a,
	}
}

func (c rgb) color() tcell.Color {
	return tcell.NewRGBColor(int32(math.Round(c.r)), int32(math.Round(c.g)), int32(math.Round(c.b)))
}

type cell struct {
	bg, fg rgb
	ch     rune
}

// Canvas rasterises render calls onto a terminal grid. Each cell stands for
// CellWidth×CellHeight virtual pixels; colours are blended in the canvas and
// written to the screen by Flush.
type Canvas struct {
	screen     tcell.Screen
	cols, rows int
	cells      []cell
}

func NewCanvas(screen tcell.Screen) *Canvas {
	c := &Canvas{screen: screen}
	c.Sync()
	return c
}

// Sync picks up the screen's current size. It reports whether it changed.
func (c *Canvas) Sync() bool {
	cols, rows := c.screen.Size()
	if cols < 0 {
		cols = 0
	}
	if rows < 0 {
		rows = 0
	}
	if cols == c.cols && rows == c.rows && c.cells != nil {
		return false
	}
	c.cols, c.rows = cols, rows
	c.cells = make([]cell, cols*rows)
	return true
}

func (c *Canvas) Size() (int, int) {
	return c.cols * config.CellWidth, c.rows * config.CellHeight
}

func (c *Canvas) Fill(col color.NRGBA) {
	bg := rgbOf(col)
	for i := range c.cells {
		c.cells[i] = cell{bg: bg, fg: bg, ch: ' '}
	}
}

// Line walks the cells between both ends and marks each with a stroke rune
// matching the slope.
func (c *Canvas) Line(x0, y0, x1, y1, width float64, col color.NRGBA) {
	cx0, cy0 := toCell(x0, y0)
	cx1, cy1 := toCell(x1, y1)
	ch := strokeRune(cx1-cx0, cy1-cy0)
	alpha := math.Min(1, lineGain*math.Max(width, 1)/4)

	dx, dy := abs(cx1-cx0), -abs(cy1-cy0)
	sx, sy := sign(cx1-cx0), sign(cy1-cy0)
	e := dx + dy
	x, y := cx0, cy0
	for {
		if p := c.at(x, y); p != nil {
			p.fg = p.bg.over(col, alpha)
			p.ch = ch
		}
		if x == cx1 && y == cy1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// Dot marks one cell for small radii. Larger dots tint the background of
// every cell whose centre falls inside the circle.
func (c *Canvas) Dot(x, y, r float64, col color.NRGBA) {
	cx, cy := toCell(x, y)
	if r < config.CellWidth/2 {
		if p := c.at(cx, cy); p != nil {
			p.fg = p.bg.over(col, 1)
			p.ch = '•'
		}
		return
	}
	rx := int(math.Ceil(r / config.CellWidth))
	ry := int(math.Ceil(r / config.CellHeight))
	for j := cy - ry; j <= cy+ry; j++ {
		for i := cx - rx; i <= cx+rx; i++ {
			p := c.at(i, j)
			if p == nil {
				continue
			}
			mx := (float64(i) + 0.5) * config.CellWidth
			my := (float64(j) + 0.5) * config.CellHeight
			if (i == cx && j == cy) || math.Hypot(mx-x, my-y) <= r {
				p.bg = p.bg.over(col, 1)
				if p.ch == ' ' {
					p.fg = p.bg
				}
			}
		}
	}
}

// Glyph centres s on the cell under (x, y). The size is ignored; the
// terminal has one font size.
func (c *Canvas) Glyph(x, y, _ float64, s string, col color.NRGBA) {
	runes := []rune(s)
	cx, cy := toCell(x, y)
	start := cx - (len(runes)-1)/2
	for i, r := range runes {
		if p := c.at(start+i, cy); p != nil {
			p.fg = p.bg.over(col, 1)
			p.ch = r
		}
	}
}

// Flush writes every cell to the screen and shows it.
func (c *Canvas) Flush() {
	for y := 0; y < c.rows; y++ {
		for x := 0; x < c.cols; x++ {
			p := c.cells[y*c.cols+x]
			ch := p.ch
			if ch == 0 {
				ch = ' '
			}
			style := tcell.StyleDefault.Background(p.bg.color()).Foreground(p.fg.color())
			c.screen.SetContent(x, y, ch, nil, style)
		}
	}
	c.screen.Show()
}

func (c *Canvas) at(x, y int) *cell {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return nil
	}
	return &c.cells[y*c.cols+x]
}

func toCell(x, y float64) (int, int) {
	return int(math.Floor(x / config.CellWidth)), int(math.Floor(y / config.CellHeight))
}

// strokeRune picks a rune for a line spanning dx×dy cells. Rows grow
// downwards, so a falling line is a backslash.
func strokeRune(dx, dy int) rune {
	ax, ay := abs(dx), abs(dy)
	switch {
	case ax >= 2*ay:
		return '-'
	case ay >= 2*ax:
		return '|'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
