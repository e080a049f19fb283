package game

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/gomono"
)

// Glyph sizes are rounded to this step so breathing does not create a new
// face, and a new glyph cache, every frame.
const faceStep = 0.5

// Canvas draws render calls onto an ebiten image. The target is swapped in
// for each Draw call; without one the canvas reports a zero size.
type Canvas struct {
	dst    *ebiten.Image
	source *text.GoTextFaceSource
	faces  map[int]*text.GoTextFace
}

func NewCanvas() (*Canvas, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("load glyph font: %w", err)
	}
	return &Canvas{source: src, faces: make(map[int]*text.GoTextFace)}, nil
}

func (c *Canvas) SetTarget(dst *ebiten.Image) { c.dst = dst }

func (c *Canvas) Size() (int, int) {
	if c.dst == nil {
		return 0, 0
	}
	b := c.dst.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) Fill(col color.NRGBA) { c.dst.Fill(col) }

func (c *Canvas) Line(x0, y0, x1, y1, width float64, col color.NRGBA) {
	vector.StrokeLine(c.dst, float32(x0), float32(y0), float32(x1), float32(y1), float32(width), col, true)
}

func (c *Canvas) Dot(x, y, r float64, col color.NRGBA) {
	vector.DrawFilledCircle(c.dst, float32(x), float32(y), float32(r), col, true)
}

func (c *Canvas) Glyph(x, y, size float64, s string, col color.NRGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(col)
	op.PrimaryAlign = text.AlignCenter
	op.SecondaryAlign = text.AlignCenter
	text.Draw(c.dst, s, c.face(size), op)
}

func (c *Canvas) face(size float64) *text.GoTextFace {
	key := faceKey(size)
	if f, ok := c.faces[key]; ok {
		return f
	}
	f := &text.GoTextFace{Source: c.source, Size: float64(key) * faceStep}
	c.faces[key] = f
	return f
}

func faceKey(size float64) int {
	k := int(math.Round(size / faceStep))
	if k < 1 {
		k = 1
	}
	return k
}
