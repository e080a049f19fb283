package render

import (
	"image/color"
	"math"
)

// hsvToRGB converts HSV to RGB (hue: 0-360, saturation: 0-1, value: 0-1)
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return channel(r + m), channel(g + m), channel(b + m)
}

// hsl builds a colour from hue, saturation and lightness by going through
// the equivalent HSV triple.
func hsl(h, s, l, alpha float64) color.NRGBA {
	s, l = clamp01(s), clamp01(l)
	v := l + s*math.Min(l, 1-l)
	sv := 0.0
	if v > 0 {
		sv = 2 * (1 - l/v)
	}
	r, g, b := hsvToRGB(h, sv, v)
	return color.NRGBA{R: r, G: g, B: b, A: channel(alpha)}
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = channel(alpha)
	return c
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
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
