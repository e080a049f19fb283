package render

import "image/color"

// Palette is a named colour scheme. Switching palettes takes effect on the
// next frame with no transition.
type Palette struct {
	Name       string
	Background color.NRGBA

	EdgeHue, EdgeLight, EdgeAlpha float64
	GlowHue, GlowLight, GlowAlpha float64
	PulseLight, PulseAlpha        float64

	// Glyph lightness is GlyphLight plus GlyphLift scaled by illumination.
	GlyphLight, GlyphLift float64
}

var Night = Palette{
	Name:       "night",
	Background: color.NRGBA{R: 7, G: 9, B: 18, A: 255},
	EdgeHue:    220,
	EdgeLight:  0.80,
	EdgeAlpha:  0.14,
	GlowHue:    180,
	GlowLight:  0.90,
	GlowAlpha:  0.35,
	PulseLight: 0.90,
	PulseAlpha: 0.55,
	GlyphLight: 0.70,
	GlyphLift:  0.15,
}

var Day = Palette{
	Name:       "day",
	Background: color.NRGBA{R: 243, G: 245, B: 250, A: 255},
	EdgeHue:    220,
	EdgeLight:  0.35,
	EdgeAlpha:  0.20,
	GlowHue:    190,
	GlowLight:  0.40,
	GlowAlpha:  0.45,
	PulseLight: 0.35,
	PulseAlpha: 0.65,
	GlyphLight: 0.42,
	GlyphLift:  -0.12,
}

func PaletteFor(night bool) Palette {
	if night {
		return Night
	}
	return Day
}
