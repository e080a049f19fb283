package config

import "time"

const (
	WindowWidth  = 1280
	WindowHeight = 720

	FrameInterval = time.Second / 60

	// Terminal cells are mapped to this many virtual pixels
	CellWidth  = 8
	CellHeight = 16

	// Population
	SpawnBatchSize      = 4
	SpawnIntervalFrames = 3
	MinLifeFrames       = 60 * 45
	MaxLifeFrames       = 60 * 120
	FadeInFrames        = 45
	FadeOutFrames       = 90
	MaxNeighbors        = 6

	// Connectivity
	FormationDistance = 90.0
	BreakDistance     = FormationDistance * 2

	// Motion
	BaseSpeed            = 0.25
	HeadingReturn        = 0.02
	MinDistanceFraction  = 0.10
	RepulsionForce       = 0.04
	ToleranceSpread      = 0.15
	LocalRepulsionRadius = 18.0
	LocalRepulsionForce  = 0.12
	PointerRadius        = 120.0
	PointerForce         = 0.08
	ConnectionPull       = 0.03
	PullFloor            = 0.85
	JitterChance         = 0.02
	JitterForce          = 0.06
	Damping              = 0.96
	MaxSpeed             = 1.2
	BounceDamping        = 0.5

	// Signals
	PulsePixelsPerFrame = 2.0
	MaxChainDepth       = 3
	MaxPulsesPerNode    = 2
	MaxLivePulses       = 400
	ValueStep           = 0.1
	IlluminationDecay   = 0.03
	GlowDecay           = 0.03

	// Visuals
	GlyphBaseSize = 9.0
	BreathRate    = 0.035
)

// Tier is a population level picked from the drawing surface area.
type Tier struct {
	Name    string
	MaxArea int // exclusive upper bound in px², 0 means unbounded
	Cap     int
}

// Tiers are ordered from the smallest surface up.
var Tiers = []Tier{
	{Name: "compact", MaxArea: 480_000, Cap: 90},
	{Name: "medium", MaxArea: 1_200_000, Cap: 160},
	{Name: "large", MaxArea: 2_400_000, Cap: 250},
	{Name: "huge", Cap: 300},
}

// Profile holds every parameter that depends on the surface size. It is
// computed once per resize and read by the whole frame pipeline.
type Profile struct {
	Width, Height float64
	Tier          string
	Cap           int
	MinDistance   float64
	LocalRadius   float64
	PointerRadius float64
}

// ProfileFor derives the profile for a surface of w×h pixels.
func ProfileFor(w, h int) Profile {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	area := w * h
	tier := Tiers[len(Tiers)-1]
	for _, t := range Tiers {
		if t.MaxArea == 0 || area < t.MaxArea {
			tier = t
			break
		}
	}

	// Radii shrink a little on small surfaces so forces keep their feel.
	scale := 1.0
	if tier.Name == "compact" {
		scale = 0.75
	}

	return Profile{
		Width:         float64(w),
		Height:        float64(h),
		Tier:          tier.Name,
		Cap:           tier.Cap,
		MinDistance:   MinDistanceFraction * float64(h),
		LocalRadius:   LocalRepulsionRadius * scale,
		PointerRadius: PointerRadius * scale,
	}
}
