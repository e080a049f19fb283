package game

import (
	"math"
	"sync"

	"github.com/faiface/beep"
)

// levelTap passes the mixer through to the speaker and meters what it
// played. It keeps the squared mono energy of the last window samples and a
// running sum, so level is O(1) from the frame loop.
type levelTap struct {
	src beep.Streamer

	mu     sync.Mutex
	energy []float64
	pos    int
	sum    float64
}

func newLevelTap(src beep.Streamer, window int) *levelTap {
	return &levelTap{src: src, energy: make([]float64, window)}
}

func (t *levelTap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.src.Stream(samples)
	if n == 0 {
		return n, ok
	}
	t.mu.Lock()
	for _, s := range samples[:n] {
		mono := (s[0] + s[1]) / 2
		e := mono * mono
		t.sum += e - t.energy[t.pos]
		t.energy[t.pos] = e
		t.pos = (t.pos + 1) % len(t.energy)
	}
	t.mu.Unlock()
	return n, ok
}

func (t *levelTap) Err() error { return t.src.Err() }

// level is the RMS over the window. Silence fills the window at start.
func (t *levelTap) level() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Float drift can leave a tiny negative sum after long silence.
	return math.Sqrt(math.Max(0, t.sum) / float64(len(t.energy)))
}
