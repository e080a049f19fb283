package game

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"

	"github.com/iburimskiy/synapse-field/internal/sim"
)

// drain pulls n samples through the chime's output chain the way the
// speaker would.
func drain(c *Chime, n int) (peak float64) {
	buf := make([][2]float64, 512)
	for n > 0 {
		k := len(buf)
		if n < k {
			k = n
		}
		c.tap.Stream(buf[:k])
		for _, s := range buf[:k] {
			peak = math.Max(peak, math.Abs(s[0]))
		}
		n -= k
	}
	return peak
}

func TestChimePlaysOnArrival(t *testing.T) {
	c := NewChime(nil)
	if peak := drain(c, 1024); peak != 0 {
		t.Fatalf("idle chime should be silent, peak %v", peak)
	}

	c.Arrivals(10, []sim.Arrival{{ID: 1, Value: 0.5}})
	if c.mixer.Len() != 1 {
		t.Fatalf("voices = %d, want 1", c.mixer.Len())
	}
	peak := drain(c, chimeRate.N(50*time.Millisecond))
	if peak <= 0 || peak > chimeBaseGain+1e-9 {
		t.Fatalf("peak = %v, want in (0, %v]", peak, chimeBaseGain)
	}
	if c.Level() <= 0 {
		t.Fatalf("level should be positive while a voice plays")
	}

	drain(c, chimeRate.N(chimeToneLength)+1024)
	if c.mixer.Len() != 0 {
		t.Fatalf("finished voice still in mixer")
	}
}

func TestChimeRateLimited(t *testing.T) {
	c := NewChime(nil)
	many := []sim.Arrival{{ID: 1}, {ID: 2}, {ID: 3}}

	c.Arrivals(100, many)
	c.Arrivals(101, many)
	c.Arrivals(100+chimeMinGapFrames-1, many)
	if c.mixer.Len() != 1 {
		t.Fatalf("voices = %d, want 1 inside the gap", c.mixer.Len())
	}
	c.Arrivals(100+chimeMinGapFrames, many)
	if c.mixer.Len() != 2 {
		t.Fatalf("voices = %d, want 2 after the gap", c.mixer.Len())
	}

	c.Arrivals(1000, nil)
	if c.mixer.Len() != 2 {
		t.Fatalf("empty arrivals should not add a voice")
	}
}

func TestChimeVoiceCap(t *testing.T) {
	c := NewChime(nil)
	for i := 0; i < chimeMaxVoices+4; i++ {
		c.Arrivals(uint64(i*chimeMinGapFrames), []sim.Arrival{{ID: i}})
	}
	if c.mixer.Len() != chimeMaxVoices {
		t.Fatalf("voices = %d, want cap %d", c.mixer.Len(), chimeMaxVoices)
	}
}

func TestDeeperArrivalsAreQuieter(t *testing.T) {
	shallow := NewChime(nil)
	shallow.Arrivals(1, []sim.Arrival{{Value: 0.3, Depth: 0}})
	deep := NewChime(nil)
	deep.Arrivals(1, []sim.Arrival{{Value: 0.3, Depth: 3}})

	n := chimeRate.N(50 * time.Millisecond)
	if a, b := drain(shallow, n), drain(deep, n); b >= a {
		t.Fatalf("depth 3 peak %v should be below depth 0 peak %v", b, a)
	}
}

func TestNoteFrequency(t *testing.T) {
	if f := noteFrequency(0); math.Abs(f-261.63) > 1e-9 {
		t.Fatalf("noteFrequency(0) = %v", f)
	}
	prev := 0.0
	for i := 0; i <= 10; i++ {
		f := noteFrequency(float64(i) / 10)
		if f <= prev {
			t.Fatalf("pitch not rising at step %d: %v <= %v", i, f, prev)
		}
		prev = f
	}
	if noteFrequency(-1) != noteFrequency(0) || noteFrequency(2) != noteFrequency(1) {
		t.Fatalf("out-of-range values should clamp")
	}
}

func writeTestWAV(t *testing.T, rate beep.SampleRate, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, tone(rate, 440, d, 0.5), format); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestLoadSampleResamples(t *testing.T) {
	path := writeTestWAV(t, 22050, 200*time.Millisecond)
	c := NewChime(nil)
	if err := c.LoadSample(path); err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	want := chimeRate.N(200 * time.Millisecond)
	if got := c.sample.Len(); math.Abs(float64(got-want)) > float64(want)/20 {
		t.Fatalf("sample length %d, want about %d at %d Hz", got, want, chimeRate)
	}

	c.Arrivals(1, []sim.Arrival{{Value: 0.4}})
	if peak := drain(c, chimeRate.N(100*time.Millisecond)); peak <= 0 {
		t.Fatalf("sample voice produced silence")
	}
}

func TestLoadSampleErrors(t *testing.T) {
	c := NewChime(nil)
	if err := c.LoadSample(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatalf("missing file should fail")
	}

	odd := filepath.Join(t.TempDir(), "notes.ogg")
	if err := os.WriteFile(odd, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadSample(odd); !errors.Is(err, ErrUnsupportedSample) {
		t.Fatalf("err = %v, want ErrUnsupportedSample", err)
	}

	junk := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(junk, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadSample(junk); err == nil {
		t.Fatalf("junk wav should fail to decode")
	}
	if c.sample != nil {
		t.Fatalf("failed loads must keep the built-in tone")
	}
}
