package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"github.com/iburimskiy/synapse-field/internal/logging"
	"github.com/iburimskiy/synapse-field/internal/sim"
)

const (
	chimeRate       beep.SampleRate = 44100
	chimeTapSize                    = 4096
	chimeToneLength                 = 350 * time.Millisecond
	chimeMaxSample                  = 2 * time.Second
	chimeBaseGain                   = 0.18
	chimeMaxVoices                  = 6

	// Arrivals closer together than this many frames share one voice.
	chimeMinGapFrames = 6
)

// Pentatonic steps above middle C, so any mix of chimes stays consonant.
var pentatonic = [...]float64{0, 2, 4, 7, 9}

// ErrUnsupportedSample is returned for sample files that are not wav, mp3
// or flac.
var ErrUnsupportedSample = errors.New("unsupported sample type")

// Chime turns pulse arrivals into short notes mixed onto the speaker. It is
// safe to feed from the frame loop while the speaker streams.
type Chime struct {
	log    logging.Logger
	mixer  *beep.Mixer
	tap    *levelTap
	sample *beep.Buffer

	mu        sync.Mutex
	started   bool
	lastFrame uint64
	played    bool
}

func NewChime(log logging.Logger) *Chime {
	if log == nil {
		log = logging.Noop()
	}
	mixer := &beep.Mixer{}
	return &Chime{
		log:   log,
		mixer: mixer,
		tap:   newLevelTap(mixer, chimeTapSize),
	}
}

// Start opens the speaker and begins streaming the mixer.
func (c *Chime) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if err := speaker.Init(chimeRate, chimeRate.N(time.Second/20)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(c.tap)
	c.started = true
	return nil
}

// LoadSample replaces the built-in tone with the first seconds of a wav, mp3
// or flac file.
func (c *Chime) LoadSample(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSample, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = beep.Take(format.SampleRate.N(chimeMaxSample), streamer)
	if format.SampleRate != chimeRate {
		src = beep.Resample(4, format.SampleRate, chimeRate, src)
	}
	buf := beep.NewBuffer(beep.Format{SampleRate: chimeRate, NumChannels: 2, Precision: 2})
	buf.Append(src)
	if buf.Len() == 0 {
		return fmt.Errorf("decode %s: no audio", path)
	}

	c.lock()
	c.sample = buf
	c.unlock()

	c.log.Info(context.Background(), "chime sample loaded",
		logging.String("path", path),
		logging.Int("source_rate", int(format.SampleRate)),
		logging.Float("seconds", chimeRate.D(buf.Len()).Seconds()),
	)
	return nil
}

// Arrivals plays at most one voice for the frame's arrivals. The shallowest
// arrival leads: its value picks the pitch and its depth the volume.
func (c *Chime) Arrivals(frame uint64, arrivals []sim.Arrival) {
	if len(arrivals) == 0 {
		return
	}

	c.lock()
	defer c.unlock()

	if c.played && frame-c.lastFrame < chimeMinGapFrames {
		return
	}
	if c.mixer.Len() >= chimeMaxVoices {
		return
	}

	lead := arrivals[0]
	for _, a := range arrivals[1:] {
		if a.Depth < lead.Depth {
			lead = a
		}
	}
	gain := chimeBaseGain / float64(1+lead.Depth)

	if c.sample != nil {
		ratio := noteFrequency(lead.Value) / noteFrequency(0)
		voice := beep.Resample(3, chimeRate, beep.SampleRate(float64(chimeRate)/ratio), c.sample.Streamer(0, c.sample.Len()))
		c.mixer.Add(&effects.Gain{Streamer: voice, Gain: gain - 1})
	} else {
		c.mixer.Add(tone(chimeRate, noteFrequency(lead.Value), chimeToneLength, gain))
	}
	c.played = true
	c.lastFrame = frame
}

// Level is the RMS of the most recent output.
func (c *Chime) Level() float64 { return c.tap.level() }

// Close stops playback and releases the audio device.
func (c *Chime) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	speaker.Clear()
	speaker.Close()
	c.started = false
}

// lock guards the mixer against the speaker goroutine once it is running.
func (c *Chime) lock() {
	c.mu.Lock()
	if c.started {
		speaker.Lock()
	}
}

func (c *Chime) unlock() {
	if c.started {
		speaker.Unlock()
	}
	c.mu.Unlock()
}

// noteFrequency maps a value in [0,1] to one of eleven pentatonic notes.
func noteFrequency(v float64) float64 {
	i := int(math.Round(math.Max(0, math.Min(1, v)) * 10))
	semis := pentatonic[i%len(pentatonic)] + 12*float64(i/len(pentatonic))
	return 261.63 * math.Pow(2, semis/12)
}

// tone is a sine with a short attack and an exponential tail.
func tone(rate beep.SampleRate, freq float64, d time.Duration, gain float64) beep.Streamer {
	n := rate.N(d)
	attack := float64(rate.N(5 * time.Millisecond))
	step := 2 * math.Pi * freq / float64(rate)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= n {
			return 0, false
		}
		k := 0
		for ; k < len(samples) && pos < n; k++ {
			env := math.Min(1, float64(pos)/attack) * math.Exp(-5*float64(pos)/float64(n))
			v := gain * env * math.Sin(step*float64(pos))
			samples[k] = [2]float64{v, v}
			pos++
		}
		return k, true
	})
}
