package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
)

// DefaultSampleRate is used when AUDIO_SAMPLE_RATE is unset.
const DefaultSampleRate = beep.SampleRate(44100)

// Voice is the synth patch played for every strike: a sine wave shaped by an
// attack/decay/sustain/release envelope. Duration is the held part of the
// note, Release runs after it.
type Voice struct {
	Duration time.Duration
	Attack   time.Duration
	Decay    time.Duration
	Sustain  float64
	Release  time.Duration
}

// DefaultVoice is an eighth note at 120 bpm.
var DefaultVoice = Voice{
	Duration: 250 * time.Millisecond,
	Attack:   10 * time.Millisecond,
	Decay:    300 * time.Millisecond,
	Sustain:  0.1,
	Release:  500 * time.Millisecond,
}

// Length is how long a single tone sounds including its release tail.
func (v Voice) Length() time.Duration {
	return v.Duration + v.Release
}

// sine generates a sine wave at freq for a fixed number of samples.
type sine struct {
	freq     float64
	phase    float64
	rate     beep.SampleRate
	total    int
	position int
}

func (s *sine) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.total {
			return i, i > 0
		}
		val := math.Sin(2 * math.Pi * s.phase)
		samples[i][0] = val
		samples[i][1] = val

		s.phase += s.freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.position++
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }

// adsr scales a stream by an attack/decay/sustain/release curve.
type adsr struct {
	streamer beep.Streamer
	position int
	attack   int
	decay    int
	hold     int // samples before release begins
	release  int
	sustain  float64
}

func (e *adsr) level(pos int) float64 {
	switch {
	case pos < e.attack:
		return float64(pos) / float64(e.attack)
	case pos < e.hold:
		since := pos - e.attack
		if since < e.decay {
			// exponential-ish fall towards the sustain level
			t := float64(since) / float64(e.decay)
			return e.sustain + (1-e.sustain)*math.Pow(1-t, 3)
		}
		return e.sustain
	default:
		start := e.levelAtHold()
		if e.release <= 0 {
			return 0
		}
		left := 1 - float64(pos-e.hold)/float64(e.release)
		if left < 0 {
			left = 0
		}
		return start * left
	}
}

func (e *adsr) levelAtHold() float64 {
	if e.hold <= 0 {
		return 0
	}
	return e.level(e.hold - 1)
}

func (e *adsr) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := e.level(e.position)
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *adsr) Err() error { return e.streamer.Err() }

// NewTone returns a streamer playing freq with the voice's envelope.
func NewTone(freq float64, v Voice, rate beep.SampleRate) beep.Streamer {
	total := rate.N(v.Length())
	return &adsr{
		streamer: &sine{freq: freq, rate: rate, total: total},
		attack:   rate.N(v.Attack),
		decay:    rate.N(v.Decay),
		hold:     rate.N(v.Duration),
		release:  rate.N(v.Release),
		sustain:  v.Sustain,
	}
}
