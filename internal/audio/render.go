package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
	"github.com/linechime/backend/internal/music"
)

// Render lays every event of m onto one timeline and mixes the tones.
// It returns the mixed stream and its length in samples.
func Render(m music.Melody, v Voice, rate beep.SampleRate) (beep.Streamer, int, error) {
	if len(m) == 0 {
		return nil, 0, music.ErrInvalidMelody
	}
	if err := m.CheckBounds(); err != nil {
		return nil, 0, err
	}

	tail := rate.N(v.Length())
	total := 0
	streams := make([]beep.Streamer, 0, len(m)+1)
	for i, ev := range m {
		freq, err := music.FrequencyOf(ev.Note)
		if err != nil {
			return nil, 0, fmt.Errorf("event %d: %w", i, err)
		}
		offset := rate.N(time.Duration(ev.Time * float64(time.Millisecond)))
		streams = append(streams, beep.Seq(beep.Silence(offset), NewTone(freq, v, rate)))
		if end := offset + tail; end > total {
			total = end
		}
	}
	// Silence keeps the mix alive between sparse notes.
	streams = append(streams, beep.Silence(total))

	mixed := &effects.Volume{
		Streamer: beep.Mix(streams...),
		Base:     2,
		Volume:   -1.5,
	}
	return beep.Take(total, mixed), total, nil
}

// EncodeWAV renders m as 16-bit stereo WAV into w.
func EncodeWAV(w io.WriteSeeker, m music.Melody, v Voice, rate beep.SampleRate) error {
	s, _, err := Render(m, v, rate)
	if err != nil {
		return err
	}
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	return wav.Encode(w, s, format)
}

// WriteTempWAV renders m to a temporary file and returns its path. The
// caller removes the file.
func WriteTempWAV(m music.Melody, v Voice, rate beep.SampleRate) (string, error) {
	f, err := os.CreateTemp("", "melody-*.wav")
	if err != nil {
		return "", err
	}
	if err := EncodeWAV(f, m, v, rate); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
