package sandbox

import (
	"errors"
	"math"
	"time"

	"github.com/linechime/backend/internal/music"
)

var ErrNothingRecorded = errors.New("nothing recorded")

// Recorder captures struck notes while armed. Arming clears the buffer;
// disarming keeps it for export.
type Recorder struct {
	armed  bool
	start  time.Duration
	buffer music.Melody
}

// Toggle arms or disarms the recorder and reports the new state.
func (r *Recorder) Toggle(now time.Duration) bool {
	if r.armed {
		r.armed = false
		return false
	}
	r.armed = true
	r.start = now
	r.buffer = nil
	return true
}

func (r *Recorder) Armed() bool {
	return r.armed
}

// Record appends the note nearest to freq, timed from the arm point in
// whole milliseconds. It does nothing while disarmed.
func (r *Recorder) Record(freq float64, now time.Duration) {
	if !r.armed {
		return
	}
	elapsed := math.Round(float64(now-r.start) / float64(time.Millisecond))
	r.buffer = append(r.buffer, music.Event{Note: music.NearestNote(freq), Time: elapsed})
}

func (r *Recorder) Len() int {
	return len(r.buffer)
}

// Melody returns a copy of the buffer.
func (r *Recorder) Melody() music.Melody {
	return r.buffer.Clone()
}

// Export renders the buffer as melody text.
func (r *Recorder) Export() (string, error) {
	if len(r.buffer) == 0 {
		return "", ErrNothingRecorded
	}
	return r.buffer.Encode()
}
