package session

import (
	"fmt"

	"github.com/0xlemi/notetrainer/internal/music"
)

// Result is what the session reports after a detection cycle.
type Result struct {
	// Valid is false when no stable pitch was detected this cycle.
	Valid bool

	// Pitch is the written note for the selected instrument. Zero when !Valid.
	Pitch music.MappedPitch

	// Frequency is the stabilized concert frequency in Hz.
	Frequency float64

	// Confidence is the estimator's clarity for the current frame.
	Confidence float64

	// Cents is the detune of Frequency from the nearest concert semitone.
	Cents int

	Instrument string

	// Target is the written MIDI note the performer is asked to play; only
	// meaningful when HasTarget is set.
	Target    int
	HasTarget bool

	// Matched is true when a valid pitch lands on the target.
	Matched bool
}

// sameAs reports whether r and o would look the same to a display. Frequency
// and confidence jitter is ignored.
func (r Result) sameAs(o Result) bool {
	return r.Valid == o.Valid &&
		r.Pitch == o.Pitch &&
		r.Matched == o.Matched &&
		r.Target == o.Target &&
		r.HasTarget == o.HasTarget &&
		r.Instrument == o.Instrument
}

func (r Result) String() string {
	if !r.Valid {
		return "-"
	}
	s := fmt.Sprintf("%s %.2f Hz %+d cents", r.Pitch, r.Frequency, r.Cents)
	if r.Matched {
		s += " (matched)"
	}
	return s
}

// Display receives results from a session.
type Display interface {
	Show(Result)
}

// DisplayFunc adapts a function to [Display].
type DisplayFunc func(Result)

// Show calls f(r).
func (f DisplayFunc) Show(r Result) { f(r) }

// MultiDisplay fans a result out to several displays in order.
type MultiDisplay []Display

// Show delivers r to every display.
func (m MultiDisplay) Show(r Result) {
	for _, d := range m {
		if d != nil {
			d.Show(r)
		}
	}
}
