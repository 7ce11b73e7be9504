// Package stabilizer turns the noisy frame-by-frame output of a pitch
// estimator into a stable note decision.
//
// Every estimate passes three gates (confidence, instrument range, note
// change) before it enters a short history. Once the history is full its
// median is reported, but only while all entries agree with that median to
// within a tolerance.
package stabilizer

import (
	"fmt"
	"math"
	"slices"

	"github.com/0xlemi/notetrainer/internal/instrument"
	"github.com/0xlemi/notetrainer/internal/pitch"
	"gonum.org/v1/gonum/stat"
)

// Params are the empirically tuned thresholds of the stabilizer.
type Params struct {
	// MinConfidence is the lowest estimator confidence accepted.
	MinConfidence float64

	// NoteChangeCents is the distance from the history mean beyond which a
	// new frequency is treated as a new note and the history restarts.
	NoteChangeCents float64

	// ToleranceCents bounds how far history entries may stray from their
	// median for the reading to count as consistent.
	ToleranceCents float64

	// SmoothingCount is the history capacity.
	SmoothingCount int
}

// DefaultParams returns the defaults.
func DefaultParams() Params {
	return Params{
		MinConfidence:   0.80,
		NoteChangeCents: 80,
		ToleranceCents:  50,
		SmoothingCount:  3,
	}
}

// Validate reports parameters the stabilizer cannot work with.
func (p Params) Validate() error {
	switch {
	case p.MinConfidence < 0 || p.MinConfidence > 1:
		return fmt.Errorf("stabilizer: min confidence %.2f is outside [0, 1]", p.MinConfidence)
	case p.NoteChangeCents <= 0:
		return fmt.Errorf("stabilizer: note change threshold %.1f must be positive", p.NoteChangeCents)
	case p.ToleranceCents <= 0:
		return fmt.Errorf("stabilizer: tolerance %.1f must be positive", p.ToleranceCents)
	case p.SmoothingCount < 1:
		return fmt.Errorf("stabilizer: smoothing count %d must be at least 1", p.SmoothingCount)
	}
	return nil
}

// Outcome tells why Accept did or did not produce a frequency.
type Outcome int

const (
	// Rejected means the estimate failed the confidence or range gate.
	Rejected Outcome = iota

	// Pending means the estimate was accepted but the history is not full yet.
	Pending

	// Inconsistent means the history is full but its entries disagree.
	Inconsistent

	// Stable means a validated frequency was produced.
	Stable
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Pending:
		return "pending"
	case Inconsistent:
		return "inconsistent"
	case Stable:
		return "stable"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Stabilizer owns the pitch history of one listening session. It is not safe
// for concurrent use.
type Stabilizer struct {
	params  Params
	history *History
	last    Outcome
}

// New creates a stabilizer with an empty history.
func New(p Params) (*Stabilizer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Stabilizer{
		params:  p,
		history: NewHistory(p.SmoothingCount),
	}, nil
}

// Accept feeds one estimate and returns the validated frequency, if any.
func (s *Stabilizer) Accept(est pitch.Estimate, profile instrument.Profile) (float64, bool) {
	f, outcome := s.accept(est, profile)
	s.last = outcome
	return f, outcome == Stable
}

func (s *Stabilizer) accept(est pitch.Estimate, profile instrument.Profile) (float64, Outcome) {
	if est.Frequency <= 0 || est.Confidence < s.params.MinConfidence {
		s.history.Clear()
		return 0, Rejected
	}

	// Outside the playable range: octave error or noise.
	if !profile.InRange(est.Frequency) {
		s.history.Clear()
		return 0, Rejected
	}

	if s.history.Len() > 0 {
		mean := stat.Mean(s.history.Values(), nil)
		if !WithinCents(est.Frequency, mean, s.params.NoteChangeCents) {
			s.history.Clear()
		}
	}

	s.history.Push(est.Frequency)
	if !s.history.Full() {
		return 0, Pending
	}

	values := s.history.Values()
	median := Median(values)
	for _, v := range values {
		if !WithinCents(v, median, s.params.ToleranceCents) {
			return 0, Inconsistent
		}
	}
	return median, Stable
}

// LastOutcome returns the outcome of the most recent Accept call.
func (s *Stabilizer) LastOutcome() Outcome {
	return s.last
}

// Reset clears the history.
func (s *Stabilizer) Reset() {
	s.history.Clear()
	s.last = Rejected
}

// History exposes the current history for inspection.
func (s *Stabilizer) History() *History {
	return s.history
}

// Cents returns the signed distance from f2 to f1 in cents.
func Cents(f1, f2 float64) float64 {
	return 1200 * math.Log2(f1/f2)
}

// WithinCents reports whether f1 and f2 are at most cents apart.
func WithinCents(f1, f2, cents float64) bool {
	return math.Abs(Cents(f1, f2)) <= cents
}

// Median returns the median of values, taking the lower middle element for
// an even count. values is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
