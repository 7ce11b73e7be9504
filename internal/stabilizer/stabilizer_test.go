package stabilizer

import (
	"math"
	"testing"

	"github.com/0xlemi/notetrainer/internal/instrument"
	"github.com/0xlemi/notetrainer/internal/pitch"
)

var clarinet = instrument.Profile{
	Name:          "clarinet",
	Transposition: 2,
	Clef:          instrument.ClefTreble,
	RangeMinHz:    139,
	RangeMaxHz:    2000,
}

func newStabilizer(t *testing.T) *Stabilizer {
	t.Helper()
	s, err := New(DefaultParams())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// feed accepts one estimate per frequency at confidence 0.9 and returns the
// frames that produced a validated frequency.
func feed(s *Stabilizer, freqs ...float64) []float64 {
	var out []float64
	for _, f := range freqs {
		if v, ok := s.Accept(pitch.Estimate{Frequency: f, Confidence: 0.9}, clarinet); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestConsistentReadingsEmit(t *testing.T) {
	s := newStabilizer(t)

	if got := feed(s, 440, 440); len(got) != 0 {
		t.Fatalf("emitted %v before history was full", got)
	}
	if s.LastOutcome() != Pending {
		t.Errorf("LastOutcome = %v, want pending", s.LastOutcome())
	}

	got := feed(s, 441)
	if len(got) != 1 {
		t.Fatalf("emitted %v, want exactly one value", got)
	}
	if got[0] != 440 {
		t.Errorf("median = %v, want 440", got[0])
	}
	if s.LastOutcome() != Stable {
		t.Errorf("LastOutcome = %v, want stable", s.LastOutcome())
	}
}

func TestNoteChangeResetsHistory(t *testing.T) {
	s := newStabilizer(t)

	// 466 Hz is ~100 cents above 440 Hz, beyond the 80 cent threshold.
	if got := feed(s, 440, 440, 466); len(got) != 0 {
		t.Fatalf("emitted %v across a note change", got)
	}
	if s.History().Len() != 1 {
		t.Fatalf("history length = %d after jump, want 1", s.History().Len())
	}
	if got := feed(s, 466); len(got) != 0 {
		t.Fatalf("emitted %v with two readings", got)
	}
	got := feed(s, 466.5)
	if len(got) != 1 || math.Abs(got[0]-466) > 1e-9 {
		t.Errorf("emitted %v, want [466]", got)
	}
}

func TestOutOfRangeNeverEntersHistory(t *testing.T) {
	s := newStabilizer(t)
	feed(s, 440, 440)

	for _, conf := range []float64{0.9, 0.99, 1.0} {
		if _, ok := s.Accept(pitch.Estimate{Frequency: 50, Confidence: conf}, clarinet); ok {
			t.Fatalf("50 Hz accepted at confidence %v", conf)
		}
		if s.History().Len() != 0 {
			t.Fatalf("history length = %d after out-of-range frame", s.History().Len())
		}
	}
	if _, ok := s.Accept(pitch.Estimate{Frequency: 2500, Confidence: 1}, clarinet); ok {
		t.Fatal("2500 Hz accepted above range")
	}
}

func TestRangeBoundsAreInclusive(t *testing.T) {
	s := newStabilizer(t)
	got := feed(s, clarinet.RangeMinHz, clarinet.RangeMinHz, clarinet.RangeMinHz)
	if len(got) != 1 {
		t.Errorf("range minimum not accepted: %v", got)
	}
}

func TestLowConfidenceAndSilenceClearHistory(t *testing.T) {
	tests := []struct {
		name string
		est  pitch.Estimate
	}{
		{"silence", pitch.Estimate{}},
		{"negative frequency", pitch.Estimate{Frequency: -1, Confidence: 0.9}},
		{"low confidence", pitch.Estimate{Frequency: 440, Confidence: 0.79}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStabilizer(t)
			feed(s, 440, 440)
			if _, ok := s.Accept(tt.est, clarinet); ok {
				t.Fatal("accepted invalid estimate")
			}
			if s.History().Len() != 0 {
				t.Errorf("history length = %d, want 0", s.History().Len())
			}
			if s.LastOutcome() != Rejected {
				t.Errorf("LastOutcome = %v, want rejected", s.LastOutcome())
			}
		})
	}
}

func TestConfidenceThresholdIsInclusive(t *testing.T) {
	s := newStabilizer(t)
	for i := 0; i < 3; i++ {
		s.Accept(pitch.Estimate{Frequency: 440, Confidence: 0.80}, clarinet)
	}
	if s.LastOutcome() != Stable {
		t.Errorf("LastOutcome = %v at confidence exactly 0.80, want stable", s.LastOutcome())
	}
}

func TestOutlierWithinNoteChangeIsRejected(t *testing.T) {
	p := DefaultParams()
	p.ToleranceCents = 10
	s, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// 452 Hz is ~47 cents above 440: close enough to stay in the history,
	// too far from the median to be consistent at a 10 cent tolerance.
	if got := feed(s, 440, 440, 452); len(got) != 0 {
		t.Fatalf("emitted %v with an outlier in the history", got)
	}
	if s.LastOutcome() != Inconsistent {
		t.Errorf("LastOutcome = %v, want inconsistent", s.LastOutcome())
	}
}

func TestSlidingHistoryKeepsEmitting(t *testing.T) {
	s := newStabilizer(t)
	got := feed(s, 440, 440, 440, 441, 442)
	if len(got) != 3 {
		t.Fatalf("emitted %d values, want 3", len(got))
	}
	if s.History().Len() != s.History().Cap() {
		t.Errorf("history length = %d, want capacity %d", s.History().Len(), s.History().Cap())
	}
	if got[2] != 441 {
		t.Errorf("last median = %v, want 441", got[2])
	}
}

func TestReset(t *testing.T) {
	s := newStabilizer(t)
	feed(s, 440, 440)
	s.Reset()
	if s.History().Len() != 0 {
		t.Errorf("history length = %d after Reset", s.History().Len())
	}
	if got := feed(s, 440); len(got) != 0 {
		t.Errorf("emitted %v right after Reset", got)
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{MinConfidence: 1.5, NoteChangeCents: 80, ToleranceCents: 50, SmoothingCount: 3},
		{MinConfidence: 0.8, NoteChangeCents: 0, ToleranceCents: 50, SmoothingCount: 3},
		{MinConfidence: 0.8, NoteChangeCents: 80, ToleranceCents: -1, SmoothingCount: 3},
		{MinConfidence: 0.8, NoteChangeCents: 80, ToleranceCents: 50, SmoothingCount: 0},
	}
	for i, p := range bad {
		if _, err := New(p); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, p)
		}
	}
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(3)
	for _, f := range []float64{1, 2, 3, 4, 5} {
		h.Push(f)
		if h.Len() > h.Cap() {
			t.Fatalf("Len %d exceeds Cap %d", h.Len(), h.Cap())
		}
	}
	want := []float64{3, 4, 5}
	for i, v := range h.Values() {
		if v != want[i] {
			t.Fatalf("Values = %v, want %v", h.Values(), want)
		}
	}
}

func TestMedianAndCents(t *testing.T) {
	if got := Median([]float64{441, 440, 460}); got != 441 {
		t.Errorf("Median odd = %v, want 441", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2 {
		t.Errorf("Median even = %v, want lower middle 2", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %v", got)
	}

	if got := Cents(880, 440); math.Abs(got-1200) > 1e-9 {
		t.Errorf("Cents(880, 440) = %v, want 1200", got)
	}
	if !WithinCents(440, 440*math.Pow(2, 50.0/1200), 50.0000001) {
		t.Error("50 cents apart should be within 50 cents")
	}
	if WithinCents(440, 466.16, 80) {
		t.Error("a semitone apart should not be within 80 cents")
	}
}
