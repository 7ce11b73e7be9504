package music_test

import (
	"errors"
	"testing"

	"github.com/0xlemi/notetrainer/internal/instrument"
	"github.com/0xlemi/notetrainer/internal/music"
)

var (
	concertPitch = instrument.Profile{Name: "flute", Clef: instrument.ClefTreble, RangeMinHz: 240, RangeMaxHz: 2200}
	bbClarinet   = instrument.Profile{Name: "clarinet", Transposition: 2, Clef: instrument.ClefTreble, RangeMinHz: 139, RangeMaxHz: 2000}
)

func TestMapA440(t *testing.T) {
	got := music.Map(440.0, concertPitch)
	want := music.MappedPitch{Name: "A", Octave: 4, WrittenMidi: 69, ConcertMidi: 69, CentsOff: 0}
	if got != want {
		t.Errorf("Map(440) = %+v, want %+v", got, want)
	}
	if got.HasEnharmonic() {
		t.Error("A4 should have no enharmonic")
	}
}

func TestMapTransposingInstrument(t *testing.T) {
	// Concert A#4 on a B-flat clarinet is written C5.
	got := music.Map(466.16, bbClarinet)
	if got.ConcertMidi != 70 {
		t.Errorf("ConcertMidi = %d, want 70", got.ConcertMidi)
	}
	if got.WrittenMidi != 72 || got.Name != "C" || got.Octave != 5 {
		t.Errorf("written = %s%d (%d), want C5 (72)", got.Name, got.Octave, got.WrittenMidi)
	}
	if got.HasEnharmonic() {
		t.Error("C5 should have no enharmonic")
	}
}

func TestCentsUseConcertPitch(t *testing.T) {
	// 30 cents sharp of concert A4 reads the same regardless of transposition.
	f := 440 * 1.01747 // ~ +30.0 cents
	a := music.Map(f, concertPitch)
	b := music.Map(f, bbClarinet)
	if a.CentsOff != b.CentsOff {
		t.Errorf("cents differ across transposition: %d vs %d", a.CentsOff, b.CentsOff)
	}
	if a.CentsOff < 29 || a.CentsOff > 30 {
		t.Errorf("CentsOff = %d, want ~30", a.CentsOff)
	}
}

func TestCentsRoundTrip(t *testing.T) {
	for n := 12; n <= 120; n++ {
		got := music.Map(music.FrequencyFromNoteNumber(n), concertPitch)
		if got.CentsOff != 0 {
			t.Errorf("note %d: CentsOff = %d, want 0", n, got.CentsOff)
		}
		if got.ConcertMidi != n || got.WrittenMidi != n {
			t.Errorf("note %d: mapped to concert %d written %d", n, got.ConcertMidi, got.WrittenMidi)
		}
	}
}

func TestCentsFloor(t *testing.T) {
	// Slightly flat of a note floors to -1, never rounds to 0.
	f := music.FrequencyFromNoteNumber(69) * 0.9999
	if got := music.CentsOff(f, 69); got != -1 {
		t.Errorf("CentsOff = %d, want -1", got)
	}
}

func TestEnharmonicTable(t *testing.T) {
	flats := map[int]string{1: "Db", 3: "Eb", 6: "Gb", 8: "Ab", 10: "Bb"}

	for n := 48; n < 84; n++ {
		p := music.Map(music.FrequencyFromNoteNumber(n), concertPitch)
		flat, black := flats[n%12]
		if p.HasEnharmonic() != black {
			t.Errorf("note %d (%s): HasEnharmonic = %v, want %v", n, p.Name, p.HasEnharmonic(), black)
			continue
		}
		if black {
			if p.Enharmonic.Flat != flat || p.Enharmonic.Sharp != p.Name {
				t.Errorf("note %d: enharmonic = %+v, want %s/%s", n, p.Enharmonic, p.Name, flat)
			}
		}
	}
}

func TestNoteNameAndOctave(t *testing.T) {
	tests := []struct {
		midi   int
		name   string
		octave int
	}{
		{60, "C", 4},
		{59, "B", 3},
		{0, "C", -1},
		{-1, "B", -2},
		{-13, "B", -3},
		{127, "G", 9},
	}
	for _, tt := range tests {
		if got := music.NoteName(tt.midi); got != tt.name {
			t.Errorf("NoteName(%d) = %q, want %q", tt.midi, got, tt.name)
		}
		if got := music.OctaveOf(tt.midi); got != tt.octave {
			t.Errorf("OctaveOf(%d) = %d, want %d", tt.midi, got, tt.octave)
		}
	}
}

func TestGlockenspielWritesTwoOctavesDown(t *testing.T) {
	glock := instrument.Profile{Name: "glockenspiel", Transposition: -24, Clef: instrument.ClefTreble, RangeMinHz: 760, RangeMaxHz: 4300}
	p := music.Map(music.FrequencyFromNoteNumber(84), glock) // concert C6
	if p.Name != "C" || p.Octave != 4 {
		t.Errorf("written = %s%d, want C4", p.Name, p.Octave)
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"A4", 69},
		{"C4", 60},
		{"c#5", 73},
		{"Bb4", 70},
		{"Cb4", 59},
		{"B#3", 60},
		{" E2 ", 40},
		{"A-1", 9},
	}
	for _, tt := range tests {
		got, err := music.ParseNote(tt.in)
		if err != nil {
			t.Errorf("ParseNote(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNote(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "A", "H4", "C##4", "Bbb", "do4"} {
		if _, err := music.ParseNote(bad); !errors.Is(err, music.ErrInvalidNote) {
			t.Errorf("ParseNote(%q): err = %v, want ErrInvalidNote", bad, err)
		}
	}
}

func TestMappedPitchString(t *testing.T) {
	p := music.Map(music.FrequencyFromNoteNumber(70), concertPitch)
	if got := p.String(); got != "A#4/Bb4" {
		t.Errorf("String = %q, want A#4/Bb4", got)
	}
	if got := music.Map(440, concertPitch).String(); got != "A4" {
		t.Errorf("String = %q, want A4", got)
	}
}

func TestTuning(t *testing.T) {
	for cents, want := range map[int]music.Direction{-12: music.Flat, 0: music.InTune, 7: music.Sharp} {
		if got := music.Tuning(cents); got != want {
			t.Errorf("Tuning(%d) = %v, want %v", cents, got, want)
		}
	}
	if music.Flat.String() != "flat" || music.Sharp.String() != "sharp" {
		t.Error("unexpected Direction strings")
	}
}
