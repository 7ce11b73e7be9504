// Package music maps detected frequencies onto equal-tempered note names for
// transposing instruments.
package music

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/0xlemi/notetrainer/internal/instrument"
)

// ErrInvalidNote is returned by ParseNote for text that is not a note name.
var ErrInvalidNote = errors.New("invalid note name")

// All note names in chromatic order
var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Flat spellings of the black keys
var enharmonicMap = map[string]string{
	"C#": "Db",
	"D#": "Eb",
	"F#": "Gb",
	"G#": "Ab",
	"A#": "Bb",
}

// Semitone offsets of the natural notes above C
var naturalSemitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// Enharmonic pairs the sharp and flat spelling of a black key. The zero value
// means the note has no enharmonic spelling.
type Enharmonic struct {
	Sharp string
	Flat  string
}

// MappedPitch is a frequency expressed as a written note for one instrument.
type MappedPitch struct {
	Name        string // written name, sharps only, e.g. "C#"
	Octave      int    // written octave, C4 = middle C
	WrittenMidi int
	ConcertMidi int
	Enharmonic  Enharmonic
	CentsOff    int // concert deviation from the nearest equal-tempered note
}

// HasEnharmonic reports whether the note is a black key with a flat spelling.
func (p MappedPitch) HasEnharmonic() bool {
	return p.Enharmonic.Flat != ""
}

// String returns the note with octave, e.g. "C#5/Db5".
func (p MappedPitch) String() string {
	s := fmt.Sprintf("%s%d", p.Name, p.Octave)
	if p.HasEnharmonic() {
		s += fmt.Sprintf("/%s%d", p.Enharmonic.Flat, p.Octave)
	}
	return s
}

// Map converts a concert frequency into the written pitch for profile.
func Map(frequency float64, profile instrument.Profile) MappedPitch {
	concert := NoteFromPitch(frequency)
	written := concert + profile.Transposition

	name := NoteName(written)
	p := MappedPitch{
		Name:        name,
		Octave:      OctaveOf(written),
		WrittenMidi: written,
		ConcertMidi: concert,
		CentsOff:    CentsOff(frequency, concert),
	}
	if flat, ok := enharmonicMap[name]; ok {
		p.Enharmonic = Enharmonic{Sharp: name, Flat: flat}
	}
	return p
}

// NoteFromPitch returns the nearest MIDI note number for a frequency (A4 = 440 Hz = 69).
func NoteFromPitch(frequency float64) int {
	return int(math.Round(12*math.Log2(frequency/440) + 69))
}

// FrequencyFromNoteNumber returns the equal-tempered frequency of a MIDI note.
func FrequencyFromNoteNumber(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// CentsOff returns how far frequency lies from note, rounded toward negative infinity.
func CentsOff(frequency float64, note int) int {
	return int(math.Floor(1200 * math.Log2(frequency/FrequencyFromNoteNumber(note))))
}

// NoteName returns the sharp spelling of a MIDI note's pitch class.
func NoteName(midi int) string {
	return noteNames[mod(midi, 12)]
}

// OctaveOf returns the scientific octave of a MIDI note.
func OctaveOf(midi int) int {
	return floorDiv(midi, 12) - 1
}

// ParseNote parses names such as "A4", "Bb3" or "c#5" into a MIDI number.
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, fmt.Errorf("music: %w: %q", ErrInvalidNote, s)
	}

	letter := s[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	semitone, ok := naturalSemitones[letter]
	if !ok {
		return 0, fmt.Errorf("music: %w: %q", ErrInvalidNote, s)
	}

	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		semitone++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		semitone--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("music: %w: %q", ErrInvalidNote, s)
	}
	return (octave+1)*12 + semitone, nil
}

// Direction describes which way a note is out of tune.
type Direction int

const (
	InTune Direction = iota
	Flat
	Sharp
)

func (d Direction) String() string {
	switch d {
	case Flat:
		return "flat"
	case Sharp:
		return "sharp"
	default:
		return "in tune"
	}
}

// Tuning classifies a cents deviation; only an exact zero counts as in tune.
func Tuning(cents int) Direction {
	switch {
	case cents < 0:
		return Flat
	case cents > 0:
		return Sharp
	default:
		return InTune
	}
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
