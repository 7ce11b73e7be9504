// Package instrument holds the read-only table of instrument profiles: how
// far each instrument transposes, which clef it reads, and the concert-pitch
// range it can plausibly sound.
package instrument

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownInstrument is returned by [Table.Lookup] for an identifier the
// table does not contain.
var ErrUnknownInstrument = errors.New("unknown instrument")

//go:embed instruments.yaml
var defaultTable []byte

// Clef is the staff an instrument reads from.
type Clef string

const (
	ClefTreble Clef = "treble"
	ClefBass   Clef = "bass"
)

// IsValid reports whether c is a recognised clef.
func (c Clef) IsValid() bool {
	return c == ClefTreble || c == ClefBass
}

// Profile describes one instrument.
type Profile struct {
	// Name is the table key the profile was loaded under.
	Name string `yaml:"-"`

	// Transposition is added to the concert MIDI number to get the written
	// note, e.g. +2 for a B-flat clarinet.
	Transposition int `yaml:"transposition"`

	Clef Clef `yaml:"clef"`

	// RangeMinHz and RangeMaxHz bound the concert frequencies accepted as
	// genuine detections.
	RangeMinHz float64 `yaml:"range_min_hz"`
	RangeMaxHz float64 `yaml:"range_max_hz"`
}

// InRange reports whether f lies inside the closed playable range.
func (p Profile) InRange(f float64) bool {
	return f >= p.RangeMinHz && f <= p.RangeMaxHz
}

// Table maps instrument identifiers to profiles. It is immutable after
// construction and safe for concurrent reads.
type Table struct {
	profiles map[string]Profile
}

type tableFile struct {
	Instruments map[string]Profile `yaml:"instruments"`
}

// Default returns the built-in instrument table.
func Default() *Table {
	t, err := LoadFromReader(bytes.NewReader(defaultTable))
	if err != nil {
		panic(fmt.Sprintf("instrument: embedded table is invalid: %v", err))
	}
	return t
}

// Load reads an instrument table from a YAML file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("instrument: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("instrument: parse %q: %w", path, err)
	}
	return t, nil
}

// LoadFromReader decodes and validates a YAML instrument table.
func LoadFromReader(r io.Reader) (*Table, error) {
	var file tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("instrument: decode yaml: %w", err)
	}

	profiles := make([]Profile, 0, len(file.Instruments))
	for name, p := range file.Instruments {
		p.Name = name
		profiles = append(profiles, p)
	}
	return NewTable(profiles...)
}

// NewTable builds a table from profiles, validating each one.
func NewTable(profiles ...Profile) (*Table, error) {
	var errs []error
	t := &Table{profiles: make(map[string]Profile, len(profiles))}

	for _, p := range profiles {
		key := normalize(p.Name)
		switch {
		case key == "":
			errs = append(errs, errors.New("instrument name is required"))
			continue
		case !p.Clef.IsValid():
			errs = append(errs, fmt.Errorf("%s: clef %q is invalid; valid values: treble, bass", key, p.Clef))
		case p.RangeMinHz <= 0 || p.RangeMaxHz <= p.RangeMinHz:
			errs = append(errs, fmt.Errorf("%s: range [%.2f, %.2f] Hz is invalid", key, p.RangeMinHz, p.RangeMaxHz))
		}
		if _, dup := t.profiles[key]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate instrument", key))
		}
		p.Name = key
		t.profiles[key] = p
	}

	if len(t.profiles) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("instrument table is empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup resolves an identifier, ignoring case and surrounding space.
func (t *Table) Lookup(id string) (Profile, error) {
	p, ok := t.profiles[normalize(id)]
	if !ok {
		return Profile{}, fmt.Errorf("instrument: %w: %q", ErrUnknownInstrument, id)
	}
	return p, nil
}

// Names returns the instrument identifiers in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.profiles))
	for name := range t.profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
