package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// Fields absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	a := cfg.Audio
	if a.FrameSize < 256 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d is too small; use 2048 or 4096", a.FrameSize))
	} else if a.FrameSize != 2048 && a.FrameSize != 4096 {
		slog.Warn("audio.frame_size is not one of the tuned sizes", "frame_size", a.FrameSize)
	}
	if a.SampleRate < 8000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is too low", a.SampleRate))
	}
	if a.Channels < 1 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be at least 1", a.Channels))
	}
	if a.BlockSize < 1 || a.BlockSize > a.FrameSize {
		errs = append(errs, fmt.Errorf("audio.block_size %d must be in [1, frame_size]", a.BlockSize))
	}
	if a.HopSize < 1 {
		errs = append(errs, fmt.Errorf("audio.hop_size %d must be at least 1", a.HopSize))
	}
	if a.Amplification <= 0 {
		errs = append(errs, fmt.Errorf("audio.amplification %.2f must be positive", a.Amplification))
	}
	if a.Tick < 0 {
		errs = append(errs, fmt.Errorf("audio.tick %s must not be negative", a.Tick))
	}

	// Detector
	d := cfg.Detector
	if !d.Method.IsValid() {
		errs = append(errs, fmt.Errorf("detector.method %q is invalid; valid values: direct, fft", d.Method))
	}
	if d.NoiseFloor < 0 {
		errs = append(errs, fmt.Errorf("detector.noise_floor %.3f must not be negative", d.NoiseFloor))
	}
	if d.PeakRatio <= 0 || d.PeakRatio > 1 {
		errs = append(errs, fmt.Errorf("detector.peak_ratio %.2f is out of range (0, 1]", d.PeakRatio))
	}
	if d.MinClarity <= 0 || d.MinClarity > 1 {
		errs = append(errs, fmt.Errorf("detector.min_clarity %.2f is out of range (0, 1]", d.MinClarity))
	}

	// Stabilizer
	if err := cfg.StabilizerParams().Validate(); err != nil {
		errs = append(errs, err)
	}
	if s := cfg.Stabilizer; s.ToleranceCents > s.NoteChangeCents {
		slog.Warn("stabilizer.tolerance_cents exceeds note_change_cents; outliers will restart the history instead of being rejected",
			"tolerance_cents", s.ToleranceCents,
			"note_change_cents", s.NoteChangeCents,
		)
	}

	// MIDI
	if cfg.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("midi.channel %d is out of range [0, 15]", cfg.MIDI.Channel))
	}
	if cfg.MIDI.Velocity < 1 || cfg.MIDI.Velocity > 127 {
		errs = append(errs, fmt.Errorf("midi.velocity %d is out of range [1, 127]", cfg.MIDI.Velocity))
	}

	return errors.Join(errs...)
}
