// Package config provides the configuration schema and loader for the note
// trainer.
package config

import (
	"time"

	"github.com/0xlemi/notetrainer/internal/pitch"
	"github.com/0xlemi/notetrainer/internal/stabilizer"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// LogFile receives log output while the terminal UI owns the screen.
	// Empty discards logs in that mode.
	LogFile string `yaml:"log_file"`

	Audio      AudioConfig      `yaml:"audio"`
	Detector   DetectorConfig   `yaml:"detector"`
	Stabilizer StabilizerConfig `yaml:"stabilizer"`

	// InstrumentsFile points at a YAML instrument table. Empty uses the
	// built-in table.
	InstrumentsFile string `yaml:"instruments_file"`

	// Instrument is the instrument selected when none is given on the
	// command line.
	Instrument string `yaml:"instrument"`

	Metrics MetricsConfig `yaml:"metrics"`
	MIDI    MIDIConfig    `yaml:"midi"`
}

// AudioConfig describes the capture geometry.
type AudioConfig struct {
	// FrameSize is the number of samples analysed per cycle (2048 or 4096).
	FrameSize int `yaml:"frame_size"`

	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// BlockSize is the number of frames PortAudio delivers per callback.
	BlockSize int `yaml:"block_size"`

	// HopSize is the step between frames when analysing files.
	HopSize int `yaml:"hop_size"`

	Amplification float64 `yaml:"amplification"`

	// Tick is the interval between detection cycles when listening live.
	Tick time.Duration `yaml:"tick"`
}

// DetectorConfig tunes the NSDF pitch detector.
type DetectorConfig struct {
	Method     pitch.Method `yaml:"method"`
	NoiseFloor float64      `yaml:"noise_floor"`
	PeakRatio  float64      `yaml:"peak_ratio"`
	MinClarity float64      `yaml:"min_clarity"`
}

// StabilizerConfig tunes note smoothing.
type StabilizerConfig struct {
	MinConfidence   float64 `yaml:"min_confidence"`
	NoteChangeCents float64 `yaml:"note_change_cents"`
	ToleranceCents  float64 `yaml:"tolerance_cents"`
	SmoothingCount  int     `yaml:"smoothing_count"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddr serves /metrics when non-empty (e.g. ":9090").
	ListenAddr string `yaml:"listen_addr"`
}

// MIDIConfig controls echoing detected notes to a MIDI output port.
type MIDIConfig struct {
	// OutPort is a port name (or prefix); empty disables MIDI output.
	OutPort  string `yaml:"out_port"`
	Channel  uint8  `yaml:"channel"`
	Velocity uint8  `yaml:"velocity"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dp := pitch.DefaultParams()
	sp := stabilizer.DefaultParams()
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			FrameSize:     4096,
			SampleRate:    44100,
			Channels:      1,
			BlockSize:     512,
			HopSize:       1024,
			Amplification: 1.0,
			Tick:          16 * time.Millisecond,
		},
		Detector: DetectorConfig{
			Method:     dp.Method,
			NoiseFloor: dp.NoiseFloor,
			PeakRatio:  dp.PeakRatio,
			MinClarity: dp.MinClarity,
		},
		Stabilizer: StabilizerConfig{
			MinConfidence:   sp.MinConfidence,
			NoteChangeCents: sp.NoteChangeCents,
			ToleranceCents:  sp.ToleranceCents,
			SmoothingCount:  sp.SmoothingCount,
		},
		Instrument: "treble clef",
		MIDI: MIDIConfig{
			Velocity: 100,
		},
	}
}

// DetectorParams converts the detector section into [pitch.Params].
func (c *Config) DetectorParams() pitch.Params {
	return pitch.Params{
		Method:     c.Detector.Method,
		NoiseFloor: c.Detector.NoiseFloor,
		PeakRatio:  c.Detector.PeakRatio,
		MinClarity: c.Detector.MinClarity,
	}
}

// StabilizerParams converts the stabilizer section into [stabilizer.Params].
func (c *Config) StabilizerParams() stabilizer.Params {
	return stabilizer.Params{
		MinConfidence:   c.Stabilizer.MinConfidence,
		NoteChangeCents: c.Stabilizer.NoteChangeCents,
		ToleranceCents:  c.Stabilizer.ToleranceCents,
		SmoothingCount:  c.Stabilizer.SmoothingCount,
	}
}
