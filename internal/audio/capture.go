package audio

import (
	"errors"
	"math"
	"sync"
)

// Errors
var (
	ErrAlreadyCapturing  = errors.New("audio capture already started")
	ErrNotCapturing      = errors.New("audio capture not started")
	ErrFrameNotReady     = errors.New("audio frame not ready")
	ErrSourceUnavailable = errors.New("audio source unavailable")
)

// Frame is one fixed-size window of mono time-domain samples in [-1, 1]
type Frame struct {
	Samples    []float32
	SampleRate int
}

// Capturer defines the interface for an audio source the session pulls frames from
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// ReadFrame returns the most recent frame. It returns ErrFrameNotReady
	// while the source is still filling its first window and io.EOF once a
	// finite source is exhausted.
	ReadFrame() (Frame, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// ToneSource is a synthetic source producing a steady tone. It stands in for
// a microphone in demos and tests.
type ToneSource struct {
	mu          sync.Mutex
	isCapturing bool
	frameSize   int
	sampleRate  int
	frequency   float64
	amplitude   float64
	harmonics   []float64 // relative amplitudes of partials 2, 3, ...
	position    int       // sample index of the next frame
}

// NewToneSource creates a silent tone source; call SetTone to make it sound
func NewToneSource(frameSize, sampleRate int) *ToneSource {
	return &ToneSource{
		frameSize:  frameSize,
		sampleRate: sampleRate,
		amplitude:  0.5,
	}
}

// SetTone changes the fundamental frequency and peak amplitude. A frequency
// of zero produces silence.
func (t *ToneSource) SetTone(frequency, amplitude float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frequency = frequency
	t.amplitude = amplitude
}

// SetHarmonics sets the relative amplitudes of the overtones above the fundamental
func (t *ToneSource) SetHarmonics(relative ...float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.harmonics = append(t.harmonics[:0], relative...)
}

// Start begins producing frames
func (t *ToneSource) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isCapturing {
		return ErrAlreadyCapturing
	}
	t.isCapturing = true
	t.position = 0
	return nil
}

// Stop ends frame production
func (t *ToneSource) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isCapturing {
		return ErrNotCapturing
	}
	t.isCapturing = false
	return nil
}

// ReadFrame synthesises the next frame, keeping phase continuous across calls
func (t *ToneSource) ReadFrame() (Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isCapturing {
		return Frame{}, ErrNotCapturing
	}

	samples := make([]float32, t.frameSize)
	if t.frequency > 0 {
		sr := float64(t.sampleRate)
		for i := range samples {
			n := float64(t.position + i)
			v := math.Sin(2 * math.Pi * t.frequency * n / sr)
			for k, rel := range t.harmonics {
				partial := float64(k + 2)
				v += rel * math.Sin(2*math.Pi*partial*t.frequency*n/sr)
			}
			samples[i] = float32(t.amplitude * v)
		}
	}
	t.position += t.frameSize

	return Frame{Samples: samples, SampleRate: t.sampleRate}, nil
}

// IsCapturing returns true if currently capturing audio
func (t *ToneSource) IsCapturing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isCapturing
}
