package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/unixpickle/wav"
)

// WAVSource replays a decoded WAV file as a sequence of overlapping frames.
// Each ReadFrame advances by hopSize samples; io.EOF is returned once fewer
// than frameSize samples remain.
type WAVSource struct {
	mu          sync.Mutex
	isCapturing bool
	samples     []float32 // mono mixdown of the whole file
	sampleRate  int
	frameSize   int
	hopSize     int
	position    int
}

// OpenWAV reads and decodes the WAV file at path
func OpenWAV(path string, frameSize, hopSize int) (*WAVSource, error) {
	sound, err := wav.ReadSoundFile(path)
	if err != nil {
		return nil, fmt.Errorf("audio: read wav %q: %w", path, err)
	}
	return NewWAVSource(sound, frameSize, hopSize)
}

// NewWAVSource wraps an already decoded sound
func NewWAVSource(sound wav.Sound, frameSize, hopSize int) (*WAVSource, error) {
	if frameSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("audio: invalid frame size %d or hop %d", frameSize, hopSize)
	}
	channels := sound.Channels()
	if channels <= 0 {
		return nil, fmt.Errorf("audio: wav has %d channels", channels)
	}

	// Samples are interleaved by channel; average them down to mono.
	raw := sound.Samples()
	mono := make([]float32, len(raw)/channels)
	for i := range mono {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(raw[i*channels+ch])
		}
		mono[i] = float32(sum / float64(channels))
	}

	return &WAVSource{
		samples:    mono,
		sampleRate: sound.SampleRate(),
		frameSize:  frameSize,
		hopSize:    hopSize,
	}, nil
}

// Start rewinds the source to the beginning of the file
func (w *WAVSource) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isCapturing {
		return ErrAlreadyCapturing
	}
	w.isCapturing = true
	w.position = 0
	return nil
}

// Stop ends playback of the file
func (w *WAVSource) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isCapturing {
		return ErrNotCapturing
	}
	w.isCapturing = false
	return nil
}

// ReadFrame returns the next window of the file
func (w *WAVSource) ReadFrame() (Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isCapturing {
		return Frame{}, ErrNotCapturing
	}
	if w.position+w.frameSize > len(w.samples) {
		return Frame{}, io.EOF
	}

	samples := make([]float32, w.frameSize)
	copy(samples, w.samples[w.position:w.position+w.frameSize])
	w.position += w.hopSize

	return Frame{Samples: samples, SampleRate: w.sampleRate}, nil
}

// IsCapturing returns true while the file is being replayed
func (w *WAVSource) IsCapturing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.isCapturing
}

// Offset returns the time in seconds of the start of the most recently read frame
func (w *WAVSource) Offset() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sampleRate <= 0 {
		return 0
	}
	start := max(w.position-w.hopSize, 0)
	return float64(start) / float64(w.sampleRate)
}

// SampleRate returns the sample rate of the decoded file
func (w *WAVSource) SampleRate() int {
	return w.sampleRate
}
