package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements microphone capture using PortAudio. The
// stream callback delivers small blocks which are shifted into a window
// holding the most recent frameSize samples, so every ReadFrame sees the
// latest audio regardless of how often it is called.
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	window        []float32 // most recent frameSize mono samples
	mono          []float32 // scratch buffer for one mixed-down block
	filled        int       // valid samples in window, capped at frameSize
	frameSize     int
	blockSize     int
	sampleRate    int
	channels      int
	bufferMutex   sync.Mutex
	amplification float32 // Audio signal amplification factor
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio
func NewPortAudioCapturer(frameSize, blockSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if frameSize <= 0 || blockSize <= 0 || sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("audio: invalid capture geometry frame=%d block=%d rate=%d channels=%d",
			frameSize, blockSize, sampleRate, channels)
	}

	capturer := &PortAudioCapturer{
		window:        make([]float32, frameSize),
		mono:          make([]float32, blockSize),
		frameSize:     frameSize,
		blockSize:     blockSize,
		sampleRate:    sampleRate,
		channels:      channels,
		amplification: 1.0,
	}

	return capturer, nil
}

// Start initialises PortAudio and opens the default input device
func (c *PortAudioCapturer) Start() error {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: initialize portaudio: %v", ErrSourceUnavailable, err)
	}

	// Open default input stream
	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.blockSize, // frames per buffer
		c.processAudio,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: open input stream: %v", ErrSourceUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("%w: start input stream: %v", ErrSourceUnavailable, err)
	}

	c.stream = stream
	c.filled = 0
	c.isCapturing = true
	return nil
}

// Stop ends audio capture and releases the device
func (c *PortAudioCapturer) Stop() error {
	c.bufferMutex.Lock()
	stream := c.stream
	if !c.isCapturing {
		c.bufferMutex.Unlock()
		return ErrNotCapturing
	}
	c.isCapturing = false
	c.stream = nil
	c.bufferMutex.Unlock()

	// The callback takes bufferMutex, so the stream is stopped unlocked.
	if err := stream.Stop(); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// processAudio is the PortAudio stream callback
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	frames := len(in) / c.channels
	if frames > len(c.mono) {
		c.mono = make([]float32, frames)
	}
	mono := c.mono[:frames]

	// Average the channels and apply amplification
	for i := range mono {
		sum := float32(0)
		for ch := 0; ch < c.channels; ch++ {
			sum += in[i*c.channels+ch]
		}
		mono[i] = (sum / float32(c.channels)) * c.amplification
	}

	c.push(mono)
}

// push shifts block into the tail of the window
func (c *PortAudioCapturer) push(block []float32) {
	if len(block) >= c.frameSize {
		copy(c.window, block[len(block)-c.frameSize:])
		c.filled = c.frameSize
		return
	}
	copy(c.window, c.window[len(block):])
	copy(c.window[c.frameSize-len(block):], block)
	c.filled = min(c.filled+len(block), c.frameSize)
}

// ReadFrame returns a copy of the most recent window
func (c *PortAudioCapturer) ReadFrame() (Frame, error) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if !c.isCapturing {
		return Frame{}, ErrNotCapturing
	}
	if c.filled < c.frameSize {
		return Frame{}, ErrFrameNotReady
	}

	samples := make([]float32, c.frameSize)
	copy(samples, c.window)

	return Frame{Samples: samples, SampleRate: c.sampleRate}, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	return c.isCapturing
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.amplification = factor
}
