package pitch

import (
	"fmt"
	"math"

	"github.com/0xlemi/notetrainer/internal/audio"
	"gonum.org/v1/gonum/floats"
)

// Method selects how the autocorrelation inside the NSDF is computed
type Method string

const (
	// MethodDirect sums lagged products, O(N·N/2)
	MethodDirect Method = "direct"

	// MethodFFT uses the Wiener-Khinchin theorem, O(N log N)
	MethodFFT Method = "fft"
)

// IsValid reports whether m is a recognised method
func (m Method) IsValid() bool {
	return m == MethodDirect || m == MethodFFT
}

// Estimate is the result of analysing one frame. A zero Frequency means no
// pitch was found; Confidence is then zero as well.
type Estimate struct {
	Frequency  float64 // Hz
	Confidence float64 // NSDF peak height, 0-1
}

// Voiced reports whether the estimate carries a pitch
func (e Estimate) Voiced() bool {
	return e.Frequency > 0
}

// Estimator defines the interface for fundamental frequency estimation
type Estimator interface {
	// Estimate analyses a single frame. "No pitch" is a normal result, not an error.
	Estimate(frame audio.Frame) Estimate
}

// Params tunes the NSDF detector
type Params struct {
	Method     Method
	NoiseFloor float64 // minimum frame RMS
	PeakRatio  float64 // first peak within this fraction of the highest peak wins
	MinClarity float64 // minimum NSDF value of the chosen peak
}

// DefaultParams returns the tuned defaults
func DefaultParams() Params {
	return Params{
		Method:     MethodDirect,
		NoiseFloor: 0.01,
		PeakRatio:  0.93,
		MinClarity: 0.5,
	}
}

// correlator fills acf[tau] = sum_j x[j]*x[j+tau] for tau < len(acf)
type correlator func(x []float64, acf []float64)

// NSDFDetector implements the McLeod Pitch Method on the Normalized Square
// Difference Function
type NSDFDetector struct {
	params    Params
	correlate correlator
}

// NewNSDFDetector creates a detector; zero-valued fields of p take their defaults
func NewNSDFDetector(p Params) (*NSDFDetector, error) {
	def := DefaultParams()
	if p.Method == "" {
		p.Method = def.Method
	}
	if p.NoiseFloor == 0 {
		p.NoiseFloor = def.NoiseFloor
	}
	if p.PeakRatio == 0 {
		p.PeakRatio = def.PeakRatio
	}
	if p.MinClarity == 0 {
		p.MinClarity = def.MinClarity
	}

	d := &NSDFDetector{params: p}
	switch p.Method {
	case MethodDirect:
		d.correlate = directAutocorrelation
	case MethodFFT:
		d.correlate = fftAutocorrelation
	default:
		return nil, fmt.Errorf("pitch: unknown method %q", p.Method)
	}
	return d, nil
}

// Params returns the effective parameters
func (d *NSDFDetector) Params() Params {
	return d.params
}

// Level calculates the RMS and dB level of a block of samples
func Level(samples []float32) (rms, db float64) {
	if len(samples) == 0 {
		return 0, -100
	}

	sumSquares := 0.0
	for _, sample := range samples {
		v := float64(sample)
		sumSquares += v * v
	}
	rms = math.Sqrt(sumSquares / float64(len(samples)))

	// Avoid log(0)
	if rms > 0.0000001 {
		db = 20 * math.Log10(rms)
	} else {
		db = -100
	}
	return rms, db
}

// Estimate analyses one frame
func (d *NSDFDetector) Estimate(frame audio.Frame) Estimate {
	n := len(frame.Samples)
	if n < 4 || frame.SampleRate <= 0 {
		return Estimate{}
	}

	// Silence / noise floor gate
	if rms, _ := Level(frame.Samples); rms < d.params.NoiseFloor {
		return Estimate{}
	}

	x := make([]float64, n)
	for i, s := range frame.Samples {
		x[i] = float64(s)
	}

	nsdf := d.nsdf(x)
	best, ok := d.pickPeak(nsdf)
	if !ok || best.value < d.params.MinClarity {
		return Estimate{}
	}

	t0 := refineLag(nsdf, best.lag)
	if t0 <= 0 {
		return Estimate{}
	}

	return Estimate{
		Frequency:  float64(frame.SampleRate) / t0,
		Confidence: best.value,
	}
}

// nsdf computes the normalized square difference for lags [0, N/2)
func (d *NSDFDetector) nsdf(x []float64) []float64 {
	n := len(x)
	maxLag := n / 2

	acf := make([]float64, maxLag)
	d.correlate(x, acf)

	// m[tau] = sum over the overlap of x[j]^2 + x[j+tau]^2, updated incrementally
	m := 2 * floats.Dot(x, x)
	out := make([]float64, maxLag)
	for tau := 0; tau < maxLag; tau++ {
		if tau > 0 {
			m -= x[n-tau]*x[n-tau] + x[tau-1]*x[tau-1]
		}
		if m > 0 {
			out[tau] = 2 * acf[tau] / m
		}
	}
	return out
}

// directAutocorrelation computes each lag as a dot product of the overlap
func directAutocorrelation(x []float64, acf []float64) {
	n := len(x)
	for tau := range acf {
		acf[tau] = floats.Dot(x[:n-tau], x[tau:])
	}
}

// peak is the local maximum of one positive NSDF lobe
type peak struct {
	lag   int
	value float64
}

// pickPeak collects one peak per positive lobe after the first negative
// crossing and returns the first whose height is within PeakRatio of the
// highest. Later qualifying lags are sub-harmonics of the first.
func (d *NSDFDetector) pickPeak(nsdf []float64) (peak, bool) {
	var peaks []peak
	pastInitial := false
	inLobe := false
	current := peak{value: math.Inf(-1)}

	for tau := 1; tau < len(nsdf); tau++ {
		// Skip the trivial peak at lag zero.
		if !pastInitial {
			if nsdf[tau] < 0 {
				pastInitial = true
			}
			continue
		}

		switch {
		case nsdf[tau] > 0 && nsdf[tau-1] <= 0:
			inLobe = true
			current = peak{lag: tau, value: nsdf[tau]}
		case nsdf[tau] <= 0 && nsdf[tau-1] > 0 && inLobe:
			peaks = append(peaks, current)
			inLobe = false
		case inLobe && nsdf[tau] > current.value:
			current = peak{lag: tau, value: nsdf[tau]}
		}
	}
	if inLobe {
		peaks = append(peaks, current)
	}
	if len(peaks) == 0 {
		return peak{}, false
	}

	highest := 0.0
	for _, p := range peaks {
		highest = math.Max(highest, p.value)
	}
	threshold := highest * d.params.PeakRatio
	for _, p := range peaks {
		if p.value >= threshold {
			return p, true
		}
	}
	return peak{}, false
}

// refineLag applies parabolic interpolation around lag. At the buffer edges
// or for a flat parabola the integer lag is returned unchanged.
func refineLag(nsdf []float64, lag int) float64 {
	t0 := float64(lag)
	if lag <= 0 || lag >= len(nsdf)-1 {
		return t0
	}

	x1, x2, x3 := nsdf[lag-1], nsdf[lag], nsdf[lag+1]
	a := (x1 + x3 - 2*x2) / 2
	b := (x3 - x1) / 2
	if a != 0 {
		t0 -= b / (2 * a)
	}
	return t0
}
