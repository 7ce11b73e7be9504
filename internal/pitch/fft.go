package pitch

import (
	"github.com/mjibson/go-dsp/fft"
)

// fftAutocorrelation computes the linear autocorrelation through the power
// spectrum. The signal is zero-padded to at least twice its length so the
// circular correlation returned by the inverse FFT does not wrap around.
func fftAutocorrelation(x []float64, acf []float64) {
	size := nextPowerOfTwo(2 * len(x))
	padded := make([]float64, size)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}

	r := fft.IFFT(spectrum)
	for tau := range acf {
		acf[tau] = real(r[tau])
	}
}

// nextPowerOfTwo returns the smallest power of two >= n
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
