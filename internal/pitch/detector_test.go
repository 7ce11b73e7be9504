package pitch

import (
	"math"
	"testing"

	"github.com/0xlemi/notetrainer/internal/audio"
)

// sineFrame returns n samples of a sine at freq with the given peak amplitude.
func sineFrame(freq float64, sampleRate, n int, amplitude float64) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return audio.Frame{Samples: samples, SampleRate: sampleRate}
}

func newDetector(t *testing.T, method Method) *NSDFDetector {
	t.Helper()
	p := DefaultParams()
	p.Method = method
	d, err := NewNSDFDetector(p)
	if err != nil {
		t.Fatalf("NewNSDFDetector: %v", err)
	}
	return d
}

func TestEstimateSineAccuracy(t *testing.T) {
	freqs := []float64{80, 110, 146.83, 220, 261.63, 440, 587.33, 880, 1244.51, 1760, 2000}

	for _, method := range []Method{MethodDirect, MethodFFT} {
		d := newDetector(t, method)
		for _, size := range []int{2048, 4096} {
			for _, f := range freqs {
				est := d.Estimate(sineFrame(f, 44100, size, 0.5))
				if !est.Voiced() {
					t.Errorf("%s/%d: %.2f Hz not detected", method, size, f)
					continue
				}
				if rel := math.Abs(est.Frequency-f) / f; rel > 0.005 {
					t.Errorf("%s/%d: %.2f Hz estimated as %.3f Hz (%.3f%%)", method, size, f, est.Frequency, rel*100)
				}
				if est.Confidence < 0.95 {
					t.Errorf("%s/%d: %.2f Hz confidence %.3f, want >= 0.95", method, size, f, est.Confidence)
				}
			}
		}
	}
}

func TestEstimatePrefersFundamentalOverHarmonics(t *testing.T) {
	const sr = 44100
	src := audio.NewToneSource(4096, sr)
	src.SetTone(220, 0.4)
	src.SetHarmonics(0.8, 0.5)
	if err := src.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	frame, err := src.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	est := newDetector(t, MethodDirect).Estimate(frame)
	if math.Abs(est.Frequency-220)/220 > 0.005 {
		t.Errorf("frequency = %.3f, want ~220", est.Frequency)
	}
}

func TestEstimateNoPitch(t *testing.T) {
	d := newDetector(t, MethodDirect)

	tests := []struct {
		name  string
		frame audio.Frame
	}{
		{"all zero", audio.Frame{Samples: make([]float32, 2048), SampleRate: 44100}},
		{"below noise floor", sineFrame(440, 44100, 2048, 0.005)},
		{"empty", audio.Frame{SampleRate: 44100}},
		{"too short", audio.Frame{Samples: []float32{0.5, -0.5, 0.5}, SampleRate: 44100}},
		{"no sample rate", audio.Frame{Samples: sineFrame(440, 44100, 2048, 0.5).Samples}},
		{"constant offset", constantFrame(2048, 0.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := d.Estimate(tt.frame)
			if est != (Estimate{}) {
				t.Errorf("Estimate = %+v, want no pitch", est)
			}
		})
	}
}

func constantFrame(n int, v float32) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = v
	}
	return audio.Frame{Samples: samples, SampleRate: 44100}
}

func TestMethodsAgree(t *testing.T) {
	frame := sineFrame(330, 44100, 2048, 0.3)
	for i := range frame.Samples {
		frame.Samples[i] += float32(0.1 * math.Sin(2*math.Pi*990*float64(i)/44100))
	}
	x := make([]float64, len(frame.Samples))
	for i, s := range frame.Samples {
		x[i] = float64(s)
	}

	direct := newDetector(t, MethodDirect).nsdf(x)
	viaFFT := newDetector(t, MethodFFT).nsdf(x)
	if len(direct) != len(viaFFT) {
		t.Fatalf("lengths differ: %d vs %d", len(direct), len(viaFFT))
	}
	for tau := range direct {
		if math.Abs(direct[tau]-viaFFT[tau]) > 1e-6 {
			t.Fatalf("nsdf[%d]: direct %.9f, fft %.9f", tau, direct[tau], viaFFT[tau])
		}
	}
	if math.Abs(direct[0]-1) > 1e-12 {
		t.Errorf("nsdf[0] = %v, want 1", direct[0])
	}
}

func TestPickPeak(t *testing.T) {
	d := newDetector(t, MethodDirect)

	tests := []struct {
		name    string
		nsdf    []float64
		wantLag int
		wantOK  bool
	}{
		{
			name:    "first peak within ratio wins",
			nsdf:    []float64{1, 0.5, -0.2, 0.6, 0.9, 0.3, -0.1, 0.95, 0.2, -0.3},
			wantLag: 4,
			wantOK:  true,
		},
		{
			name:    "low first lobe is skipped",
			nsdf:    []float64{1, -0.5, 0.4, -0.1, 0.97, -0.2},
			wantLag: 4,
			wantOK:  true,
		},
		{
			name:    "lobe open at the end is kept",
			nsdf:    []float64{1, 0.2, -0.4, 0.3, 0.8},
			wantLag: 4,
			wantOK:  true,
		},
		{
			name:   "never negative",
			nsdf:   []float64{1, 0.9, 0.8, 0.7},
			wantOK: false,
		},
		{
			name:   "no positive lobe",
			nsdf:   []float64{1, 0.2, -0.4, -0.3, -0.1},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := d.pickPeak(tt.nsdf)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && p.lag != tt.wantLag {
				t.Errorf("lag = %d, want %d", p.lag, tt.wantLag)
			}
		})
	}
}

func TestPickPeakThresholdIsInclusive(t *testing.T) {
	d := newDetector(t, MethodDirect)
	// 0.93 * 1.0 == 0.93 exactly; the first lobe must qualify.
	p, ok := d.pickPeak([]float64{1, -0.1, 0.93, -0.1, 1.0, -0.1})
	if !ok || p.lag != 2 {
		t.Errorf("pickPeak = %+v, %v; want lag 2", p, ok)
	}
}

func TestRefineLag(t *testing.T) {
	nsdf := []float64{1, 0.2, 0.8, 1.0, 0.8, 0.3}

	if got := refineLag(nsdf, 3); got != 3 {
		t.Errorf("symmetric peak refined to %v, want 3", got)
	}
	if got := refineLag(nsdf, 0); got != 0 {
		t.Errorf("lag 0 refined to %v, want 0", got)
	}
	if got := refineLag(nsdf, len(nsdf)-1); got != float64(len(nsdf)-1) {
		t.Errorf("edge lag refined to %v", got)
	}
	if got := refineLag([]float64{0.5, 0.5, 0.5}, 1); got != 1 {
		t.Errorf("flat parabola refined to %v, want 1", got)
	}
	// Right neighbour higher than left pulls the vertex right.
	if got := refineLag([]float64{0, 0.6, 1.0, 0.9}, 2); got <= 2 || got >= 2.5 {
		t.Errorf("asymmetric peak refined to %v, want in (2, 2.5)", got)
	}
}

func TestLevel(t *testing.T) {
	if rms, db := Level(nil); rms != 0 || db != -100 {
		t.Errorf("Level(nil) = %v, %v", rms, db)
	}
	if rms, db := Level([]float32{1, -1, 1, -1}); math.Abs(rms-1) > 1e-12 || math.Abs(db) > 1e-9 {
		t.Errorf("Level(full scale) = %v, %v; want 1, 0", rms, db)
	}
}

func TestNewNSDFDetectorDefaults(t *testing.T) {
	d, err := NewNSDFDetector(Params{})
	if err != nil {
		t.Fatalf("NewNSDFDetector: %v", err)
	}
	if d.Params() != DefaultParams() {
		t.Errorf("Params = %+v, want %+v", d.Params(), DefaultParams())
	}
	if _, err := NewNSDFDetector(Params{Method: "acf2"}); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{1: 1, 2: 2, 3: 4, 4096: 4096, 4097: 8192} {
		if got := nextPowerOfTwo(in); got != want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
