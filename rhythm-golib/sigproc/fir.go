package sigproc

import (
	"math"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// Bandpass applies a zero-phase FIR filter with passband [low, high] Hz
// to sig and returns the filtered signal. A band with low <= 0 degrades
// to a pure lowpass filter and one with high at or above the Nyquist
// frequency to a pure highpass filter. order is the filter order; when
// zero, 0.3*fs is used.
func Bandpass(sig []float64, fs, low, high float64, order int) ([]float64, error) {
	taps, err := firTaps(fs, low, high, order)
	if err != nil {
		return nil, err
	}
	return FiltFilt(taps, sig)
}

func firTaps(fs, low, high float64, order int) ([]float64, error) {
	if order <= 0 {
		order = int(0.3 * fs)
	}
	if low >= high {
		return nil, errors.Errorf("invalid frequency band [%g, %g]", low, high)
	}
	nyq := 0.5 * fs
	var left, right float64
	switch {
	case low <= 0 && high < nyq:
		left, right = 0, high/nyq
	case low > 0 && high >= nyq:
		left, right = low/nyq, 1
	case low > 0 && high < nyq:
		left, right = low/nyq, high/nyq
	default:
		return nil, errors.Errorf("frequency band [%g, %g] filters nothing at sampling rate %g", low, high, fs)
	}
	if right <= 0 || left >= 1 {
		return nil, errors.Errorf("frequency band [%g, %g] is out of range at sampling rate %g", low, high, fs)
	}
	numtaps := order + 1
	if right >= 1 && numtaps%2 == 0 {
		// a filter with an even number of taps has zero gain at the
		// Nyquist frequency and cannot pass a band ending there
		numtaps++
	}
	return firwin(numtaps, left, right), nil
}

// firwin designs a linear-phase windowed-sinc FIR filter of numtaps
// coefficients using a Hamming window. left and right are the passband
// edges normalized so that the Nyquist frequency is 1; left == 0 gives a
// lowpass filter and right == 1 a highpass one. The taps are scaled for
// unit gain at the center of the passband.
func firwin(numtaps int, left, right float64) []float64 {
	h := make([]float64, numtaps)
	alpha := float64(numtaps-1) / 2
	for n := range h {
		m := float64(n) - alpha
		h[n] = right*sinc(right*m) - left*sinc(left*m)
	}
	if numtaps > 1 {
		for n := range h {
			h[n] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(n)/float64(numtaps-1))
		}
	}
	var fc float64
	switch {
	case left == 0:
		fc = 0
	case right == 1:
		fc = 1
	default:
		fc = (left + right) / 2
	}
	var gain float64
	for n := range h {
		gain += h[n] * math.Cos(math.Pi*(float64(n)-alpha)*fc)
	}
	for n := range h {
		h[n] /= gain
	}
	return h
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// FiltFilt applies the FIR filter b to sig forward and then backward so
// that the output has no phase shift. The signal is extended at both
// ends by 3*len(b) reflected samples to suppress edge transients, so sig
// must be longer than that extension.
func FiltFilt(b, sig []float64) ([]float64, error) {
	if len(b) == 0 {
		return nil, errors.New("empty filter")
	}
	padlen := 3 * len(b)
	if len(sig) <= padlen {
		return nil, errors.Errorf("signal of %d samples is too short for a %d tap filter", len(sig), len(b))
	}
	ext := oddExt(sig, padlen)
	zi := steadyState(b)
	y := firFilter(b, ext, zi, ext[0])
	reverseFloats(y)
	y = firFilter(b, y, zi, y[0])
	reverseFloats(y)
	return y[padlen : len(y)-padlen], nil
}

// oddExt extends x by n samples at each end, rotated half a turn about
// the end points so the extension continues the signal's slope.
func oddExt(x []float64, n int) []float64 {
	out := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	last := len(x) - 1
	for i := 1; i <= n; i++ {
		out = append(out, 2*x[last]-x[last-i])
	}
	return out
}

// steadyState returns the delay-line state the filter settles into under
// a constant unit input, so filtering can start transient free.
func steadyState(b []float64) []float64 {
	z := make([]float64, len(b)-1)
	var acc float64
	for i := len(b) - 1; i >= 1; i-- {
		acc += b[i]
		z[i-1] = acc
	}
	return z
}

// firFilter runs the transposed direct form II difference equation of
// the FIR filter b over x, with the initial state zi scaled by x0.
func firFilter(b, x, zi []float64, x0 float64) []float64 {
	z := make([]float64, len(zi))
	for i, v := range zi {
		z[i] = v * x0
	}
	y := make([]float64, len(x))
	for n, xn := range x {
		if len(z) == 0 {
			y[n] = b[0] * xn
			continue
		}
		y[n] = b[0]*xn + z[0]
		for i := 0; i < len(z)-1; i++ {
			z[i] = b[i+1]*xn + z[i+1]
		}
		z[len(z)-1] = b[len(b)-1] * xn
	}
	return y
}

func reverseFloats(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
