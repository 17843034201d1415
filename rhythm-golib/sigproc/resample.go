package sigproc

import "gonum.org/v1/gonum/dsp/fourier"

// Resample stretches or shrinks sig to num samples using the Fourier
// method: the spectrum is truncated or zero padded to the new length, so
// the result is band limited and treats the signal as periodic.
func Resample(sig []float64, num int) []float64 {
	nx := len(sig)
	if num <= 0 {
		return nil
	}
	if nx == 0 {
		return make([]float64, num)
	}
	if num == nx {
		out := make([]float64, nx)
		copy(out, sig)
		return out
	}
	coeff := fourier.NewFFT(nx).Coefficients(nil, sig)
	resized := make([]complex128, num/2+1)
	n := nx
	if num < n {
		n = num
	}
	copy(resized, coeff[:n/2+1])
	if n%2 == 0 {
		// the shared Nyquist bin carries the energy of two conjugate
		// bins when shrinking the spectrum and half when growing it
		if num < nx {
			resized[n/2] *= 2
		} else {
			resized[n/2] *= complex(0.5, 0)
		}
	}
	out := fourier.NewFFT(num).Sequence(nil, resized)
	scale := 1 / float64(nx)
	for i := range out {
		out[i] *= scale
	}
	return out
}
