// Package sigproc implements the signal conditioning primitives applied
// to raw ECG traces ahead of slicing: spike removal, median-filter
// baseline subtraction, zero-phase FIR filtering, Fourier resampling and
// normalization. All functions operate on a single lead; callers fan out
// over leads themselves.
package sigproc

import "math"

// spikeThreshold is the magnitude in mV above which a sample is treated
// as a sampling artefact rather than signal.
const spikeThreshold = 20.0

// RemoveSpikes replaces artefact samples in sig with the value of the
// sample before them, in place, and returns sig. A sample is an artefact
// if it is NaN, infinite, or exceeds spikeThreshold in magnitude.
// The first sample has no predecessor and is left as is.
func RemoveSpikes(sig []float64) []float64 {
	for i := 1; i < len(sig); i++ {
		if isArtefact(sig[i]) {
			sig[i] = sig[i-1]
		}
	}
	return sig
}

func isArtefact(v float64) bool {
	return math.IsNaN(v) || math.Abs(v) > spikeThreshold
}

// ZScore rescales sig to zero mean and unit standard deviation, in
// place, and returns sig. A constant signal is shifted to all zeros.
func ZScore(sig []float64) []float64 {
	if len(sig) == 0 {
		return sig
	}
	var mean float64
	for _, v := range sig {
		mean += v
	}
	mean /= float64(len(sig))
	var variance float64
	for _, v := range sig {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(sig)))
	if std == 0 {
		std = 1
	}
	for i := range sig {
		sig[i] = (sig[i] - mean) / std
	}
	return sig
}

// MinMax rescales sig to the interval [0, 1], in place, and returns sig.
// A constant signal is shifted to all zeros.
func MinMax(sig []float64) []float64 {
	if len(sig) == 0 {
		return sig
	}
	lo, hi := sig[0], sig[0]
	for _, v := range sig[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	for i := range sig {
		sig[i] = (sig[i] - lo) / span
	}
	return sig
}
