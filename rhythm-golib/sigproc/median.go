package sigproc

import "sort"

// MedianFilter runs a centered sliding median of the given window size
// over sig and returns the result as a new slice. Window positions past
// either end of the signal take the value of the nearest edge sample.
// The window must be odd to stay centered, so even sizes are widened by
// one.
func MedianFilter(sig []float64, size int) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	out := make([]float64, len(sig))
	if len(sig) == 0 {
		return out
	}
	half := size / 2
	window := make([]float64, size)
	for i := range sig {
		for j := -half; j <= half; j++ {
			k := i + j
			if k < 0 {
				k = 0
			} else if k > len(sig)-1 {
				k = len(sig) - 1
			}
			window[j+half] = sig[k]
		}
		sort.Float64s(window)
		out[i] = window[half]
	}
	return out
}

// RemoveBaseline subtracts the baseline wander of a single-lead ECG,
// estimated by two cascaded median filters with windows of win1 and win2
// seconds. A typical pair is 0.2 and 0.6; the shorter window tracks the
// signal, the longer one smooths the estimate. Returns a new slice.
func RemoveBaseline(sig []float64, fs, win1, win2 float64) []float64 {
	if win2 < win1 {
		win1, win2 = win2, win1
	}
	baseline := MedianFilter(sig, oddWindow(win1, fs))
	baseline = MedianFilter(baseline, oddWindow(win2, fs))
	out := make([]float64, len(sig))
	for i := range sig {
		out[i] = sig[i] - baseline[i]
	}
	return out
}

// oddWindow converts a window length in seconds to an odd number of
// samples at sampling rate fs.
func oddWindow(seconds, fs float64) int {
	return 2*(int(seconds*fs)/2) + 1
}
