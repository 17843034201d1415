package ecg

// MaskToIntervals collects the maximal runs of mask positions equal to
// val into half-open intervals.
func MaskToIntervals(mask []int, val int) []Interval {
	var out []Interval
	start := -1
	for i, v := range mask {
		switch {
		case v == val && start < 0:
			start = i
		case v != val && start >= 0:
			out = append(out, Interval{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Interval{Start: start, End: len(mask)})
	}
	return out
}

// IntervalsToMask builds a binary mask of the given length with ones on
// every interval. Intervals are clipped to [0, length).
func IntervalsToMask(itvs []Interval, length int) []int {
	mask := make([]int, length)
	for _, itv := range itvs {
		lo, hi := itv.Start, itv.End
		if lo < 0 {
			lo = 0
		}
		if hi > length {
			hi = length
		}
		for i := lo; i < hi; i++ {
			mask[i] = 1
		}
	}
	return mask
}
