package ecg

// WeightMask builds per-position loss weights for a binary label
// vector: background positions weigh 1, foreground (label 1) positions
// weigh fg, and every position within radius seconds of a label
// transition gets boundary added on top. fs is the label rate in Hz and
// reduction the pooling factor the labels were downsampled by.
func WeightMask(label []int, fg, fs float64, reduction int, radius, boundary float64) []float64 {
	if reduction < 1 {
		reduction = 1
	}
	w := make([]float64, len(label))
	for i, v := range label {
		if v == 1 {
			w[i] = fg
		} else {
			w[i] = 1
		}
	}
	sigma := int(radius * fs / float64(reduction))
	for i := 0; i+1 < len(label); i++ {
		if label[i] == label[i+1] {
			continue
		}
		lo, hi := i-sigma, i+sigma
		if lo < 0 {
			lo = 0
		}
		if hi > len(label) {
			hi = len(label)
		}
		for j := lo; j < hi; j++ {
			w[j] += boundary
		}
	}
	return w
}
