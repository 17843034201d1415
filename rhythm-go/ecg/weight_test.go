package ecg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightMask(t *testing.T) {
	label := make([]int, 20)
	for i := 8; i < 12; i++ {
		label[i] = 1
	}
	// radius 0.8 s at 2.5 Hz puts the boundary halo 2 positions wide
	got := WeightMask(label, 2, 2.5, 1, 0.8, 5)
	want := []float64{
		1, 1, 1, 1, 1,
		6, 6, 6,
		7, 7, 7, 7,
		6,
		1, 1, 1, 1, 1, 1, 1,
	}
	assert.Equal(t, want, got)
}

func TestWeightMaskNoTransitions(t *testing.T) {
	got := WeightMask([]int{0, 0, 0}, 2, 200, 1, 0.8, 5)
	assert.Equal(t, []float64{1, 1, 1}, got)
}

func TestWeightMaskReduction(t *testing.T) {
	label := []int{0, 0, 0, 1, 1, 0, 0, 0}
	// radius in label positions shrinks with the pooling factor
	got := WeightMask(label, 2, 10, 2, 0.4, 3)
	want := []float64{4, 4, 7, 8, 5, 4, 1, 1}
	assert.Equal(t, want, got)
}
