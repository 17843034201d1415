package sigproc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResampleIdentity(t *testing.T) {
	sig := []float64{1, 2, 3, 4}
	got := Resample(sig, 4)
	assert.Equal(t, sig, got)
	// the result is a copy, not the same backing array
	got[0] = 9
	assert.Equal(t, 1.0, sig[0])
}

func TestResampleConstant(t *testing.T) {
	sig := []float64{2, 2, 2, 2, 2, 2}
	for _, num := range []int{3, 7, 10} {
		got := Resample(sig, num)
		require.Len(t, got, num)
		for _, v := range got {
			assert.InDelta(t, 2.0, v, 1e-12)
		}
	}
}

func TestResampleSine(t *testing.T) {
	// a whole period of a sine is band limited, so Fourier resampling
	// reproduces it exactly at the new rate
	n, m := 200, 300
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = math.Sin(2 * math.Pi * float64(i) / float64(n))
	}
	got := Resample(sig, m)
	require.Len(t, got, m)
	for i := 0; i < m; i += 25 {
		want := math.Sin(2 * math.Pi * float64(i) / float64(m))
		assert.InDelta(t, want, got[i], 1e-9)
	}
}

func TestResampleDownsampleSine(t *testing.T) {
	n, m := 300, 200
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = math.Cos(2 * math.Pi * 3 * float64(i) / float64(n))
	}
	got := Resample(sig, m)
	require.Len(t, got, m)
	for i := 0; i < m; i += 17 {
		want := math.Cos(2 * math.Pi * 3 * float64(i) / float64(m))
		assert.InDelta(t, want, got[i], 1e-9)
	}
}

func TestResampleEmpty(t *testing.T) {
	assert.Nil(t, Resample([]float64{1, 2, 3}, 0))
	assert.Equal(t, []float64{0, 0}, Resample(nil, 2))
}
