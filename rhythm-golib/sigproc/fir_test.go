package sigproc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandpassLowpassKeepsPassband(t *testing.T) {
	const fs = 200.0
	n := 2000
	sig := make([]float64, n)
	for i := range sig {
		ts := float64(i) / fs
		sig[i] = math.Sin(2*math.Pi*5*ts) + 0.8*math.Sin(2*math.Pi*80*ts)
	}
	got, err := Bandpass(sig, fs, 0, 30, 0)
	require.NoError(t, err)
	require.Len(t, got, n)
	// the 80 Hz component is deep in the stopband, the 5 Hz one passes
	// with unit gain and no phase shift
	var sqerr float64
	for i := 500; i < 1500; i++ {
		ts := float64(i) / fs
		d := got[i] - math.Sin(2*math.Pi*5*ts)
		sqerr += d * d
	}
	rms := math.Sqrt(sqerr / 1000)
	assert.Less(t, rms, 0.02)
}

func TestBandpassInvalidBands(t *testing.T) {
	sig := make([]float64, 1000)
	_, err := Bandpass(sig, 200, 45, 0.5, 0)
	assert.Error(t, err)
	_, err = Bandpass(sig, 200, 0, 200, 0)
	assert.Error(t, err)
}

func TestFiltFiltConstantSignal(t *testing.T) {
	taps, err := firTaps(200, 0, 30, 0)
	require.NoError(t, err)
	sig := make([]float64, 400)
	for i := range sig {
		sig[i] = 0.7
	}
	got, err := FiltFilt(taps, sig)
	require.NoError(t, err)
	require.Len(t, got, len(sig))
	for _, v := range got {
		assert.InDelta(t, 0.7, v, 1e-6)
	}
}

func TestFiltFiltShortSignal(t *testing.T) {
	taps, err := firTaps(200, 0.5, 45, 0)
	require.NoError(t, err)
	_, err = FiltFilt(taps, make([]float64, len(taps)))
	assert.Error(t, err)
}

func TestFirTapsDefaultsOrder(t *testing.T) {
	taps, err := firTaps(200, 0.5, 45, 0)
	require.NoError(t, err)
	// order 0.3*fs plus one
	assert.Len(t, taps, 61)
}

func TestFirTapsHighpassOddLength(t *testing.T) {
	taps, err := firTaps(200, 0.5, 100, 61)
	require.NoError(t, err)
	// an even tap count cannot pass the Nyquist frequency
	assert.Equal(t, 1, len(taps)%2)
}

func TestFirwinLowpassUnitDCGain(t *testing.T) {
	taps := firwin(41, 0, 0.3)
	var sum float64
	for _, v := range taps {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}
