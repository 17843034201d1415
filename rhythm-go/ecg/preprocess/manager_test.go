package preprocess

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSignal(leads, samples int) [][]float64 {
	sig := make([][]float64, leads)
	for l := range sig {
		sig[l] = make([]float64, samples)
		for i := range sig[l] {
			ts := float64(i) / 200
			sig[l][i] = math.Sin(2*math.Pi*8*ts+float64(l)) + 0.1*float64(l)
		}
	}
	return sig
}

func TestManagerDefaultOrder(t *testing.T) {
	m, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{OpBaselineRemove, OpBandpass}, m.Names())
	assert.False(t, m.Empty())
}

func TestManagerEmptyCopiesInput(t *testing.T) {
	m, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())

	sig := [][]float64{{1, 2, 3}}
	out, fs, err := m.Apply(sig, 200)
	require.NoError(t, err)
	assert.Equal(t, sig, out)
	assert.Equal(t, 200.0, fs)
	out[0][0] = 9
	assert.Equal(t, 1.0, sig[0][0])
}

func TestManagerApplyKeepsShape(t *testing.T) {
	m, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	sig := testSignal(2, 1000)
	out, fs, err := m.Apply(sig, 200)
	require.NoError(t, err)
	assert.Equal(t, 200.0, fs)
	require.Len(t, out, 2)
	assert.Len(t, out[0], 1000)
	assert.Len(t, out[1], 1000)
}

func TestManagerWorkersMatchSerial(t *testing.T) {
	serial, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Workers = 4
	parallel, err := New(cfg, nil)
	require.NoError(t, err)

	sig := testSignal(4, 800)
	want, _, err := serial.Apply(sig, 200)
	require.NoError(t, err)
	got, _, err := parallel.Apply(sig, 200)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestManagerResampleChangesFs(t *testing.T) {
	m, err := New(Config{Resample: &ResampleConfig{Fs: 100}}, nil)
	require.NoError(t, err)
	out, fs, err := m.Apply(testSignal(1, 400), 200)
	require.NoError(t, err)
	assert.Equal(t, 100.0, fs)
	assert.Len(t, out[0], 200)
}

func TestManagerNormalizeItem(t *testing.T) {
	m, err := New(DefaultItemConfig(), nil)
	require.NoError(t, err)
	out, _, err := m.Apply(testSignal(1, 500), 200)
	require.NoError(t, err)
	var mean float64
	for _, v := range out[0] {
		mean += v
	}
	assert.InDelta(t, 0, mean/500, 1e-9)
}

func TestManagerRandomOrderDeterministic(t *testing.T) {
	cfg := Config{
		BaselineRemove: &BaselineConfig{Window1: 0.2, Window2: 0.6},
		Normalize:      &NormalizeConfig{Method: MethodMinMax},
		Random:         true,
	}
	a, err := New(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := New(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	sig := testSignal(2, 600)
	outA, _, err := a.Apply(sig, 200)
	require.NoError(t, err)
	outB, _, err := b.Apply(sig, 200)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestManagerRandomNeedsSource(t *testing.T) {
	_, err := New(Config{Random: true}, nil)
	assert.Error(t, err)
}

func TestManagerRearrange(t *testing.T) {
	m, err := New(DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, m.Rearrange([]string{OpBandpass, OpBaselineRemove}))
	assert.Equal(t, []string{OpBandpass, OpBaselineRemove}, m.Names())

	assert.Error(t, m.Rearrange([]string{OpBandpass}))
	assert.Error(t, m.Rearrange([]string{OpBandpass, OpResample}))
}

func TestManagerInvalidConfigs(t *testing.T) {
	_, err := New(Config{Bandpass: &BandpassConfig{Low: 45, High: 0.5}}, nil)
	assert.Error(t, err)
	_, err = New(Config{Normalize: &NormalizeConfig{Method: "median"}}, nil)
	assert.Error(t, err)
	_, err = New(Config{Resample: &ResampleConfig{}}, nil)
	assert.Error(t, err)
	_, err = New(Config{BaselineRemove: &BaselineConfig{}}, nil)
	assert.Error(t, err)
}
