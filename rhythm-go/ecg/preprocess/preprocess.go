// Package preprocess conditions raw multi-lead ECG signals through an
// ordered pipeline of named steps (baseline removal, bandpass filtering,
// normalization, resampling). The step names double as the cache-key
// vocabulary of the preprocessed-record store.
package preprocess

// Step names, as they appear in cache keys and config files.
const (
	OpBaselineRemove = "baseline_remove"
	OpBandpass       = "bandpass"
	OpNormalize      = "normalize"
	OpResample       = "resample"
)

// Normalization methods.
const (
	MethodZScore = "z-score"
	MethodMinMax = "min-max"
)

// Config declares which conditioning steps run and with what
// parameters. A nil step is skipped. Steps run in a fixed order
// (baseline removal, bandpass, normalize, resample) unless Random is
// set or Rearrange is called on the manager.
type Config struct {
	BaselineRemove *BaselineConfig  `yaml:"baseline_remove"`
	Bandpass       *BandpassConfig  `yaml:"bandpass"`
	Normalize      *NormalizeConfig `yaml:"normalize"`
	Resample       *ResampleConfig  `yaml:"resample"`

	// Random shuffles the application order on every Apply call.
	Random bool `yaml:"random"`
	// Workers caps the per-lead fan-out; values below 2 keep the
	// pipeline serial.
	Workers int `yaml:"workers"`
}

// BandpassConfig keeps the [Low, High] Hz band of each lead. Low <= 0
// degrades to a pure lowpass filter and High >= fs/2 to a highpass one.
type BandpassConfig struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
	// Order is the FIR filter order; 0 picks 0.3*fs.
	Order int `yaml:"order"`
}

// BaselineConfig subtracts the baseline estimated by two cascaded
// moving medians of Window1 and Window2 seconds.
type BaselineConfig struct {
	Window1 float64 `yaml:"window1"`
	Window2 float64 `yaml:"window2"`
}

// NormalizeConfig rescales each lead with the given method. An empty
// method means z-score.
type NormalizeConfig struct {
	Method string `yaml:"method"`
}

// ResampleConfig brings each lead to the target sampling frequency.
type ResampleConfig struct {
	Fs float64 `yaml:"fs"`
}

// DefaultConfig returns the conditioning used for cached records: a
// 0.2 s/0.6 s median baseline removal followed by a 0.5-45 Hz bandpass.
func DefaultConfig() Config {
	return Config{
		BaselineRemove: &BaselineConfig{Window1: 0.2, Window2: 0.6},
		Bandpass:       &BandpassConfig{Low: 0.5, High: 45},
	}
}

// DefaultItemConfig returns the light per-item conditioning applied by
// the fast readers when serving training items: z-score normalization
// only, no filtering.
func DefaultItemConfig() Config {
	return Config{
		Normalize: &NormalizeConfig{Method: MethodZScore},
	}
}
