package dataset

import "fmt"

// Config ties a corpus to its working directory and drives slicing.
type Config struct {
	// DBDir is the directory all artifacts are written under.
	DBDir string `yaml:"db_dir"`
	// Fs is the sampling frequency of the source records, in Hz.
	Fs float64 `yaml:"fs"`
	// Seed drives every randomized choice: critical-point strides,
	// stretch/compress draws and the persisted artifact ordering.
	Seed int64 `yaml:"seed"`
	// CacheSize bounds the fast readers' in-memory item cache.
	CacheSize int `yaml:"cache_size"`

	Segment SegmentConfig `yaml:"segment"`
	RR      RRConfig      `yaml:"rr"`
}

// SegmentConfig drives the segment slicer and the segment readers.
type SegmentConfig struct {
	// SegLen is the length of every persisted segment, in samples.
	SegLen int `yaml:"seglen"`
	// OverlapLen is the overlap between consecutive ordinary segments,
	// in samples.
	OverlapLen int `yaml:"overlap_len"`
	// CriticalOverlapLen is the minimal overlap between segments
	// generated around label transitions, in samples.
	CriticalOverlapLen int `yaml:"critical_overlap_len"`
	// RpeaksDist2Border drops rpeaks closer than this to either segment
	// border, in samples.
	RpeaksDist2Border int `yaml:"rpeaks_dist2border"`
	// QRSMaskBias is the half-width of the ones window marked around
	// each rpeak in the qrs mask, in samples.
	QRSMaskBias int `yaml:"qrs_mask_bias"`
	// StretchCompress is the maximal stretch/compress amplitude in
	// percent. Zero disables the augmentation.
	StretchCompress float64 `yaml:"stretch_compress"`
	// Reduction is the label pooling factor applied by the segment
	// readers.
	Reduction int `yaml:"reduction"`
}

// RRConfig drives the rr-sequence slicer and reader.
type RRConfig struct {
	// SeqLen is the length of every persisted sequence, in beats.
	SeqLen int `yaml:"seqlen"`
	// OverlapLen is the overlap between consecutive ordinary windows,
	// in beats.
	OverlapLen int `yaml:"overlap_len"`
	// CriticalOverlapLen is the minimal overlap between windows
	// generated around label transitions, in beats.
	CriticalOverlapLen int `yaml:"critical_overlap_len"`
}

// DefaultConfig covers 30 s segments and 30 beat sequences of 200 Hz
// two-lead records.
func DefaultConfig(dbDir string) Config {
	return Config{
		DBDir:     dbDir,
		Fs:        200,
		CacheSize: 512,
		Segment: SegmentConfig{
			SegLen:             6000, // 30 s
			OverlapLen:         3000, // 15 s
			CriticalOverlapLen: 5000, // 25 s
			RpeaksDist2Border:  100,  // 0.5 s
			QRSMaskBias:        15,   // 75 ms
			StretchCompress:    5,
			Reduction:          1,
		},
		RR: RRConfig{
			SeqLen:             30,
			OverlapLen:         15,
			CriticalOverlapLen: 25,
		},
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if c.DBDir == "" {
		return ConfigurationError{Reason: "db dir must be set"}
	}
	if c.Fs <= 0 {
		return ConfigurationError{Reason: fmt.Sprintf("sampling frequency must be positive, got %g", c.Fs)}
	}
	if c.CacheSize <= 0 {
		return ConfigurationError{Reason: "cache size must be positive"}
	}
	if err := c.Segment.Validate(); err != nil {
		return err
	}
	return c.RR.Validate()
}

// Validate checks the segment slicing parameters. The critical stride
// range must stay positive, so the critical overlap may be at most
// SegLen-4.
func (c SegmentConfig) Validate() error {
	if c.SegLen <= 0 {
		return ConfigurationError{Reason: "segment length must be positive"}
	}
	if c.OverlapLen < 0 || c.OverlapLen >= c.SegLen {
		return ConfigurationError{Reason: "segment overlap must be in [0, seglen)"}
	}
	if c.CriticalOverlapLen < 0 || c.SegLen-c.CriticalOverlapLen < 4 {
		return ConfigurationError{Reason: "critical overlap must be in [0, seglen-4]"}
	}
	if c.RpeaksDist2Border < 0 {
		return ConfigurationError{Reason: "rpeak border margin must be non-negative"}
	}
	if c.QRSMaskBias < 0 {
		return ConfigurationError{Reason: "qrs mask bias must be non-negative"}
	}
	if c.StretchCompress < 0 || c.StretchCompress >= 100 {
		return ConfigurationError{Reason: "stretch/compress amplitude must be in [0, 100) percent"}
	}
	if c.Reduction < 1 {
		return ConfigurationError{Reason: "reduction must be at least 1"}
	}
	return nil
}

// Validate checks the rr slicing parameters. The critical stride range
// must stay positive, so the critical overlap may be at most SeqLen-3.
func (c RRConfig) Validate() error {
	if c.SeqLen <= 0 {
		return ConfigurationError{Reason: "sequence length must be positive"}
	}
	if c.OverlapLen < 0 || c.OverlapLen >= c.SeqLen {
		return ConfigurationError{Reason: "sequence overlap must be in [0, seqlen)"}
	}
	if c.CriticalOverlapLen < 0 || c.SeqLen-c.CriticalOverlapLen < 3 {
		return ConfigurationError{Reason: "critical overlap must be in [0, seqlen-3]"}
	}
	return nil
}
