package split

import (
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/serialization"
)

// defaultMaxRetries bounds the reshuffle loop a validated record split
// may take before giving up.
const defaultMaxRetries = 1000

// LabelFunc reports the class labels of a record.
type LabelFunc func(record string) ([]string, error)

// RecordConfig configures a RecordSplitter.
type RecordConfig struct {
	// TrainRatio is the fraction of records assigned to the train set.
	TrainRatio float64 `yaml:"train_ratio"`
	// Seed drives the shuffle.
	Seed int64 `yaml:"seed"`
	// Dir is where the partition files are persisted.
	Dir string `yaml:"dir"`
	// ForceValid rejects splits that leave any class absent from either
	// side.
	ForceValid bool `yaml:"force_valid"`
	// Classes are the labels a valid split must cover. Empty means every
	// label observed across the input records.
	Classes []string `yaml:"classes"`
	// MaxRetries caps the reshuffle loop when ForceValid is set. Zero
	// means defaultMaxRetries.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultRecordConfig splits 80/20 under dir.
func DefaultRecordConfig(dir string) RecordConfig {
	return RecordConfig{TrainRatio: 0.8, Dir: dir}
}

func (c RecordConfig) validate() error {
	trainPct := int(c.TrainRatio * 100)
	if trainPct*(100-trainPct) <= 0 {
		return ConfigurationError{Reason: "train ratio must leave both sides non-empty"}
	}
	if c.Dir == "" {
		return ConfigurationError{Reason: "split dir must be set"}
	}
	if c.MaxRetries < 0 {
		return ConfigurationError{Reason: "max retries must be non-negative"}
	}
	return nil
}

// RecordSplitter partitions records directly, without regard to which
// subject they belong to. With ForceValid set it reshuffles until both
// sides cover the required classes.
type RecordSplitter struct {
	labels LabelFunc
	cfg    RecordConfig
	rng    *rand.Rand
}

// NewRecordSplitter validates cfg and seeds the splitter. labels may be
// nil when ForceValid is unset.
func NewRecordSplitter(labels LabelFunc, cfg RecordConfig) (*RecordSplitter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ForceValid && labels == nil {
		return nil, ConfigurationError{Reason: "validated splits need a label func"}
	}
	return &RecordSplitter{
		labels: labels,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Files returns the paths the partition is persisted at.
func (s *RecordSplitter) Files() (train, test string) {
	return filepath.Join(s.cfg.Dir, "train.json"), filepath.Join(s.cfg.Dir, "test.json")
}

// Split returns the persisted partition when both files exist; force
// recomputes and rewrites it.
func (s *RecordSplitter) Split(records []string, force bool) (Result, error) {
	trainFile, testFile := s.Files()
	if !force {
		res, ok, err := loadPair(trainFile, testFile)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return res, nil
		}
	}

	pool := append([]string(nil), records...)
	sort.Strings(pool)

	var target []string
	labelsOf := make(map[string][]string, len(pool))
	if s.cfg.ForceValid {
		classes := make(map[string]bool)
		for _, rec := range pool {
			labels, err := s.labels(rec)
			if err != nil {
				return Result{}, errors.Wrapf(err, "labelling %s", rec)
			}
			labelsOf[rec] = labels
			for _, label := range labels {
				classes[label] = true
			}
		}
		target = s.cfg.Classes
		if len(target) == 0 {
			for label := range classes {
				target = append(target, label)
			}
			sort.Strings(target)
		}
	}

	retries := s.cfg.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}
	for attempt := 0; attempt < retries; attempt++ {
		s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		idx := int(float64(len(pool)) * s.cfg.TrainRatio)
		train, test := pool[:idx], pool[idx:]
		if s.cfg.ForceValid && !(covers(train, labelsOf, target) && covers(test, labelsOf, target)) {
			continue
		}
		res := Result{
			Train: append([]string(nil), train...),
			Test:  append([]string(nil), test...),
		}
		if err := serialization.EncodeAtomic(trainFile, res.Train); err != nil {
			return Result{}, errors.Wrapf(err, "persisting train split")
		}
		if err := serialization.EncodeAtomic(testFile, res.Test); err != nil {
			return Result{}, errors.Wrapf(err, "persisting test split")
		}
		return res, nil
	}
	return Result{}, ConfigurationError{Reason: "no split covering all classes found"}
}

// covers reports whether the records jointly carry every target class.
func covers(records []string, labelsOf map[string][]string, target []string) bool {
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, label := range labelsOf[rec] {
			seen[label] = true
		}
	}
	for _, label := range target {
		if !seen[label] {
			return false
		}
	}
	return true
}
