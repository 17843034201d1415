// Package split partitions a database into train and test sets, by
// subject or by record, and persists the partition next to the database
// so that every later run sees the same split.
package split

import "fmt"

// Config controls a splitter.
type Config struct {
	// TrainRatio is the train share in (0, 1); resolution is 1%.
	TrainRatio float64
	// Seed drives the sampling and shuffling.
	Seed int64
	// Dir is where the split files are persisted.
	Dir string
}

// DefaultConfig returns the usual 80/20 split persisted under dir.
func DefaultConfig(dir string) Config {
	return Config{TrainRatio: 0.8, Dir: dir}
}

// percents returns the integer train and test percentages.
func (c Config) percents() (int, int) {
	train := int(c.TrainRatio * 100)
	return train, 100 - train
}

func (c Config) validate() error {
	train, test := c.percents()
	if train*test <= 0 {
		return ConfigurationError{Reason: fmt.Sprintf("train ratio %g leaves one side of the split empty", c.TrainRatio)}
	}
	if c.Dir == "" {
		return ConfigurationError{Reason: "split dir not set"}
	}
	return nil
}

// Result is a partition into train and test sets.
type Result struct {
	Train []string `json:"train"`
	Test  []string `json:"test"`
}

// ConfigurationError reports a split that cannot be performed as
// configured.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return e.Reason
}
