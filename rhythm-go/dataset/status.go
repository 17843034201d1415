package dataset

import (
	"github.com/rhythmlab/rhythmlab/rhythm-golib/status"
)

// Slicing and reading metrics, served on /debug/status-json when the
// hosting command exposes a status port.
var (
	section = status.NewSection("dataset artifacts")

	segmentsPerRecord = section.SampleInt64("segments per record")
	rrSeqsPerRecord   = section.SampleInt64("rr sequences per record")
	artifactBytes     = section.SampleByte("artifact bytes written")
	cacheLookups      = section.Ratio("reader cache lookups")
	cachedItems       = section.CounterDistribution("reader cached items")
)

func init() {
	// slicing runs once per record, so keep every observation
	segmentsPerRecord.SetSampleRate(1)
	rrSeqsPerRecord.SetSampleRate(1)
}
