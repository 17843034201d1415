package status

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// samplePercentiles are the percentiles the sampled and distribution
// metrics report, ascending.
var samplePercentiles = []float64{0.5, 0.9, 0.95, 0.99}

// defaultSampleRate is the fraction of observations a sampled metric
// keeps when no explicit rate is set.
const defaultSampleRate = 0.05

// maxSamples caps the reservoir of each sampled metric.
const maxSamples = 5000

type int64Sort []int64

func (s int64Sort) Len() int           { return len(s) }
func (s int64Sort) Less(i, j int) bool { return s[i] < s[j] }
func (s int64Sort) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// sampled is the reservoir shared by the sampled metrics. Observations
// are kept with probability rate; once the reservoir is full new
// observations overwrite the oldest ones round robin.
type sampled struct {
	m       sync.Mutex
	rate    float64
	next    int
	samples []int64
}

func newSampled() *sampled {
	return &sampled{rate: defaultSampleRate}
}

func (s *sampled) setRate(rate float64) {
	s.m.Lock()
	defer s.m.Unlock()
	s.rate = rate
}

func (s *sampled) record(v int64) {
	s.m.Lock()
	defer s.m.Unlock()
	if rand.Float64() >= s.rate {
		return
	}
	if len(s.samples) < maxSamples {
		s.samples = append(s.samples, v)
		return
	}
	s.samples[s.next%maxSamples] = v
	s.next++
}

// values reports the reservoir at samplePercentiles. An empty
// reservoir reports zeros.
func (s *sampled) values() []int64 {
	s.m.Lock()
	samples := make([]int64, len(s.samples))
	copy(samples, s.samples)
	s.m.Unlock()

	sort.Sort(int64Sort(samples))

	ret := make([]int64, 0, len(samplePercentiles))
	for _, p := range samplePercentiles {
		if len(samples) == 0 {
			ret = append(ret, 0)
			continue
		}
		idx := int(float64(len(samples)) * p)
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		ret = append(ret, samples[idx])
	}
	return ret
}

func (s *sampled) aggregate(other *sampled) {
	// a sampled decoded from JSON carries no reservoir
	if s == nil || other == nil {
		return
	}
	other.m.Lock()
	theirs := make([]int64, len(other.samples))
	copy(theirs, other.samples)
	other.m.Unlock()

	s.m.Lock()
	defer s.m.Unlock()
	for _, v := range theirs {
		if len(s.samples) < maxSamples {
			s.samples = append(s.samples, v)
			continue
		}
		s.samples[s.next%maxSamples] = v
		s.next++
	}
}

func marshalSamples(values []int64, format func(int64) interface{}) ([]byte, error) {
	out := make(map[string]interface{}, len(values))
	for i, p := range samplePercentiles {
		out[fmt.Sprintf("%d%%", int(p*100))] = format(values[i])
	}
	return json.Marshal(out)
}

// --

// SampleInt64 keeps a sampled reservoir of int64 observations and
// reports them at the section percentiles.
type SampleInt64 struct {
	*sampled
	*settings
}

func newSampleInt64() *SampleInt64 {
	return &SampleInt64{sampled: newSampled(), settings: newSettings()}
}

// SetSampleRate sets the fraction of observations kept, in [0, 1].
func (s *SampleInt64) SetSampleRate(rate float64) {
	s.setRate(rate)
}

// Record records one observation, subject to sampling.
func (s *SampleInt64) Record(v int64) {
	s.record(v)
}

// Values reports the recorded observations at the section percentiles.
func (s *SampleInt64) Values() []int64 {
	return s.values()
}

func (s *SampleInt64) aggregate(other *SampleInt64) {
	s.sampled.aggregate(other.sampled)
	s.settings.aggregate(other.settings)
}

// MarshalJSON reports the percentile values.
func (s *SampleInt64) MarshalJSON() ([]byte, error) {
	return marshalSamples(s.values(), func(v int64) interface{} { return v })
}

// --

// SampleBytes keeps a sampled reservoir of byte counts and reports
// them humanized at the section percentiles.
type SampleBytes struct {
	*sampled
	*settings
}

func newSampleBytes() *SampleBytes {
	return &SampleBytes{sampled: newSampled(), settings: newSettings()}
}

// SetSampleRate sets the fraction of observations kept, in [0, 1].
func (s *SampleBytes) SetSampleRate(rate float64) {
	s.setRate(rate)
}

// Record records one byte count, subject to sampling.
func (s *SampleBytes) Record(n int64) {
	s.record(n)
}

// Values reports the recorded byte counts at the section percentiles.
func (s *SampleBytes) Values() []int64 {
	return s.values()
}

func (s *SampleBytes) aggregate(other *SampleBytes) {
	s.sampled.aggregate(other.sampled)
	s.settings.aggregate(other.settings)
}

// MarshalJSON reports the percentile values humanized, e.g. "12 MB".
func (s *SampleBytes) MarshalJSON() ([]byte, error) {
	return marshalSamples(s.values(), func(v int64) interface{} {
		if v < 0 {
			v = 0
		}
		return humanize.Bytes(uint64(v))
	})
}

// --

// SampleDuration keeps a sampled reservoir of durations and reports
// them at the section percentiles.
type SampleDuration struct {
	*sampled
	*settings
}

func newSampleDuration() *SampleDuration {
	return &SampleDuration{sampled: newSampled(), settings: newSettings()}
}

// SetSampleRate sets the fraction of observations kept, in [0, 1].
func (s *SampleDuration) SetSampleRate(rate float64) {
	s.setRate(rate)
}

// Record records one duration, subject to sampling.
func (s *SampleDuration) Record(d time.Duration) {
	s.record(int64(d))
}

// DeferRecord records the time elapsed since start. Defer it at the
// top of the measured call.
func (s *SampleDuration) DeferRecord(start time.Time) {
	s.record(int64(time.Since(start)))
}

// Values reports the recorded durations in nanoseconds at the section
// percentiles.
func (s *SampleDuration) Values() []int64 {
	return s.values()
}

func (s *SampleDuration) aggregate(other *SampleDuration) {
	s.sampled.aggregate(other.sampled)
	s.settings.aggregate(other.settings)
}

// MarshalJSON reports the percentile values as duration strings.
func (s *SampleDuration) MarshalJSON() ([]byte, error) {
	return marshalSamples(s.values(), func(v int64) interface{} {
		return time.Duration(v).String()
	})
}
