package status

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Section groups the metrics of one subsystem on the status page.
// Metrics are created on first lookup and shared afterwards, so
// packages can keep them in package-level variables.
type Section struct {
	Name string

	Counters   map[string]*Counter
	Ratios     map[string]*Ratio
	Breakdowns map[string]*Breakdown

	SampleInt64s    map[string]*SampleInt64
	SampleDurations map[string]*SampleDuration
	SampleBytes     map[string]*SampleBytes

	CounterDistributions map[string]*CounterDistribution

	m sync.Mutex
}

// NewSection returns the section registered under name, creating it on
// first use.
func NewSection(name string) *Section {
	s.m.Lock()
	defer s.m.Unlock()
	section, ok := s.Sections[name]
	if !ok {
		section = newEmptySection(name)
		s.Sections[name] = section
	}
	return section
}

func newEmptySection(name string) *Section {
	return &Section{
		Name: name,

		Counters:   make(map[string]*Counter),
		Ratios:     make(map[string]*Ratio),
		Breakdowns: make(map[string]*Breakdown),

		SampleInt64s:    make(map[string]*SampleInt64),
		SampleDurations: make(map[string]*SampleDuration),
		SampleBytes:     make(map[string]*SampleBytes),

		CounterDistributions: make(map[string]*CounterDistribution),
	}
}

// MarshalJSON renders the section under its lock. The alias type masks
// this method so json.Marshal does not recurse back into it.
func (s *Section) MarshalJSON() ([]byte, error) {
	s.m.Lock()
	defer s.m.Unlock()
	type masked Section
	return json.Marshal((*masked)(s))
}

// Counter returns the named counter, creating it on first use.
func (s *Section) Counter(name string) *Counter {
	s.m.Lock()
	defer s.m.Unlock()
	c, ok := s.Counters[name]
	if !ok {
		c = newCounter()
		s.Counters[name] = c
	}
	return c
}

// Ratio returns the named ratio, creating it on first use.
func (s *Section) Ratio(name string) *Ratio {
	s.m.Lock()
	defer s.m.Unlock()
	r, ok := s.Ratios[name]
	if !ok {
		r = newRatio()
		s.Ratios[name] = r
	}
	return r
}

// Breakdown returns the named breakdown, creating it on first use.
func (s *Section) Breakdown(name string) *Breakdown {
	s.m.Lock()
	defer s.m.Unlock()
	b, ok := s.Breakdowns[name]
	if !ok {
		b = newBreakdown()
		s.Breakdowns[name] = b
	}
	return b
}

// SampleInt64 returns the named sampled metric, creating it on first
// use.
func (s *Section) SampleInt64(name string) *SampleInt64 {
	s.m.Lock()
	defer s.m.Unlock()
	sm, ok := s.SampleInt64s[name]
	if !ok {
		sm = newSampleInt64()
		s.SampleInt64s[name] = sm
	}
	return sm
}

// SampleByte returns the named sampled byte metric, creating it on
// first use.
func (s *Section) SampleByte(name string) *SampleBytes {
	s.m.Lock()
	defer s.m.Unlock()
	sm, ok := s.SampleBytes[name]
	if !ok {
		sm = newSampleBytes()
		s.SampleBytes[name] = sm
	}
	return sm
}

// SampleDuration returns the named sampled duration metric, creating it
// on first use.
func (s *Section) SampleDuration(name string) *SampleDuration {
	s.m.Lock()
	defer s.m.Unlock()
	sm, ok := s.SampleDurations[name]
	if !ok {
		sm = newSampleDuration()
		s.SampleDurations[name] = sm
	}
	return sm
}

// CounterDistribution returns the named gauge distribution, creating it
// on first use.
func (s *Section) CounterDistribution(name string) *CounterDistribution {
	s.m.Lock()
	defer s.m.Unlock()
	d, ok := s.CounterDistributions[name]
	if !ok {
		d = newCounterDistribution()
		s.CounterDistributions[name] = d
	}
	return d
}

// Percentiles reports the percentiles the sampled and distribution
// metrics are rendered at.
func (s *Section) Percentiles() []float64 {
	return append([]float64(nil), samplePercentiles...)
}

// size reports how many metrics the section holds.
func (s *Section) size() int {
	return len(s.Counters) + len(s.Ratios) + len(s.Breakdowns) +
		len(s.SampleInt64s) + len(s.SampleDurations) + len(s.SampleBytes) +
		len(s.CounterDistributions)
}

func (s *Section) aggregate(other *Section) error {
	if s.Name != other.Name {
		return fmt.Errorf("aggregating section %s into %s", other.Name, s.Name)
	}

	for key, theirs := range other.Counters {
		s.Counter(key).aggregate(theirs)
	}
	for key, theirs := range other.Ratios {
		s.Ratio(key).aggregate(theirs)
	}
	for key, theirs := range other.Breakdowns {
		s.Breakdown(key).aggregate(theirs)
	}
	for key, theirs := range other.SampleInt64s {
		s.SampleInt64(key).aggregate(theirs)
	}
	for key, theirs := range other.SampleBytes {
		s.SampleByte(key).aggregate(theirs)
	}
	for key, theirs := range other.SampleDurations {
		s.SampleDuration(key).aggregate(theirs)
	}
	for key, theirs := range other.CounterDistributions {
		s.CounterDistribution(key).aggregate(theirs)
	}
	return nil
}
