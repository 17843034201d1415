package ecg

import (
	"sort"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// MemRecord is a single in-memory ECG record.
type MemRecord struct {
	Subject string
	Data    [][]float64
	Rpeaks  []int
	AF      []Interval
}

// MemReader is an in-memory Reader, for synthetic corpora and tests.
type MemReader struct {
	SampleRate float64
	Records    map[string]*MemRecord
	// Stats overrides the subject label table. When nil every subject
	// is reported as normal.
	Stats []SubjectStat
}

var _ Reader = (*MemReader)(nil)

func (m *MemReader) record(rec string) (*MemRecord, error) {
	r, ok := m.Records[rec]
	if !ok {
		return nil, errors.Errorf("no record %s", rec)
	}
	return r, nil
}

// LoadData implements Reader.
func (m *MemReader) LoadData(rec string) ([][]float64, error) {
	r, err := m.record(rec)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(r.Data))
	for i, lead := range r.Data {
		out[i] = append([]float64(nil), lead...)
	}
	return out, nil
}

// LoadRpeaks implements Reader.
func (m *MemReader) LoadRpeaks(rec string, from, to int, keepOriginal bool) ([]int, error) {
	r, err := m.record(rec)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, v := range r.Rpeaks {
		if v < from || (to > 0 && v >= to) {
			continue
		}
		if keepOriginal {
			out = append(out, v)
		} else {
			out = append(out, v-from)
		}
	}
	return out, nil
}

// LoadAFIntervals implements Reader.
func (m *MemReader) LoadAFIntervals(rec string, from, to int, keepOriginal bool) ([]Interval, error) {
	r, err := m.record(rec)
	if err != nil {
		return nil, err
	}
	var out []Interval
	for _, itv := range r.AF {
		lo, hi := itv.Start, itv.End
		if lo < from {
			lo = from
		}
		if to > 0 && hi > to {
			hi = to
		}
		if lo >= hi {
			continue
		}
		if !keepOriginal {
			lo -= from
			hi -= from
		}
		out = append(out, Interval{Start: lo, End: hi})
	}
	return out, nil
}

// SubjectOf implements Reader. Unknown records map to the empty subject.
func (m *MemReader) SubjectOf(rec string) string {
	if r, ok := m.Records[rec]; ok {
		return r.Subject
	}
	return ""
}

// AllRecords implements Reader.
func (m *MemReader) AllRecords() []string {
	out := make([]string, 0, len(m.Records))
	for name := range m.Records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RecordsOf implements Reader.
func (m *MemReader) RecordsOf(subject string) []string {
	return m.groups()[subject]
}

// AllSubjects implements Reader.
func (m *MemReader) AllSubjects() []string {
	return sortedKeys(m.groups())
}

// SubjectStats implements Reader.
func (m *MemReader) SubjectStats() ([]SubjectStat, error) {
	if m.Stats != nil {
		return m.Stats, nil
	}
	var out []SubjectStat
	for _, subject := range m.AllSubjects() {
		out = append(out, SubjectStat{Subject: subject, Label: LabelNormal})
	}
	return out, nil
}

// Fs implements Reader.
func (m *MemReader) Fs() float64 {
	return m.SampleRate
}

func (m *MemReader) groups() map[string][]string {
	g := make(map[string][]string)
	for name, r := range m.Records {
		g[r.Subject] = append(g[r.Subject], name)
	}
	for _, names := range g {
		sort.Strings(names)
	}
	return g
}
