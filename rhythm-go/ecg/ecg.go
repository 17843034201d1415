// Package ecg defines the domain types shared by the corpus pipeline:
// the Reader interface over a raw ECG database, half-open intervals,
// binary label masks and per-sample loss weighting.
package ecg

import (
	"sort"
	"strings"
)

// Subject labels used by the stratified train/test split.
const (
	LabelAFParoxysmal = "AFp"
	LabelAFPersistent = "AFf"
	LabelNormal       = "N"
)

// Interval is a half-open [Start, End) index range, in samples or in
// beats depending on the domain of its producer.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of indices covered by the interval.
func (i Interval) Len() int {
	return i.End - i.Start
}

// Contains reports whether x falls inside the interval.
func (i Interval) Contains(x int) bool {
	return i.Start <= x && x < i.End
}

// SubjectStat is one row of the per-subject label table.
type SubjectStat struct {
	Subject string `csv:"subject_id"`
	Label   string `csv:"label"`
}

// Reader provides raw records, annotations and subject metadata from an
// ECG database. Implementations must be safe for concurrent readers.
//
// Record names follow the pattern data_<subject>_<ordinal>. The from/to
// arguments select the sample window [from, to) of a record; to <= 0
// means the end of the record. With keepOriginal the returned indices
// stay in whole-record coordinates, otherwise they are shifted by -from.
type Reader interface {
	// LoadData returns the full record as leads x samples, in mV.
	LoadData(rec string) ([][]float64, error)

	// LoadRpeaks returns the r-peak sample indices of rec within
	// [from, to).
	LoadRpeaks(rec string, from, to int, keepOriginal bool) ([]int, error)

	// LoadAFIntervals returns the atrial-fibrillation episodes of rec
	// clipped to [from, to). Empty episodes after clipping are dropped.
	LoadAFIntervals(rec string, from, to int, keepOriginal bool) ([]Interval, error)

	// SubjectOf returns the subject a record belongs to.
	SubjectOf(rec string) string

	AllRecords() []string
	RecordsOf(subject string) []string
	AllSubjects() []string

	// SubjectStats returns the per-subject label table.
	SubjectStats() ([]SubjectStat, error)

	// Fs returns the sampling frequency in Hz.
	Fs() float64
}

// ParseRecordName splits a data_<subject>_<ordinal> record name into
// its subject. ok is false when rec does not follow the pattern.
func ParseRecordName(rec string) (subject string, ok bool) {
	parts := strings.Split(rec, "_")
	if len(parts) != 3 || parts[0] != "data" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1], true
}

// LoadAFMask returns the per-sample AF mask of a whole record: 1 inside
// an AF episode, 0 elsewhere.
func LoadAFMask(r Reader, rec string, siglen int) ([]int, error) {
	itvs, err := r.LoadAFIntervals(rec, 0, 0, true)
	if err != nil {
		return nil, err
	}
	return IntervalsToMask(itvs, siglen), nil
}

// sortedKeys returns the keys of subject -> records maps in a stable
// order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
