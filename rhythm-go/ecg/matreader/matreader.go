// Package matreader provides a directory-backed ecg.Reader. A database
// directory holds one MAT file per record, named data_<subject>_<ord>.mat
// with variables ecg (leads x samples), rpeaks and optionally
// af_intervals (episodes x 2), plus a stats.csv subject label table.
package matreader

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
)

// StatsFile is the name of the per-subject label table inside a
// database directory.
const StatsFile = "stats.csv"

// Reader reads records from a database directory. It is safe for
// concurrent use; record files are opened on demand.
type Reader struct {
	dir      string
	fs       float64
	paths    map[string]string
	subjects map[string][]string
}

var _ ecg.Reader = (*Reader)(nil)

// Open scans dir for record files. fs is the sampling frequency of the
// database (all records share it).
func Open(dir string, fs float64) (*Reader, error) {
	if fs <= 0 {
		return nil, errors.Errorf("sampling frequency must be positive, got %g", fs)
	}
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning database dir %s", dir)
	}
	r := &Reader{
		dir:      dir,
		fs:       fs,
		paths:    make(map[string]string),
		subjects: make(map[string][]string),
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".mat") {
			continue
		}
		rec := strings.TrimSuffix(name, ".mat")
		subject, ok := ecg.ParseRecordName(rec)
		if !ok {
			continue
		}
		r.paths[rec] = filepath.Join(dir, name)
		r.subjects[subject] = append(r.subjects[subject], rec)
	}
	if len(r.paths) == 0 {
		return nil, errors.Errorf("no record files in %s", dir)
	}
	for _, recs := range r.subjects {
		sort.Strings(recs)
	}
	return r, nil
}

func (r *Reader) load(rec string) (map[string]matfile.Matrix, error) {
	path, ok := r.paths[rec]
	if !ok {
		return nil, errors.Errorf("no record %s", rec)
	}
	vars, err := matfile.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading record %s", rec)
	}
	return vars, nil
}

// LoadData implements ecg.Reader. Traces stored samples x leads are
// transposed; a trace always has more samples than leads.
func (r *Reader) LoadData(rec string) ([][]float64, error) {
	vars, err := r.load(rec)
	if err != nil {
		return nil, err
	}
	m, ok := vars["ecg"]
	if !ok {
		return nil, errors.Errorf("record %s has no ecg variable", rec)
	}
	if m.Rows > m.Cols {
		m = m.T()
	}
	return m.ToRows(), nil
}

// LoadRpeaks implements ecg.Reader.
func (r *Reader) LoadRpeaks(rec string, from, to int, keepOriginal bool) ([]int, error) {
	vars, err := r.load(rec)
	if err != nil {
		return nil, err
	}
	m, ok := vars["rpeaks"]
	if !ok {
		return nil, errors.Errorf("record %s has no rpeaks variable", rec)
	}
	var out []int
	for _, v := range m.Ints() {
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

// LoadAFIntervals implements ecg.Reader. Records without the
// af_intervals variable have no episodes.
func (r *Reader) LoadAFIntervals(rec string, from, to int, keepOriginal bool) ([]ecg.Interval, error) {
	vars, err := r.load(rec)
	if err != nil {
		return nil, err
	}
	m, ok := vars["af_intervals"]
	if !ok {
		return nil, nil
	}
	if m.NumEl() > 0 && m.Cols != 2 {
		return nil, errors.Errorf("record %s af_intervals has %d columns, want 2", rec, m.Cols)
	}
	var out []ecg.Interval
	for i := 0; i < m.Rows; i++ {
		lo, hi := int(m.At(i, 0)), int(m.At(i, 1))
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
		out = append(out, ecg.Interval{Start: lo, End: hi})
	}
	return out, nil
}

// SubjectOf implements ecg.Reader.
func (r *Reader) SubjectOf(rec string) string {
	subject, _ := ecg.ParseRecordName(rec)
	return subject
}

// AllRecords implements ecg.Reader.
func (r *Reader) AllRecords() []string {
	out := make([]string, 0, len(r.paths))
	for rec := range r.paths {
		out = append(out, rec)
	}
	sort.Strings(out)
	return out
}

// RecordsOf implements ecg.Reader.
func (r *Reader) RecordsOf(subject string) []string {
	return r.subjects[subject]
}

// AllSubjects implements ecg.Reader.
func (r *Reader) AllSubjects() []string {
	out := make([]string, 0, len(r.subjects))
	for subject := range r.subjects {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

// SubjectStats implements ecg.Reader, reading the stats.csv table.
func (r *Reader) SubjectStats() ([]ecg.SubjectStat, error) {
	f, err := os.Open(filepath.Join(r.dir, StatsFile))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", StatsFile)
	}
	defer f.Close()
	var rows []ecg.SubjectStat
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", StatsFile)
	}
	return rows, nil
}

// Fs implements ecg.Reader.
func (r *Reader) Fs() float64 {
	return r.fs
}
