// Package dataset builds and serves training corpora sliced from long
// two-lead ECG records: fixed-length signal segments for QRS detection
// and AF sequence tagging, and RR-interval sequences for beat-domain
// models. Slicing is deterministic given a seed. Artifacts are MAT
// files under per-subject directories; a JSON index tracks what exists
// and the filesystem wins on rebuild.
package dataset

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/diskcache"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
)

// cacheOps are the conditioning steps that participate in the
// preprocess cache key; other steps do not invalidate cached records.
var cacheOps = []string{"bandpass", "baseline_remove"}

// PreprocManager is a signal conditioning pipeline: the record-level
// one backs the preprocess cache, the per-item one runs inside the fast
// readers.
type PreprocManager interface {
	// Apply conditions a leads x samples signal and returns the result
	// with its (possibly changed) sampling frequency.
	Apply(sig [][]float64, fs float64) ([][]float64, float64, error)
	// Names lists the pipeline's step names in application order.
	Names() []string
}

// Options configures a Dataset.
type Options struct {
	// Reader serves raw records and annotations.
	Reader ecg.Reader
	// Config drives slicing and storage.
	Config Config
	// Preproc is the record-level pipeline backing the preprocess
	// cache. nil caches records as-is.
	Preproc PreprocManager
	// ItemPreproc is the per-artifact pipeline the fast readers apply.
	// It should not repeat the record-level filtering; segments are
	// sliced from already conditioned records. nil disables it.
	ItemPreproc PreprocManager
	// Task selects the artifact family this view works over.
	Task Task
}

// Dataset is a task-scoped view over one corpus directory. It slices
// preprocessed records into persisted artifacts, keeps the artifact
// index and hands out fast readers over the results.
//
// Views over other tasks come from WithTask; they share the reader and
// the preprocess cache but own their index and random source, so
// switching tasks never mutates an existing view.
type Dataset struct {
	opts  Options
	cfg   Config
	task  Task
	rng   *rand.Rand
	cache *diskcache.Cache
	index *Index
}

// New validates opts and opens a Dataset view, creating the artifact
// directories as needed.
func New(opts Options) (*Dataset, error) {
	if opts.Reader == nil {
		return nil, ConfigurationError{Reason: "reader must be set"}
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	cache, err := diskcache.Open(filepath.Join(opts.Config.DBDir, "preprocessed"))
	if err != nil {
		return nil, errors.Wrapf(err, "opening preprocess cache")
	}
	d := &Dataset{
		opts:  opts,
		cfg:   opts.Config,
		task:  opts.Task,
		rng:   rand.New(rand.NewSource(opts.Config.Seed)),
		cache: cache,
	}
	subjects := opts.Reader.AllSubjects()
	var dirs []string
	if d.task.segmental() {
		for _, subject := range subjects {
			dirs = append(dirs, d.segmentDataDir(subject), d.segmentAnnDir(subject))
		}
		d.index = newIndex(filepath.Join(d.segmentsDir(), "segments.json"), subjects, d.segmentDataDir)
	} else {
		for _, subject := range subjects {
			dirs = append(dirs, d.rrDir(subject))
		}
		d.index = newIndex(filepath.Join(d.rrBaseDir(), "rr_seq.json"), subjects, d.rrDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, errors.Wrapf(err, "creating artifact dir")
		}
	}
	return d, nil
}

// WithTask returns a view over task t's artifacts.
func (d *Dataset) WithTask(t Task) (*Dataset, error) {
	if t == d.task {
		return d, nil
	}
	opts := d.opts
	opts.Task = t
	return New(opts)
}

// Task returns the task this view works over.
func (d *Dataset) Task() Task {
	return d.task
}

// Reader returns the underlying record reader.
func (d *Dataset) Reader() ecg.Reader {
	return d.opts.Reader
}

// Index returns the artifact index of this view's task.
func (d *Dataset) Index() *Index {
	return d.index
}

func (d *Dataset) segmentsDir() string {
	return filepath.Join(d.cfg.DBDir, "segments")
}

func (d *Dataset) segmentDataDir(subject string) string {
	return filepath.Join(d.segmentsDir(), "data", subject)
}

func (d *Dataset) segmentAnnDir(subject string) string {
	return filepath.Join(d.segmentsDir(), "ann", subject)
}

func (d *Dataset) rrBaseDir() string {
	return filepath.Join(d.cfg.DBDir, "rr_seq")
}

func (d *Dataset) rrDir(subject string) string {
	return filepath.Join(d.rrBaseDir(), subject)
}

// cacheSuffix is the sorted intersection of the record pipeline's step
// names with the cache-relevant operations.
func (d *Dataset) cacheSuffix() string {
	if d.opts.Preproc == nil {
		return ""
	}
	var ops []string
	for _, op := range cacheOps {
		for _, name := range d.opts.Preproc.Names() {
			if strings.ToLower(name) == op {
				ops = append(ops, op)
				break
			}
		}
	}
	sort.Strings(ops)
	return strings.Join(ops, "-")
}

// cacheKey is the preprocess cache file name of a record, e.g.
// data_101_1-bandpass-baseline_remove.mat.
func (d *Dataset) cacheKey(rec string) string {
	return rec + "-" + d.cacheSuffix() + matExt
}

// PreprocessRecords runs the record pipeline over recs (all records
// when empty) and caches the results under <db>/preprocessed. Cached
// records are skipped unless force is set. A failing record does not
// stop the batch; the failures come back combined.
func (d *Dataset) PreprocessRecords(recs []string, force bool) error {
	if len(recs) == 0 {
		recs = d.opts.Reader.AllRecords()
	}
	var errs errors.Errors
	for _, rec := range recs {
		if err := d.preprocessRecord(rec, force); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "preprocessing %s", rec))
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

func (d *Dataset) preprocessRecord(rec string, force bool) error {
	key := d.cacheKey(rec)
	if !force && d.cache.Exists(key) {
		return nil
	}
	sig, err := d.opts.Reader.LoadData(rec)
	if err != nil {
		return err
	}
	if d.opts.Preproc != nil {
		if sig, _, err = d.opts.Preproc.Apply(sig, d.cfg.Fs); err != nil {
			return err
		}
	}
	m, err := matfile.FromRows(sig)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := matfile.Write(&buf, map[string]matfile.Matrix{"ecg": m}); err != nil {
		return err
	}
	return d.cache.Put(key, buf.Bytes())
}

// LoadPreprocessedRecord returns the cached conditioned signal of rec
// as leads x samples. It never recomputes: a missing cache entry is an
// ArtifactNotFoundError.
func (d *Dataset) LoadPreprocessedRecord(rec string) ([][]float64, error) {
	key := d.cacheKey(rec)
	r, err := d.cache.GetReader(key)
	if err == diskcache.ErrNoSuchKey {
		return nil, ArtifactNotFoundError{Kind: "preprocessed record", Name: rec}
	} else if err != nil {
		return nil, errors.Wrapf(err, "opening %s", key)
	}
	defer r.Close()
	vars, err := matfile.Read(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	m, ok := vars["ecg"]
	if !ok {
		return nil, errors.Errorf("%s has no ecg variable", key)
	}
	if m.Rows > m.Cols {
		m = m.T()
	}
	return m.ToRows(), nil
}

// hasArtifacts reports whether any indexed artifact derives from rec.
func (d *Dataset) hasArtifacts(rec, subject string) (bool, error) {
	names, err := d.index.List(subject)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if RecordOfArtifact(name) == rec {
			return true, nil
		}
	}
	return false, nil
}

// randBetween draws uniformly from [low, high].
func randBetween(rng *rand.Rand, low, high int) int {
	return low + rng.Intn(high-low+1)
}

// uniform draws uniformly from [low, high).
func uniform(rng *rand.Rand, low, high float64) float64 {
	return low + rng.Float64()*(high-low)
}
