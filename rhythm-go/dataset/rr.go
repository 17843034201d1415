package dataset

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
)

// RRSequence is one persisted window of beat-to-beat intervals.
type RRSequence struct {
	// RR holds the intervals in seconds, SeqLen of them.
	RR []float64
	// Label marks beats that fall inside an AF episode.
	Label []int
	// Interval is the window [start, end) in beat indices of the source
	// record.
	Interval ecg.Interval
}

// SliceRRSequences slices recs (all records when empty) into
// RR-interval sequences. Records that already have indexed sequences
// are skipped unless force is set, which regenerates them. The index
// file is rewritten only when updateIndex is true. A failing record
// does not stop the batch.
func (d *Dataset) SliceRRSequences(recs []string, force, updateIndex bool) error {
	if d.task != TaskRRLSTM {
		return UnsupportedTaskError{Task: d.task, Op: "slicing rr sequences"}
	}
	if len(recs) == 0 {
		recs = d.opts.Reader.AllRecords()
	}
	var errs errors.Errors
	for _, rec := range recs {
		if err := d.sliceRRRecord(rec, force); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "slicing %s", rec))
		}
	}
	if updateIndex {
		if err := d.index.Persist(); err != nil {
			errs = errors.Append(errs, err)
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

func (d *Dataset) sliceRRRecord(rec string, force bool) error {
	subject := d.opts.Reader.SubjectOf(rec)
	has, err := d.hasArtifacts(rec, subject)
	if err != nil {
		return err
	}
	if has && !force {
		return nil
	}
	if force {
		if err := d.clearRRRecord(rec, subject); err != nil {
			return err
		}
	}

	rpeaks, err := d.opts.Reader.LoadRpeaks(rec, 0, 0, false)
	if err != nil {
		return err
	}
	rcfg := d.cfg.RR
	if len(rpeaks) < rcfg.SeqLen+1 {
		return nil
	}
	rr := make([]float64, len(rpeaks)-1)
	for i := range rr {
		rr[i] = float64(rpeaks[i+1]-rpeaks[i]) / d.cfg.Fs
	}

	afItvs, err := d.opts.Reader.LoadAFIntervals(rec, 0, 0, false)
	if err != nil {
		return err
	}
	labels := make([]int, len(rr))
	for i := range labels {
		labels[i] = afLabel(afItvs, rpeaks[i])
	}

	forwardLen := rcfg.SeqLen - rcfg.OverlapLen
	cfl := rcfg.SeqLen - rcfg.CriticalOverlapLen
	cflLow, cflHigh := cfl-2, cfl

	var seqs []RRSequence
	end := 0
	for idx := 0; idx <= (len(rr)-rcfg.SeqLen)/forwardLen; idx++ {
		start := idx * forwardLen
		end = start + rcfg.SeqLen
		seqs = append(seqs, cutRR(rr, labels, start, end))
	}
	if end < len(rr) {
		seqs = append(seqs, cutRR(rr, labels, len(rr)-rcfg.SeqLen, len(rr)))
	}

	for _, cp := range criticalPoints(labels, cflHigh) {
		start := cp - rcfg.SeqLen + randBetween(d.rng, cflLow, cflHigh)
		if start < 0 {
			start = 0
		}
		limit := cp - cflHigh
		if m := len(rr) - rcfg.SeqLen; m < limit {
			limit = m
		}
		for start <= limit {
			seqs = append(seqs, cutRR(rr, labels, start, start+rcfg.SeqLen))
			start += randBetween(d.rng, cflLow, cflHigh)
		}
	}

	rrSeqsPerRecord.Record(int64(len(seqs)))
	return d.saveRRSequences(rec, subject, seqs)
}

// afLabel reports whether a sample index falls inside any AF episode.
func afLabel(itvs []ecg.Interval, idx int) int {
	for _, itv := range itvs {
		if itv.Contains(idx) {
			return 1
		}
	}
	return 0
}

func cutRR(rr []float64, labels []int, start, end int) RRSequence {
	return RRSequence{
		RR:       append([]float64(nil), rr[start:end]...),
		Label:    append([]int(nil), labels[start:end]...),
		Interval: ecg.Interval{Start: start, End: end},
	}
}

// saveRRSequences persists the sequences of one record in shuffled
// order and registers them with the in-memory index.
func (d *Dataset) saveRRSequences(rec, subject string, seqs []RRSequence) error {
	dir := d.rrDir(subject)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "creating rr dir")
	}
	for i, idx := range d.rng.Perm(len(seqs)) {
		seq := seqs[idx]
		name := artifactName(d.task, rec, i)
		vars := map[string]matfile.Matrix{
			"rr":       matfile.FromVector(seq.RR),
			"label":    matfile.FromInts(seq.Label),
			"interval": matfile.FromInts([]int{seq.Interval.Start, seq.Interval.End}),
		}
		path := filepath.Join(dir, name+matExt)
		if err := matfile.WriteFile(path, vars); err != nil {
			return errors.Wrapf(err, "writing rr sequence %s", name)
		}
		if info, err := os.Stat(path); err == nil {
			artifactBytes.Record(info.Size())
		}
		if err := d.index.Append(subject, name); err != nil {
			return err
		}
	}
	return nil
}

// LoadRRSequence loads a persisted rr sequence.
func (d *Dataset) LoadRRSequence(name string) (RRSequence, error) {
	if d.task != TaskRRLSTM {
		return RRSequence{}, UnsupportedTaskError{Task: d.task, Op: "loading rr sequences"}
	}
	subject := SubjectOfArtifact(name)
	path := filepath.Join(d.rrDir(subject), name+matExt)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return RRSequence{}, ArtifactNotFoundError{Kind: "rr sequence", Name: name}
	}
	vars, err := matfile.ReadFile(path)
	if err != nil {
		return RRSequence{}, err
	}
	for _, key := range []string{"rr", "label", "interval"} {
		if _, ok := vars[key]; !ok {
			return RRSequence{}, errors.Errorf("rr sequence %s has no %s variable", name, key)
		}
	}
	itv := vars["interval"].Ints()
	if len(itv) != 2 {
		return RRSequence{}, errors.Errorf("rr sequence %s has a malformed interval", name)
	}
	return RRSequence{
		RR:       vars["rr"].Vector(),
		Label:    vars["label"].Ints(),
		Interval: ecg.Interval{Start: itv[0], End: itv[1]},
	}, nil
}

// ClearRRSequences deletes the persisted sequences of recs (all records
// when empty) and drops them from the index; the index file is
// rewritten at the end so both views stay in sync.
func (d *Dataset) ClearRRSequences(recs []string) error {
	if d.task != TaskRRLSTM {
		return UnsupportedTaskError{Task: d.task, Op: "clearing rr sequences"}
	}
	if len(recs) == 0 {
		recs = d.opts.Reader.AllRecords()
	}
	for _, rec := range recs {
		if err := d.clearRRRecord(rec, d.opts.Reader.SubjectOf(rec)); err != nil {
			return err
		}
	}
	return d.index.Persist()
}

func (d *Dataset) clearRRRecord(rec, subject string) error {
	dir := d.rrDir(subject)
	entries, err := ioutil.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "scanning %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), matExt) {
			continue
		}
		if RecordOfArtifact(entry.Name()) != rec {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrapf(err, "removing %s", entry.Name())
		}
		if err := d.index.Remove(subject, strings.TrimSuffix(entry.Name(), matExt)); err != nil {
			return err
		}
	}
	return nil
}
