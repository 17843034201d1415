package dataset

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/sigproc"
)

// Segment is one persisted fixed-length window of a record.
type Segment struct {
	// Data is the conditioned signal, leads x SegLen.
	Data [][]float64
	// Rpeaks are the segment-local rpeak indices, filtered to an inner
	// margin away from the borders.
	Rpeaks []int
	// QRSMask marks a window around each rpeak.
	QRSMask []int
	// AFMask marks samples inside an AF episode.
	AFMask []int
	// Interval is the source window [start, end) in record coordinates,
	// before any stretch/compress resampling.
	Interval ecg.Interval
}

// SliceSegments slices recs (all records when empty) into segments.
// Records that already have indexed segments are skipped unless force
// is set, which regenerates them. The index file is rewritten only when
// updateIndex is true. A failing record does not stop the batch.
func (d *Dataset) SliceSegments(recs []string, force, updateIndex bool) error {
	if !d.task.segmental() {
		return UnsupportedTaskError{Task: d.task, Op: "slicing segments"}
	}
	if len(recs) == 0 {
		recs = d.opts.Reader.AllRecords()
	}
	var errs errors.Errors
	for _, rec := range recs {
		if err := d.sliceSegmentsRecord(rec, force); err != nil {
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

func (d *Dataset) sliceSegmentsRecord(rec string, force bool) error {
	subject := d.opts.Reader.SubjectOf(rec)
	has, err := d.hasArtifacts(rec, subject)
	if err != nil {
		return err
	}
	if has && !force {
		return nil
	}
	if force {
		if err := d.clearSegmentsRecord(rec, subject); err != nil {
			return err
		}
	}

	data, err := d.LoadPreprocessedRecord(rec)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.Errorf("record %s has no leads", rec)
	}
	scfg := d.cfg.Segment
	siglen := len(data[0])
	if siglen < scfg.SegLen {
		return nil
	}

	afMask, err := ecg.LoadAFMask(d.opts.Reader, rec, siglen)
	if err != nil {
		return err
	}

	forwardLen := scfg.SegLen - scfg.OverlapLen
	cfl := scfg.SegLen - scfg.CriticalOverlapLen
	cflLow, cflHigh := cfl/4, cfl

	var segments []Segment
	for idx := 0; idx <= (siglen-scfg.SegLen)/forwardLen; idx++ {
		seg, err := d.generateSegment(rec, data, idx*forwardLen, -1)
		if err != nil {
			return err
		}
		segments = append(segments, seg)
	}
	tail, err := d.generateSegment(rec, data, -1, siglen)
	if err != nil {
		return err
	}
	segments = append(segments, tail)

	for _, cp := range criticalPoints(afMask, cflHigh) {
		start := cp - scfg.SegLen + randBetween(d.rng, cflLow, cflHigh)
		if start < 0 {
			start = 0
		}
		limit := cp - cflHigh
		if m := siglen - scfg.SegLen; m < limit {
			limit = m
		}
		for start <= limit {
			seg, err := d.generateSegment(rec, data, start, -1)
			if err != nil {
				return err
			}
			segments = append(segments, seg)
			start += randBetween(d.rng, cflLow, cflHigh)
		}
	}

	segmentsPerRecord.Record(int64(len(segments)))
	return d.saveSegments(rec, subject, segments)
}

// criticalPoints returns the label transition positions of mask that
// lie at least margin away from both ends.
func criticalPoints(mask []int, margin int) []int {
	var out []int
	for i := 1; i < len(mask); i++ {
		if mask[i] == mask[i-1] {
			continue
		}
		if p := i - 1; p >= margin && p < len(mask)-margin {
			out = append(out, p)
		}
	}
	return out
}

// generateSegment cuts one segment anchored at startIdx, or at endIdx
// when startIdx is negative. With stretch/compress enabled the source
// window is resampled to SegLen and the annotations are rescaled by the
// same ratio so the masks stay aligned.
func (d *Dataset) generateSegment(rec string, data [][]float64, startIdx, endIdx int) (Segment, error) {
	scfg := d.cfg.Segment
	seglen := scfg.SegLen
	siglen := len(data[0])

	start, end := startIdx, endIdx
	ratio := 1.0
	stretched := false
	if scfg.StretchCompress != 0 {
		signs := [3]int{0, 1, -1}
		if sign := signs[d.rng.Intn(len(signs))]; sign != 0 {
			draw := uniform(d.rng, scfg.StretchCompress/4, scfg.StretchCompress)
			ratio = 1 + draw*float64(sign)/100
			scLen := int(math.Round(ratio * float64(seglen)))
			if startIdx >= 0 {
				end = start + scLen
			} else {
				start = end - scLen
			}
			if end > siglen {
				end = siglen
				start = end - scLen
			}
			if start < 0 {
				start = 0
			}
			if end-start != scLen {
				ratio = float64(end-start) / float64(seglen)
			}
			stretched = true
		}
	}
	if !stretched {
		if startIdx >= 0 {
			end = start + seglen
			if end > siglen {
				end = siglen
				start = end - seglen
			}
		} else {
			start = end - seglen
			if start < 0 {
				start = 0
				end = seglen
			}
		}
	}

	seg := Segment{
		Data:     make([][]float64, len(data)),
		Interval: ecg.Interval{Start: start, End: end},
	}
	for i, lead := range data {
		window := lead[start:end]
		if stretched {
			seg.Data[i] = sigproc.Resample(window, seglen)
		} else {
			seg.Data[i] = append([]float64(nil), window...)
		}
	}

	rpeaks, err := d.opts.Reader.LoadRpeaks(rec, start, end, false)
	if err != nil {
		return Segment{}, err
	}
	var qrsItvs []ecg.Interval
	for _, r := range rpeaks {
		if r < scfg.RpeaksDist2Border || r >= seglen-scfg.RpeaksDist2Border {
			continue
		}
		r = int(math.Round(float64(r) / ratio))
		seg.Rpeaks = append(seg.Rpeaks, r)
		qrsItvs = append(qrsItvs, ecg.Interval{Start: r - scfg.QRSMaskBias, End: r + scfg.QRSMaskBias})
	}
	seg.QRSMask = ecg.IntervalsToMask(qrsItvs, seglen)

	afItvs, err := d.opts.Reader.LoadAFIntervals(rec, start, end, false)
	if err != nil {
		return Segment{}, err
	}
	scaled := make([]ecg.Interval, 0, len(afItvs))
	for _, itv := range afItvs {
		scaled = append(scaled, ecg.Interval{
			Start: int(math.Round(float64(itv.Start) / ratio)),
			End:   int(math.Round(float64(itv.End) / ratio)),
		})
	}
	seg.AFMask = ecg.IntervalsToMask(scaled, seglen)

	return seg, nil
}

// saveSegments persists the segments of one record in shuffled order
// and registers them with the in-memory index.
func (d *Dataset) saveSegments(rec, subject string, segments []Segment) error {
	dataDir, annDir := d.segmentDataDir(subject), d.segmentAnnDir(subject)
	for _, dir := range []string{dataDir, annDir} {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return errors.Wrapf(err, "creating segment dir")
		}
	}
	for i, idx := range d.rng.Perm(len(segments)) {
		seg := segments[idx]
		name := artifactName(d.task, rec, i)
		data, err := matfile.FromRows(seg.Data)
		if err != nil {
			return err
		}
		dataPath := filepath.Join(dataDir, name+matExt)
		if err := matfile.WriteFile(dataPath, map[string]matfile.Matrix{"ecg": data}); err != nil {
			return errors.Wrapf(err, "writing segment %s", name)
		}
		if info, err := os.Stat(dataPath); err == nil {
			artifactBytes.Record(info.Size())
		}
		ann := map[string]matfile.Matrix{
			"rpeaks":   matfile.FromInts(seg.Rpeaks),
			"qrs_mask": matfile.FromInts(seg.QRSMask),
			"af_mask":  matfile.FromInts(seg.AFMask),
			"interval": matfile.FromInts([]int{seg.Interval.Start, seg.Interval.End}),
		}
		if err := matfile.WriteFile(filepath.Join(annDir, name+matExt), ann); err != nil {
			return errors.Wrapf(err, "writing segment annotation %s", name)
		}
		if err := d.index.Append(subject, name); err != nil {
			return err
		}
	}
	return nil
}

// LoadSegment loads a persisted segment with its annotations.
func (d *Dataset) LoadSegment(name string) (Segment, error) {
	if !d.task.segmental() {
		return Segment{}, UnsupportedTaskError{Task: d.task, Op: "loading segments"}
	}
	subject := SubjectOfArtifact(name)
	dataPath := filepath.Join(d.segmentDataDir(subject), name+matExt)
	if _, err := os.Stat(dataPath); os.IsNotExist(err) {
		return Segment{}, ArtifactNotFoundError{Kind: "segment", Name: name}
	}
	vars, err := matfile.ReadFile(dataPath)
	if err != nil {
		return Segment{}, err
	}
	m, ok := vars["ecg"]
	if !ok {
		return Segment{}, errors.Errorf("segment %s has no ecg variable", name)
	}
	seg := Segment{Data: m.ToRows()}

	ann, err := matfile.ReadFile(filepath.Join(d.segmentAnnDir(subject), name+matExt))
	if err != nil {
		return Segment{}, err
	}
	for _, key := range []string{"rpeaks", "qrs_mask", "af_mask", "interval"} {
		if _, ok := ann[key]; !ok {
			return Segment{}, errors.Errorf("segment %s has no %s variable", name, key)
		}
	}
	seg.Rpeaks = ann["rpeaks"].Ints()
	seg.QRSMask = ann["qrs_mask"].Ints()
	seg.AFMask = ann["af_mask"].Ints()
	itv := ann["interval"].Ints()
	if len(itv) != 2 {
		return Segment{}, errors.Errorf("segment %s has a malformed interval", name)
	}
	seg.Interval = ecg.Interval{Start: itv[0], End: itv[1]}
	return seg, nil
}

// ClearSegments deletes the persisted segments of recs (all records
// when empty) and drops them from the index; the index file is
// rewritten at the end so both views stay in sync.
func (d *Dataset) ClearSegments(recs []string) error {
	if !d.task.segmental() {
		return UnsupportedTaskError{Task: d.task, Op: "clearing segments"}
	}
	if len(recs) == 0 {
		recs = d.opts.Reader.AllRecords()
	}
	for _, rec := range recs {
		if err := d.clearSegmentsRecord(rec, d.opts.Reader.SubjectOf(rec)); err != nil {
			return err
		}
	}
	return d.index.Persist()
}

func (d *Dataset) clearSegmentsRecord(rec, subject string) error {
	for _, dir := range []string{d.segmentDataDir(subject), d.segmentAnnDir(subject)} {
		entries, err := ioutil.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
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
	}
	return nil
}
