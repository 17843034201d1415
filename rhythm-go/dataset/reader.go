package dataset

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/sigproc"
)

// Loss weighting applied by the fast readers: label transitions get
// extra weight within a fixed radius (0.8 s for segments, 2 beats for
// rr sequences).
const (
	weightForeground = 2
	weightBoundary   = 5
	segmentRadius    = 0.8
	rrRadius         = 2
	rrFs             = 1 / 0.8
)

// SegmentItem is one training example served by a SegmentReader.
type SegmentItem struct {
	// Data is the conditioned segment, leads x SegLen.
	Data [][]float64
	// Label is the task's per-sample mask, pooled by Reduction.
	Label []int
	// Weight is the per-entry loss weight; nil for qrs detection.
	Weight []float64
}

// SegmentReader serves segment items by position. Items are cached in a
// fixed-size LRU; callers must not mutate returned slices.
type SegmentReader struct {
	ds    *Dataset
	names []string
	cache *lru.Cache
}

// SegmentReader returns a reader over the named segments, or over every
// indexed segment when names is empty.
func (d *Dataset) SegmentReader(names []string) (*SegmentReader, error) {
	if !d.task.segmental() {
		return nil, UnsupportedTaskError{Task: d.task, Op: "reading segments"}
	}
	if len(names) == 0 {
		var err error
		if names, err = d.index.AllNames(); err != nil {
			return nil, err
		}
	}
	cache, err := lru.New(d.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &SegmentReader{ds: d, names: names, cache: cache}, nil
}

// Len returns the number of items served.
func (r *SegmentReader) Len() int {
	return len(r.names)
}

// Names returns the artifact names served, in position order.
func (r *SegmentReader) Names() []string {
	return append([]string(nil), r.names...)
}

// Get loads, conditions and labels the i-th item.
func (r *SegmentReader) Get(i int) (SegmentItem, error) {
	if i < 0 || i >= len(r.names) {
		return SegmentItem{}, errors.Errorf("segment index %d out of range [0,%d)", i, len(r.names))
	}
	name := r.names[i]
	if v, ok := r.cache.Get(name); ok {
		cacheLookups.Hit()
		return v.(SegmentItem), nil
	}
	cacheLookups.Miss()
	item, err := r.load(name)
	if err != nil {
		return SegmentItem{}, err
	}
	r.cache.Add(name, item)
	cachedItems.Set(int64(r.cache.Len()))
	return item, nil
}

func (r *SegmentReader) load(name string) (SegmentItem, error) {
	seg, err := r.ds.LoadSegment(name)
	if err != nil {
		return SegmentItem{}, err
	}
	for _, lead := range seg.Data {
		sigproc.RemoveSpikes(lead)
	}
	data := seg.Data
	if ppm := r.ds.opts.ItemPreproc; ppm != nil {
		if data, _, err = ppm.Apply(data, r.ds.cfg.Fs); err != nil {
			return SegmentItem{}, errors.Wrapf(err, "conditioning %s", name)
		}
	}

	label := seg.QRSMask
	if r.ds.task == TaskMain {
		label = seg.AFMask
	}
	reduction := r.ds.cfg.Segment.Reduction
	label = poolLabels(label, reduction)

	item := SegmentItem{Data: data, Label: label}
	if r.ds.task == TaskMain {
		item.Weight = ecg.WeightMask(label, weightForeground, r.ds.cfg.Fs, reduction, segmentRadius, weightBoundary)
	}
	return item, nil
}

// poolLabels reduces a label vector by truncated-mean pooling over
// non-overlapping windows, so a pooled entry of a binary mask is 1 only
// when its whole window is marked. The tail short of a full window is
// dropped.
func poolLabels(labels []int, reduction int) []int {
	if reduction <= 1 {
		return labels
	}
	out := make([]int, len(labels)/reduction)
	for i := range out {
		sum := 0
		for _, v := range labels[i*reduction : (i+1)*reduction] {
			sum += v
		}
		out[i] = sum / reduction
	}
	return out
}

// RRItem is one training example served by an RRReader.
type RRItem struct {
	// RR holds the beat-to-beat intervals in seconds.
	RR []float64
	// Label marks beats inside an AF episode.
	Label []int
	// Weight is the per-beat loss weight.
	Weight []float64
}

// RRReader serves rr-sequence items by position. Items are cached in a
// fixed-size LRU; callers must not mutate returned slices.
type RRReader struct {
	ds    *Dataset
	names []string
	cache *lru.Cache
}

// RRReader returns a reader over the named sequences, or over every
// indexed sequence when names is empty.
func (d *Dataset) RRReader(names []string) (*RRReader, error) {
	if d.task != TaskRRLSTM {
		return nil, UnsupportedTaskError{Task: d.task, Op: "reading rr sequences"}
	}
	if len(names) == 0 {
		var err error
		if names, err = d.index.AllNames(); err != nil {
			return nil, err
		}
	}
	cache, err := lru.New(d.cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &RRReader{ds: d, names: names, cache: cache}, nil
}

// Len returns the number of items served.
func (r *RRReader) Len() int {
	return len(r.names)
}

// Names returns the artifact names served, in position order.
func (r *RRReader) Names() []string {
	return append([]string(nil), r.names...)
}

// Get loads and weights the i-th item.
func (r *RRReader) Get(i int) (RRItem, error) {
	if i < 0 || i >= len(r.names) {
		return RRItem{}, errors.Errorf("rr sequence index %d out of range [0,%d)", i, len(r.names))
	}
	name := r.names[i]
	if v, ok := r.cache.Get(name); ok {
		cacheLookups.Hit()
		return v.(RRItem), nil
	}
	cacheLookups.Miss()
	seq, err := r.ds.LoadRRSequence(name)
	if err != nil {
		return RRItem{}, err
	}
	item := RRItem{
		RR:     seq.RR,
		Label:  seq.Label,
		Weight: ecg.WeightMask(seq.Label, weightForeground, rrFs, 1, rrRadius, weightBoundary),
	}
	r.cache.Add(name, item)
	cachedItems.Set(int64(r.cache.Len()))
	return item, nil
}
