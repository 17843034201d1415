package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
)

// segmentNamed finds the persisted segment cut from the given source
// window.
func segmentNamed(t *testing.T, ds *Dataset, subject string, want ecg.Interval) string {
	t.Helper()
	for name, seg := range loadAllSegments(t, ds, subject) {
		if seg.Interval == want {
			return name
		}
	}
	t.Fatalf("no segment over [%d, %d)", want.Start, want.End)
	return ""
}

func TestSegmentReaderQRSItems(t *testing.T) {
	ds := newTestDataset(t, TaskQRSDetection, segReader(nil), testConfig(t))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	reader, err := ds.SegmentReader(nil)
	require.NoError(t, err)
	assert.Equal(t, 6, reader.Len())

	item, err := reader.Get(0)
	require.NoError(t, err)
	require.Len(t, item.Data, 2)
	assert.Len(t, item.Data[0], 600)
	assert.Len(t, item.Label, 600)
	assert.Nil(t, item.Weight)

	seg, err := ds.LoadSegment(reader.Names()[0])
	require.NoError(t, err)
	assert.Equal(t, seg.QRSMask, item.Label)
}

func TestSegmentReaderMainItems(t *testing.T) {
	af := []ecg.Interval{{Start: 1000, End: 1500}}
	ds := newTestDataset(t, TaskMain, segReader(af), testConfig(t))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	name := segmentNamed(t, ds, "1", ecg.Interval{Start: 900, End: 1500})
	reader, err := ds.SegmentReader([]string{name})
	require.NoError(t, err)
	require.Equal(t, 1, reader.Len())

	item, err := reader.Get(0)
	require.NoError(t, err)
	for i, lab := range item.Label {
		want := 0
		if i >= 100 {
			want = 1
		}
		require.Equal(t, want, lab, "af label at %d", i)
	}
	require.Len(t, item.Weight, len(item.Label))
	assert.Equal(t, ecg.WeightMask(item.Label, 2, 200, 1, 0.8, 5), item.Weight)
}

func TestSegmentReaderPoolsLabels(t *testing.T) {
	af := []ecg.Interval{{Start: 1000, End: 1500}}
	cfg := testConfig(t)
	cfg.Segment.Reduction = 4
	ds := newTestDataset(t, TaskMain, segReader(af), cfg)
	require.NoError(t, ds.SliceSegments(nil, false, true))

	name := segmentNamed(t, ds, "1", ecg.Interval{Start: 900, End: 1500})
	reader, err := ds.SegmentReader([]string{name})
	require.NoError(t, err)

	item, err := reader.Get(0)
	require.NoError(t, err)
	require.Len(t, item.Label, 150)
	require.Len(t, item.Weight, 150)
	for i, lab := range item.Label {
		want := 0
		if i >= 25 {
			want = 1
		}
		require.Equal(t, want, lab, "pooled label at %d", i)
	}
	// the signal itself is not pooled
	assert.Len(t, item.Data[0], 600)
}

func TestSegmentReaderDespikes(t *testing.T) {
	reader := segReader(nil)
	reader.Records["data_1_1"].Data[0][50] = 1e6
	ds := newTestDataset(t, TaskQRSDetection, reader, testConfig(t))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	name := segmentNamed(t, ds, "1", ecg.Interval{Start: 0, End: 600})
	seg, err := ds.LoadSegment(name)
	require.NoError(t, err)
	require.Equal(t, 1e6, seg.Data[0][50], "the artifact keeps the raw spike")

	items, err := ds.SegmentReader([]string{name})
	require.NoError(t, err)
	item, err := items.Get(0)
	require.NoError(t, err)
	assert.Equal(t, item.Data[0][49], item.Data[0][50], "the served item is despiked")
}

func TestSegmentReaderAppliesItemPipeline(t *testing.T) {
	af := []ecg.Interval{{Start: 1000, End: 1500}}
	cfg := testConfig(t)
	ds, err := New(Options{
		Reader:      segReader(af),
		Config:      cfg,
		ItemPreproc: gainPipeline{names: []string{"gain"}, gain: 10},
		Task:        TaskQRSDetection,
	})
	require.NoError(t, err)
	require.NoError(t, ds.PreprocessRecords(nil, false))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	name := segmentNamed(t, ds, "1", ecg.Interval{Start: 0, End: 600})
	seg, err := ds.LoadSegment(name)
	require.NoError(t, err)

	reader, err := ds.SegmentReader([]string{name})
	require.NoError(t, err)
	item, err := reader.Get(0)
	require.NoError(t, err)
	assert.InDelta(t, seg.Data[0][100]*10, item.Data[0][100], 1e-12)
}

func TestSegmentReaderCachesItems(t *testing.T) {
	ds := newTestDataset(t, TaskQRSDetection, segReader(nil), testConfig(t))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	reader, err := ds.SegmentReader(nil)
	require.NoError(t, err)
	first, err := reader.Get(0)
	require.NoError(t, err)

	// with the backing files gone the cached item still serves
	name := reader.Names()[0]
	subject := SubjectOfArtifact(name)
	require.NoError(t, os.Remove(filepath.Join(ds.segmentDataDir(subject), name+matExt)))
	again, err := reader.Get(0)
	require.NoError(t, err)
	assert.Equal(t, first.Label, again.Label)

	// a fresh reader has no cache entry to fall back on
	fresh, err := ds.SegmentReader([]string{name})
	require.NoError(t, err)
	_, err = fresh.Get(0)
	require.Error(t, err)
	assert.IsType(t, ArtifactNotFoundError{}, err)
}

func TestSegmentReaderRejectsOutOfRange(t *testing.T) {
	ds := newTestDataset(t, TaskQRSDetection, segReader(nil), testConfig(t))
	require.NoError(t, ds.SliceSegments(nil, false, true))

	reader, err := ds.SegmentReader(nil)
	require.NoError(t, err)
	_, err = reader.Get(-1)
	assert.Error(t, err)
	_, err = reader.Get(reader.Len())
	assert.Error(t, err)
}

func TestRRReaderItems(t *testing.T) {
	af := []ecg.Interval{{Start: 5000, End: 10000}}
	ds := newTestDataset(t, TaskRRLSTM, rrTestReader(af), testConfig(t))
	require.NoError(t, ds.SliceRRSequences(nil, false, true))

	reader, err := ds.RRReader(nil)
	require.NoError(t, err)
	all, err := ds.Index().AllNames()
	require.NoError(t, err)
	require.Equal(t, len(all), reader.Len())

	for i := 0; i < reader.Len(); i++ {
		item, err := reader.Get(i)
		require.NoError(t, err)
		require.Len(t, item.RR, 30)
		require.Len(t, item.Label, 30)
		require.Len(t, item.Weight, 30)
		assert.Equal(t, ecg.WeightMask(item.Label, 2, 1/0.8, 1, 2, 5), item.Weight)

		seq, err := ds.LoadRRSequence(reader.Names()[i])
		require.NoError(t, err)
		assert.Equal(t, seq.RR, item.RR)
		assert.Equal(t, seq.Label, item.Label)
	}
}

func TestPoolLabels(t *testing.T) {
	labels := []int{1, 1, 1, 1, 0, 1, 1, 1, 1, 0}
	assert.Equal(t, labels, poolLabels(labels, 1))
	assert.Equal(t, []int{1, 1, 0, 1, 0}, poolLabels(labels, 2))
	// a window pools to 1 only when fully marked; the short tail drops
	assert.Equal(t, []int{1, 0}, poolLabels(labels, 4))
	assert.Empty(t, poolLabels(labels[:3], 4))
}
