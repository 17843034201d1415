package split

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
)

// statsReader builds a reader over 12 subjects: 3 paroxysmal, 3
// persistent, 6 normal. s1 carries a mixed history to exercise
// stratification by strongest label.
func statsReader() *ecg.MemReader {
	stats := []ecg.SubjectStat{
		{Subject: "s1", Label: ecg.LabelAFParoxysmal},
		{Subject: "s1", Label: ecg.LabelNormal},
		{Subject: "s2", Label: ecg.LabelAFParoxysmal},
		{Subject: "s3", Label: ecg.LabelAFParoxysmal},
		{Subject: "s4", Label: ecg.LabelAFPersistent},
		{Subject: "s5", Label: ecg.LabelAFPersistent},
		{Subject: "s6", Label: ecg.LabelAFPersistent},
	}
	for i := 7; i <= 12; i++ {
		stats = append(stats, ecg.SubjectStat{
			Subject: fmt.Sprintf("s%d", i),
			Label:   ecg.LabelNormal,
		})
	}
	return &ecg.MemReader{SampleRate: 200, Stats: stats}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func TestSubjectSplitPartitions(t *testing.T) {
	splitter, err := NewSubjectSplitter(statsReader(), DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	res, err := splitter.Split(true)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Train)
	assert.NotEmpty(t, res.Test)
	assert.Len(t, res.Train, 12-len(res.Test))

	seen := make(map[string]int)
	for _, subject := range append(append([]string(nil), res.Train...), res.Test...) {
		seen[subject]++
	}
	assert.Len(t, seen, 12)
	for subject, n := range seen {
		assert.Equal(t, 1, n, "subject %s assigned %d times", subject, n)
	}
}

func TestSubjectSplitCoversStrata(t *testing.T) {
	splitter, err := NewSubjectSplitter(statsReader(), DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	res, err := splitter.Split(true)
	require.NoError(t, err)

	// With a 20% share each stratum still contributes at least one test
	// subject.
	var gotAFp, gotAFf, gotNormal bool
	for _, subject := range res.Test {
		switch subject {
		case "s1", "s2", "s3":
			gotAFp = true
		case "s4", "s5", "s6":
			gotAFf = true
		default:
			gotNormal = true
		}
	}
	assert.True(t, gotAFp, "no paroxysmal subject in test set")
	assert.True(t, gotAFf, "no persistent subject in test set")
	assert.True(t, gotNormal, "no normal subject in test set")
}

func TestSubjectSplitEmptyStratum(t *testing.T) {
	reader := &ecg.MemReader{SampleRate: 200, Stats: []ecg.SubjectStat{
		{Subject: "s1", Label: ecg.LabelAFParoxysmal},
		{Subject: "s2", Label: ecg.LabelNormal},
		{Subject: "s3", Label: ecg.LabelNormal},
	}}
	splitter, err := NewSubjectSplitter(reader, DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	res, err := splitter.Split(true)
	require.NoError(t, err)
	assert.Len(t, res.Train, 3-len(res.Test))
	assert.True(t, contains(res.Test, "s1"), "sole paroxysmal subject must land in test")
}

func TestSubjectSplitDeterministic(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Seed = 17

	first, err := NewSubjectSplitter(statsReader(), cfg)
	require.NoError(t, err)
	a, err := first.Split(true)
	require.NoError(t, err)

	cfg.Dir = t.TempDir()
	second, err := NewSubjectSplitter(statsReader(), cfg)
	require.NoError(t, err)
	b, err := second.Split(true)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSubjectSplitPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Seed = 3

	splitter, err := NewSubjectSplitter(statsReader(), cfg)
	require.NoError(t, err)
	first, err := splitter.Split(false)
	require.NoError(t, err)

	trainFile, testFile := splitter.Files()
	assert.Equal(t, filepath.Join(dir, "train_ratio_80.json"), trainFile)
	assert.Equal(t, filepath.Join(dir, "test_ratio_20.json"), testFile)

	// A differently seeded splitter picks up the persisted partition.
	cfg.Seed = 99
	reloaded, err := NewSubjectSplitter(statsReader(), cfg)
	require.NoError(t, err)
	second, err := reloaded.Split(false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSubjectSplitRejectsDegenerateRatio(t *testing.T) {
	for _, ratio := range []float64{0, 1, 1.3, -0.2} {
		cfg := DefaultConfig(t.TempDir())
		cfg.TrainRatio = ratio
		_, err := NewSubjectSplitter(statsReader(), cfg)
		require.Error(t, err, "ratio %v", ratio)
		assert.IsType(t, ConfigurationError{}, err)
	}
}

func TestSubjectSplitRejectsEmptyDir(t *testing.T) {
	cfg := DefaultConfig("")
	_, err := NewSubjectSplitter(statsReader(), cfg)
	require.Error(t, err)
	assert.IsType(t, ConfigurationError{}, err)
}
