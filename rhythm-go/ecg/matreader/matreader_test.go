package matreader

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
)

func buildTestDB(t *testing.T) string {
	dir, err := ioutil.TempDir("", "matreader-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	data := [][]float64{make([]float64, 50), make([]float64, 50)}
	for i := range data[0] {
		data[0][i] = float64(i) * 0.01
		data[1][i] = -float64(i) * 0.01
	}
	require.NoError(t, WriteRecord(dir, "data_7_1", data, []int{5, 20, 35}, []ecg.Interval{{Start: 10, End: 30}}))
	require.NoError(t, WriteRecord(dir, "data_7_2", data, []int{8, 40}, nil))
	require.NoError(t, WriteRecord(dir, "data_9_1", data, []int{12}, nil))
	require.NoError(t, WriteStats(dir, []ecg.SubjectStat{
		{Subject: "7", Label: ecg.LabelAFParoxysmal},
		{Subject: "9", Label: ecg.LabelNormal},
	}))
	return dir
}

func TestOpenScansRecords(t *testing.T) {
	dir := buildTestDB(t)
	r, err := Open(dir, 200)
	require.NoError(t, err)

	assert.Equal(t, []string{"data_7_1", "data_7_2", "data_9_1"}, r.AllRecords())
	assert.Equal(t, []string{"7", "9"}, r.AllSubjects())
	assert.Equal(t, []string{"data_7_1", "data_7_2"}, r.RecordsOf("7"))
	assert.Equal(t, "9", r.SubjectOf("data_9_1"))
	assert.Equal(t, 200.0, r.Fs())
}

func TestOpenEmptyDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "matreader-empty")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	_, err = Open(dir, 200)
	assert.Error(t, err)
}

func TestLoadDataRoundTrip(t *testing.T) {
	dir := buildTestDB(t)
	r, err := Open(dir, 200)
	require.NoError(t, err)

	data, err := r.LoadData("data_7_1")
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Len(t, data[0], 50)
	assert.Equal(t, 0.05, data[0][5])
}

func TestLoadDataTransposesTallTraces(t *testing.T) {
	dir := buildTestDB(t)
	// a samples x leads trace written by some other tool
	tall := make([][]float64, 40)
	for i := range tall {
		tall[i] = []float64{float64(i), -float64(i)}
	}
	m, err := matfile.FromRows(tall)
	require.NoError(t, err)
	require.NoError(t, matfile.WriteFile(filepath.Join(dir, "data_9_2.mat"), map[string]matfile.Matrix{
		"ecg":    m,
		"rpeaks": matfile.FromInts([]int{3}),
	}))

	r, err := Open(dir, 200)
	require.NoError(t, err)
	data, err := r.LoadData("data_9_2")
	require.NoError(t, err)
	require.Len(t, data, 2)
	require.Len(t, data[0], 40)
	assert.Equal(t, 7.0, data[0][7])
	assert.Equal(t, -7.0, data[1][7])
}

func TestLoadAnnotations(t *testing.T) {
	dir := buildTestDB(t)
	r, err := Open(dir, 200)
	require.NoError(t, err)

	peaks, err := r.LoadRpeaks("data_7_1", 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 20, 35}, peaks)

	peaks, err = r.LoadRpeaks("data_7_1", 10, 30, false)
	require.NoError(t, err)
	assert.Equal(t, []int{10}, peaks)

	itvs, err := r.LoadAFIntervals("data_7_1", 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, []ecg.Interval{{Start: 10, End: 30}}, itvs)

	itvs, err = r.LoadAFIntervals("data_7_1", 20, 25, false)
	require.NoError(t, err)
	assert.Equal(t, []ecg.Interval{{Start: 0, End: 5}}, itvs)

	// no af_intervals variable means no episodes
	itvs, err = r.LoadAFIntervals("data_7_2", 0, 0, true)
	require.NoError(t, err)
	assert.Empty(t, itvs)

	_, err = r.LoadData("data_404_1")
	assert.Error(t, err)
}

func TestSubjectStats(t *testing.T) {
	dir := buildTestDB(t)
	r, err := Open(dir, 200)
	require.NoError(t, err)

	stats, err := r.SubjectStats()
	require.NoError(t, err)
	assert.Equal(t, []ecg.SubjectStat{
		{Subject: "7", Label: ecg.LabelAFParoxysmal},
		{Subject: "9", Label: ecg.LabelNormal},
	}, stats)
}

func TestSubjectStatsMissingFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "matreader-nostats")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, WriteRecord(dir, "data_1_1", [][]float64{{1, 2}}, []int{0}, nil))

	r, err := Open(dir, 200)
	require.NoError(t, err)
	_, err = r.SubjectStats()
	assert.Error(t, err)
}
