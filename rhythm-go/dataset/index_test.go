package dataset

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/serialization"
)

func testIndex(t *testing.T, subjects ...string) (*Index, string) {
	base := t.TempDir()
	dirFor := func(subject string) string { return filepath.Join(base, subject) }
	return newIndex(filepath.Join(base, "index.json"), subjects, dirFor), base
}

func writeArtifact(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name+matExt), []byte("x"), 0666))
}

func TestIndexPrefersPersistedFile(t *testing.T) {
	x, base := testIndex(t, "1", "2")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")
	require.NoError(t, serialization.EncodeAtomic(x.path, map[string][]string{"1": {"S_1_1_0000007"}}))

	got, err := x.List("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000007"}, got)

	// subjects absent from the file come back empty, not as errors
	got, err = x.List("2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexRebuildScansFilesystem(t *testing.T) {
	x, base := testIndex(t, "1", "2")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000001")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")
	writeArtifact(t, filepath.Join(base, "2"), "S_2_1_0000000")

	// without an index file the first use rescans the directories
	got, err := x.List("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000000", "S_1_1_0000001"}, got)

	// a complete scan is persisted right away
	names := make(map[string][]string)
	require.NoError(t, serialization.Decode(x.path, &names))
	assert.Equal(t, []string{"S_2_1_0000000"}, names["2"])
}

func TestIndexPartialScanNotPersisted(t *testing.T) {
	x, base := testIndex(t, "1", "2")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")

	got, err := x.List("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000000"}, got)

	// subject 2 has no artifacts yet, so the scan stays in memory
	_, err = os.Stat(x.path)
	assert.True(t, os.IsNotExist(err))
}

func TestIndexRebuildReplacesStaleEntries(t *testing.T) {
	x, base := testIndex(t, "1")
	require.NoError(t, serialization.EncodeAtomic(x.path, map[string][]string{"1": {"S_1_1_0000099"}}))
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")

	require.NoError(t, x.Rebuild())
	got, err := x.List("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000000"}, got)

	names := make(map[string][]string)
	require.NoError(t, serialization.Decode(x.path, &names))
	assert.Equal(t, []string{"S_1_1_0000000"}, names["1"])
}

func TestIndexAppendRemovePersist(t *testing.T) {
	x, _ := testIndex(t, "1")
	require.NoError(t, x.Append("1", "S_1_1_0000000"))
	require.NoError(t, x.Append("1", "S_1_1_0000001"))
	require.NoError(t, x.Remove("1", "S_1_1_0000000"))
	require.NoError(t, x.Persist())

	names := make(map[string][]string)
	require.NoError(t, serialization.Decode(x.path, &names))
	assert.Equal(t, []string{"S_1_1_0000001"}, names["1"])
}

func TestIndexPersistRespectsLock(t *testing.T) {
	x, _ := testIndex(t, "1")
	require.NoError(t, x.Append("1", "S_1_1_0000000"))

	lockPath := x.path + ".lock"
	require.NoError(t, ioutil.WriteFile(lockPath, nil, 0666))
	err := x.Persist()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	require.NoError(t, os.Remove(lockPath))
	require.NoError(t, x.Persist())
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err), "the lock file must not outlive the write")
}

func TestIndexAllNames(t *testing.T) {
	x, base := testIndex(t, "2", "1")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")
	writeArtifact(t, filepath.Join(base, "2"), "S_2_1_0000000")

	got, err := x.AllNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000000", "S_2_1_0000000"}, got)
}

func TestIndexUnloadDropsUnpersistedState(t *testing.T) {
	x, base := testIndex(t, "1")
	writeArtifact(t, filepath.Join(base, "1"), "S_1_1_0000000")

	got, err := x.List("1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, x.Append("1", "S_1_1_0000001"))
	x.Unload()

	got, err = x.List("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"S_1_1_0000000"}, got)
}
