package diskcache

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetExists(t *testing.T) {
	c, err := OpenTemp()
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	assert.False(t, c.Exists("foo.mat"))

	err = c.Put("foo.mat", []byte("bar"))
	require.NoError(t, err)

	assert.True(t, c.Exists("foo.mat"))

	val, err := c.Get("foo.mat")
	require.NoError(t, err)
	assert.Equal(t, "bar", string(val))

	_, err = c.Get("missing.mat")
	assert.Equal(t, ErrNoSuchKey, err)
}

func TestPutWriter(t *testing.T) {
	c, err := OpenTemp()
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	w, err := c.PutWriter("streamed.mat")
	require.NoError(t, err)
	_, err = w.Write([]byte("bar"))
	require.NoError(t, err)
	_, err = w.Write([]byte("baz"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, c.Exists("streamed.mat"))
	val, err := c.Get("streamed.mat")
	require.NoError(t, err)
	assert.Equal(t, "barbaz", string(val))
}

func TestGetReader(t *testing.T) {
	c, err := OpenTemp()
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	err = c.Put("foo.mat", []byte("bar"))
	require.NoError(t, err)

	r, err := c.GetReader("foo.mat")
	require.NoError(t, err)
	val, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "bar", string(val))
}

func TestKeysAreFilenames(t *testing.T) {
	c, err := OpenTemp()
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	require.NoError(t, c.Put("data_12_1-bandpass-baseline.mat", []byte("x")))
	require.NoError(t, c.Put("data_12_2-bandpass-baseline.mat", []byte("y")))

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data_12_1-bandpass-baseline.mat",
		"data_12_2-bandpass-baseline.mat",
	}, keys)

	// the backing files carry the keys verbatim
	_, err = os.Stat(c.PathTo("data_12_1-bandpass-baseline.mat"))
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	c, err := OpenTemp()
	require.NoError(t, err)
	defer os.RemoveAll(c.Path)

	require.NoError(t, c.Put("foo.mat", []byte("bar")))
	require.NoError(t, c.Remove("foo.mat"))
	assert.False(t, c.Exists("foo.mat"))

	// removing a missing key is a no-op
	require.NoError(t, c.Remove("foo.mat"))
}
