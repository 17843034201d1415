// Package diskcache provides a directory-backed blob store keyed by file
// name. Entries persist until removed explicitly; there is no eviction, so
// corpus caches survive across runs and stay inspectable with ordinary
// filesystem tools.
package diskcache

import (
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
)

var (
	// ErrNoSuchKey is returned by Cache.Get when a key does not exist in the cache
	ErrNoSuchKey = errors.New("key does not exist in cache")
)

// Cache represents a disk-backed key/value store. Keys are used verbatim as
// file names within the cache directory, so they stay human readable.
type Cache struct {
	Path string
}

// Open creates a cache with contents stored as files in the given directory.
// It creates the directory if it does not already exist.
func Open(path string) (*Cache, error) {
	err := os.MkdirAll(path, 0777)
	if err != nil {
		return nil, err
	}
	return &Cache{
		Path: path,
	}, nil
}

// OpenTemp creates a temporary directory and returns a cache backed by this
// directory. The user must remove the directory and any files within it when
// done.
func OpenTemp() (*Cache, error) {
	path, err := ioutil.TempDir("", "")
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// PathTo returns the path of the file backing the given key. The file may or
// may not exist.
func (c *Cache) PathTo(key string) string {
	return filepath.Join(c.Path, key)
}

// Get looks up the value for the given key and returns it. If the key does not
// exist then ErrNoSuchKey is returned.
func (c *Cache) Get(key string) ([]byte, error) {
	r, err := c.GetReader(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// GetReader looks up the value for the given key and returns a reader to it.
// If the key does not exist then ErrNoSuchKey is returned.
func (c *Cache) GetReader(key string) (io.ReadCloser, error) {
	r, err := os.Open(c.PathTo(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSuchKey
		}
		return nil, err
	}
	return r, nil
}

// Exists reports whether the key exists.
func (c *Cache) Exists(key string) bool {
	_, err := os.Stat(c.PathTo(key))
	return err == nil
}

// Put adds a key/value pair to the cache.
func (c *Cache) Put(key string, val []byte) error {
	return ioutil.WriteFile(c.PathTo(key), val, 0666)
}

// PutWriter adds a key/value pair to the cache via an io.WriteCloser
func (c *Cache) PutWriter(key string) (io.WriteCloser, error) {
	return os.Create(c.PathTo(key))
}

// Remove deletes the entry for the given key. Removing a missing key is not
// an error.
func (c *Cache) Remove(key string) error {
	err := os.Remove(c.PathTo(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Keys returns the sorted list of keys currently stored.
func (c *Cache) Keys() ([]string, error) {
	entries, err := ioutil.ReadDir(c.Path)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}
