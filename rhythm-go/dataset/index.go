package dataset

import (
	"io/ioutil"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/lazy"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/serialization"
)

// Index tracks which artifacts exist per subject. It loads lazily on
// first use: the persisted JSON when present, otherwise a directory
// rescan. A rescan always wins over previously loaded state, and the
// filesystem is authoritative: Rebuild replaces the in-memory listing
// with whatever is on disk.
//
// Persistence is single-writer: Persist and Rebuild take an exclusive
// lock file next to the index and rewrite it via tmp+rename, so a crash
// mid-write leaves the previous file intact.
type Index struct {
	path     string
	subjects []string
	dirFor   func(subject string) string

	loader *lazy.Loader
	mu     sync.Mutex
	names  map[string][]string
}

func newIndex(path string, subjects []string, dirFor func(string) string) *Index {
	x := &Index{
		path:     path,
		subjects: append([]string(nil), subjects...),
		dirFor:   dirFor,
	}
	x.loader = lazy.NewLoader(x.load, x.drop)
	return x
}

func (x *Index) load() error {
	if _, err := os.Stat(x.path); err == nil {
		names := make(map[string][]string)
		if err := serialization.Decode(x.path, &names); err != nil {
			return errors.Wrapf(err, "loading artifact index %s", x.path)
		}
		x.mu.Lock()
		x.names = names
		for _, subject := range x.subjects {
			if _, ok := x.names[subject]; !ok {
				x.names[subject] = nil
			}
		}
		x.mu.Unlock()
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "checking artifact index %s", x.path)
	}
	return x.rebuild()
}

func (x *Index) drop() {
	x.mu.Lock()
	x.names = nil
	x.mu.Unlock()
}

func (x *Index) ensure() error {
	if err := x.loader.LoadAndLock(); err != nil {
		return err
	}
	x.loader.Unlock()
	return nil
}

// Unload drops the in-memory listing; the next use reloads it.
func (x *Index) Unload() {
	x.loader.Unload()
}

// Subjects returns the subjects the index covers.
func (x *Index) Subjects() []string {
	return append([]string(nil), x.subjects...)
}

// List returns the artifact names of one subject, in persisted order.
func (x *Index) List(subject string) ([]string, error) {
	if err := x.ensure(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.names[subject]...), nil
}

// AllNames returns every artifact name, subjects in sorted order.
func (x *Index) AllNames() ([]string, error) {
	if err := x.ensure(); err != nil {
		return nil, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	subjects := append([]string(nil), x.subjects...)
	sort.Strings(subjects)
	var out []string
	for _, subject := range subjects {
		out = append(out, x.names[subject]...)
	}
	return out, nil
}

// Append registers a new artifact in memory. The file is rewritten only
// by Persist.
func (x *Index) Append(subject, name string) error {
	if err := x.ensure(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.names[subject] = append(x.names[subject], name)
	return nil
}

// Remove drops an artifact from the in-memory listing.
func (x *Index) Remove(subject, name string) error {
	if err := x.ensure(); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	names := x.names[subject]
	for i, n := range names {
		if n == name {
			x.names[subject] = append(names[:i], names[i+1:]...)
			return nil
		}
	}
	return nil
}

// Persist rewrites the index file from the in-memory listing.
func (x *Index) Persist() error {
	if err := x.ensure(); err != nil {
		return err
	}
	return x.persist()
}

// Rebuild rescans the artifact directories, replacing the in-memory
// listing. The scan is persisted only when every subject has at least
// one artifact, so slicing a partial corpus never clobbers a complete
// index file.
func (x *Index) Rebuild() error {
	if err := x.ensure(); err != nil {
		return err
	}
	return x.rebuild()
}

func (x *Index) rebuild() error {
	names := make(map[string][]string, len(x.subjects))
	complete := len(x.subjects) > 0
	for _, subject := range x.subjects {
		entries, err := ioutil.ReadDir(x.dirFor(subject))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "scanning artifacts of subject %s", subject)
		}
		var list []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), matExt) {
				continue
			}
			list = append(list, strings.TrimSuffix(entry.Name(), matExt))
		}
		sort.Strings(list)
		names[subject] = list
		if len(list) == 0 {
			complete = false
		}
	}
	x.mu.Lock()
	x.names = names
	x.mu.Unlock()
	if !complete {
		return nil
	}
	return x.persist()
}

func (x *Index) persist() error {
	unlock, err := x.lock()
	if err != nil {
		return err
	}
	defer unlock()
	x.mu.Lock()
	names := make(map[string][]string, len(x.names))
	for subject, list := range x.names {
		names[subject] = append([]string(nil), list...)
	}
	x.mu.Unlock()
	if err := serialization.EncodeAtomic(x.path, names); err != nil {
		return errors.Wrapf(err, "persisting artifact index %s", x.path)
	}
	return nil
}

func (x *Index) lock() (func(), error) {
	lockPath := x.path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Errorf("artifact index %s is locked by another writer", x.path)
		}
		return nil, errors.Wrapf(err, "locking artifact index %s", x.path)
	}
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
