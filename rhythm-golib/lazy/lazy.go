// Package lazy guards resources that are expensive to build and may be
// dropped and rebuilt during the life of the process.
package lazy

import (
	"sync"
)

// Loader builds a resource on first use and keeps it until Unload. A
// failed build sticks: later calls return the same error until Unload
// resets the Loader.
type Loader struct {
	build   func() error
	release func()

	mu     sync.RWMutex
	loaded bool
	err    error
}

// NewLoader returns a Loader around the given build and release hooks.
func NewLoader(build func() error, release func()) *Loader {
	return &Loader{build: build, release: release}
}

// LoadAndLock ensures the resource is built and read-locks the Loader
// against Unload. On success the caller must Unlock once done with the
// resource; on error the lock is already released.
func (l *Loader) LoadAndLock() error {
	for {
		l.mu.RLock()
		if l.loaded {
			if err := l.err; err != nil {
				l.mu.RUnlock()
				return err
			}
			return nil
		}
		l.mu.RUnlock()
		l.buildOnce()
	}
}

// buildOnce runs the build hook under the write lock unless another
// caller got there first. The lock is released even when the hook
// panics, so a panicking build does not wedge the Loader; the next
// LoadAndLock retries it.
func (l *Loader) buildOnce() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return
	}
	l.err = l.build()
	l.loaded = true
}

// Unlock releases the read lock taken by a successful LoadAndLock.
func (l *Loader) Unlock() {
	l.mu.RUnlock()
}

// Unload runs the release hook and forgets the resource, waiting first
// for readers holding LoadAndLock locks. The next LoadAndLock rebuilds.
func (l *Loader) Unload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return
	}
	l.release()
	l.loaded = false
	l.err = nil
}
