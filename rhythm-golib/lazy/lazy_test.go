package lazy

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoaderBuildsOnce(t *testing.T) {
	builds := 0
	l := NewLoader(func() error {
		builds++
		return nil
	}, func() {})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.LoadAndLock())
		l.Unlock()
	}
	require.Equal(t, 1, builds)
}

func TestLoaderErrorSticksUntilUnload(t *testing.T) {
	boom := errors.New("boom")
	builds := 0
	l := NewLoader(func() error {
		builds++
		if builds == 1 {
			return boom
		}
		return nil
	}, func() {})

	require.Equal(t, boom, l.LoadAndLock())
	require.Equal(t, boom, l.LoadAndLock())
	require.Equal(t, 1, builds)

	l.Unload()
	require.NoError(t, l.LoadAndLock())
	l.Unlock()
	require.Equal(t, 2, builds)
}

func TestLoaderUnloadReleases(t *testing.T) {
	released := 0
	l := NewLoader(func() error { return nil }, func() { released++ })

	// nothing loaded yet, nothing to release
	l.Unload()
	require.Equal(t, 0, released)

	require.NoError(t, l.LoadAndLock())
	l.Unlock()
	l.Unload()
	require.Equal(t, 1, released)
}

func TestLoaderConcurrent(t *testing.T) {
	builds := 0
	l := NewLoader(func() error {
		// runs under the write lock, so no extra synchronization
		builds++
		return nil
	}, func() {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.LoadAndLock(); err == nil {
				l.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, builds)
}
