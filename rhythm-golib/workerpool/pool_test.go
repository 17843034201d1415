package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_RunJobs(t *testing.T) {
	pool := New(5)

	var jobs []Job
	var completed int32
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(time.Second)
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	pool.Add(jobs)
	pool.Wait()
	require.EqualValues(t, len(jobs), completed, "expected all jobs to be completed")
}
func Test_AddBlocking(t *testing.T) {
	pool := New(3)

	var jobs []Job
	var completed int32
	for i := 0; i < 20; i++ {
		jobs = append(jobs, func() error {
			atomic.AddInt32(&completed, 1)
			return nil
		})
	}

	// returns only once every job has been handed to a worker
	pool.AddBlocking(jobs)
	require.NoError(t, pool.Wait())
	require.EqualValues(t, len(jobs), completed, "expected all jobs to be completed")
}

func Test_StopWait(t *testing.T) {
	pool := New(5)

	var jobs []Job
	for i := 0; i < 15; i++ {
		jobs = append(jobs, func() error {
			time.Sleep(time.Second)
			return nil
		})
	}

	pool.Add(jobs)
	<-time.After(time.Second)
	pool.Stop()
	pool.Wait()
}

func Test_WaitError(t *testing.T) {
	pool := New(2)

	var jobs []Job
	for i := 0; i < 4; i++ {
		jobs = append(jobs, func() error {
			return nil
		})
	}
	jobs = append(jobs, func() error {
		return errors.New("job failed")
	})

	pool.Add(jobs)
	err := pool.Wait()
	require.EqualError(t, err, "job failed")
}
