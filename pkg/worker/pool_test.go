package worker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speclab/gospeccore/pkg/config"
	"github.com/speclab/gospeccore/pkg/models"
)

func doublingProcessor(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error) {
	vals := make([]float64, len(sample.Values))
	for i, v := range sample.Values {
		vals[i] = 2 * v
	}
	return models.ProcessResult{
		Columns: map[string][]float64{
			models.ColumnLambda:     sample.Wavelengths,
			models.ColumnAbsorbance: vals,
		},
		Order: []string{models.ColumnLambda, models.ColumnAbsorbance},
	}, nil
}

func TestPoolProcessesJobs(t *testing.T) {
	pool := New(Options{Workers: 3, Processor: doublingProcessor})
	defer pool.Shutdown()

	const n = 10
	for i := 0; i < n; i++ {
		pool.SubmitJob(models.WorkItem{
			ID:     i,
			Name:   fmt.Sprintf("scan-%d", i),
			Sample: models.SpectrumData{Wavelengths: []float64{400}, Values: []float64{float64(i)}},
		})
	}

	seen := make(map[int]models.WorkResult, n)
	for i := 0; i < n; i++ {
		res := pool.WaitResult()
		seen[res.ID] = res
	}

	require.Len(t, seen, n)
	for id, res := range seen {
		assert.True(t, res.Success)
		assert.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("scan-%d", id), res.Name)
		assert.Equal(t, []float64{2 * float64(id)}, res.Result.Columns[models.ColumnAbsorbance])
	}
}

func TestPoolReportsProcessorErrors(t *testing.T) {
	pool := New(Options{
		Workers: 1,
		Processor: func(sample, water, dark models.SpectrumData, opts config.Options) (models.ProcessResult, error) {
			return models.ProcessResult{}, fmt.Errorf("boom")
		},
	})
	defer pool.Shutdown()

	pool.SubmitJob(models.WorkItem{ID: 1, Name: "bad"})
	res := pool.WaitResult()
	assert.False(t, res.Success)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
}

func TestPoolGetResultNonBlocking(t *testing.T) {
	pool := New(Options{Workers: 1, Processor: doublingProcessor})
	defer pool.Shutdown()

	_, ok := pool.GetResult()
	assert.False(t, ok)

	pool.SubmitJob(models.WorkItem{ID: 1})
	res := pool.WaitResult()
	assert.True(t, res.Success)
}

func TestPoolShutdownFlushesSaves(t *testing.T) {
	var mu sync.Mutex
	var saved []string

	pool := New(Options{
		Workers:   2,
		Processor: doublingProcessor,
		Saver: func(item models.SaveItem) {
			mu.Lock()
			saved = append(saved, item.Name)
			mu.Unlock()
		},
	})

	for i := 0; i < 5; i++ {
		pool.QueueSave(models.SaveItem{Name: fmt.Sprintf("scan-%d", i)})
	}
	pool.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, saved, 5)
}

func TestPoolManyJobsWithConcurrentConsumer(t *testing.T) {
	pool := New(Options{Workers: 5, Processor: doublingProcessor})
	defer pool.Shutdown()

	// far more jobs than the bounded queues can absorb at once; the
	// submitter and consumer run concurrently, as batch callers must
	const n = 40
	go func() {
		for i := 0; i < n; i++ {
			pool.SubmitJob(models.WorkItem{
				ID:     i,
				Sample: models.SpectrumData{Wavelengths: []float64{400}, Values: []float64{1}},
			})
		}
	}()

	done := make(chan struct{})
	go func() {
		for i := 0; i < n; i++ {
			res := pool.WaitResult()
			assert.True(t, res.Success)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not complete all jobs")
	}
}

func TestPoolShutdownWithUndrainedResults(t *testing.T) {
	pool := New(Options{Workers: 2, Processor: doublingProcessor})

	// nobody consumes results, so the buffer fills and workers end up
	// blocked mid-send
	go func() {
		for i := 0; i < 10; i++ {
			pool.SubmitJob(models.WorkItem{
				ID:     i,
				Sample: models.SpectrumData{Wavelengths: []float64{400}, Values: []float64{1}},
			})
		}
	}()
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown hung with undrained results")
	}
}

func TestPoolDefaultWorkerCount(t *testing.T) {
	pool := New(Options{Processor: doublingProcessor})
	defer pool.Shutdown()
	assert.Equal(t, 5, pool.workers)
}
