package worker_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querybridge/internal/cache"
	"querybridge/internal/email"
	"querybridge/internal/hub"
	"querybridge/internal/result"
	"querybridge/internal/storage"
	"querybridge/internal/worker"
)

func stageResult(t *testing.T, store cache.Store, id string, n int) {
	t.Helper()

	rows := make([]result.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = result.Row{"id": float64(i), "name": "row"}
	}
	staged := &result.StagedResultSet{
		Rows:   rows,
		Fields: []result.Field{{Name: "id"}, {Name: "name"}},
	}
	payload, err := staged.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), result.StageKey(id), payload, time.Hour))
}

func waitForJob(t *testing.T, pool *worker.Pool, id string, want worker.JobStatus) worker.Progress {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := pool.Job(id)
		require.True(t, ok)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := pool.Job(id)
	t.Fatalf("job %s never reached %s (last status %s, err %v)", id, want, job.Status, job.Error)
	return worker.Progress{}
}

func TestPoolExportsStagedResultToCSV(t *testing.T) {
	store := cache.NewMemoryStore()
	stageResult(t, store, "r1", 5)
	dir := t.TempDir()

	pool := worker.NewPool(1, 1, store, storage.NewLocalProvider(dir), email.NewLogSender(), hub.NewHub())
	pool.Start()
	defer pool.Stop()

	job := worker.NewExportJob("r1", "", "csv", time.Minute)
	require.True(t, pool.Submit(job))

	done := waitForJob(t, pool, job.ID, worker.StatusCompleted)
	assert.Equal(t, 5, done.RowsExported)
	assert.NotEmpty(t, done.DownloadURL)

	f, err := os.Open(filepath.Join(dir, "exports", job.ID+".csv"))
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"id", "name"}, records[0])
	assert.Equal(t, []string{"1", "row"}, records[2])
}

func TestPoolExportsJSONLines(t *testing.T) {
	store := cache.NewMemoryStore()
	stageResult(t, store, "r2", 3)
	dir := t.TempDir()

	pool := worker.NewPool(1, 1, store, storage.NewLocalProvider(dir), email.NewLogSender(), hub.NewHub())
	pool.Start()
	defer pool.Stop()

	job := worker.NewExportJob("r2", "", "json", time.Minute)
	require.True(t, pool.Submit(job))
	waitForJob(t, pool, job.ID, worker.StatusCompleted)

	data, err := os.ReadFile(filepath.Join(dir, "exports", job.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"row"`)
}

func TestPoolFailsOnMissingResult(t *testing.T) {
	store := cache.NewMemoryStore()
	dir := t.TempDir()

	pool := worker.NewPool(1, 1, store, storage.NewLocalProvider(dir), email.NewLogSender(), hub.NewHub())
	pool.Start()
	defer pool.Stop()

	job := worker.NewExportJob("expired", "", "csv", time.Minute)
	require.True(t, pool.Submit(job))

	failed := waitForJob(t, pool, job.ID, worker.StatusFailed)
	assert.True(t, errors.Is(failed.Error, result.ErrResultNotFound))
}

func TestPoolDefaultsFormatToCSV(t *testing.T) {
	job := worker.NewExportJob("r1", "", "", time.Minute)
	assert.Equal(t, "csv", job.Format)
	assert.Equal(t, worker.StatusPending, job.Progress().Status)
	assert.NotEmpty(t, job.ID)
}

func TestPoolStatusPollingDuringExport(t *testing.T) {
	store := cache.NewMemoryStore()
	stageResult(t, store, "big", 5000)
	dir := t.TempDir()

	pool := worker.NewPool(1, 1, store, storage.NewLocalProvider(dir), email.NewLogSender(), hub.NewHub())
	pool.Start()
	defer pool.Stop()

	job := worker.NewExportJob("big", "", "csv", time.Minute)
	require.True(t, pool.Submit(job))

	// Hammer the status read path while the worker is writing rows; the
	// race detector flags any unsynchronized access to job state.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if p, ok := pool.Job(job.ID); ok {
					_ = p.Status
					_ = p.RowsExported
					_ = p.DownloadURL
				}
			}
		}()
	}

	done := waitForJob(t, pool, job.ID, worker.StatusCompleted)
	close(stop)
	wg.Wait()

	assert.Equal(t, 5000, done.RowsExported)
	assert.NotEmpty(t, done.DownloadURL)
}

func TestPoolJobLookup(t *testing.T) {
	pool := worker.NewPool(1, 1, cache.NewMemoryStore(), storage.NewLocalProvider(t.TempDir()), email.NewLogSender(), hub.NewHub())

	job := worker.NewExportJob("r1", "", "csv", time.Minute)
	require.True(t, pool.Submit(job))

	got, ok := pool.Job(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)

	_, ok = pool.Job("unknown")
	assert.False(t, ok)
}
