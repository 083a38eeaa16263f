package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"querybridge/internal/cache"
	"querybridge/internal/email"
	"querybridge/internal/export"
	"querybridge/internal/hub"
	"querybridge/internal/result"
	"querybridge/internal/storage"

	"golang.org/x/sync/semaphore"
)

// progressEvery controls how often row progress is broadcast.
const progressEvery = 1000

// Pool runs export jobs concurrently while capping storage pressure.
// Workers pull from a bounded queue; a separate semaphore restricts how
// many uploads are in flight at once.
type Pool struct {
	jobQueue  chan *ExportJob
	workers   int
	uploadSem *semaphore.Weighted
	wg        sync.WaitGroup
	quit      chan struct{}

	store    cache.Store
	storage  storage.Provider
	emailer  email.Sender
	progress *hub.Hub

	mu   sync.Mutex
	jobs map[string]*ExportJob
}

// NewPool initializes a worker pool. It does not start the workers;
// call Start() to begin processing.
func NewPool(workers int, maxUploads int64, store cache.Store, provider storage.Provider, emailer email.Sender, progress *hub.Hub) *Pool {
	if workers < 1 {
		workers = 1
	}
	if maxUploads < 1 {
		maxUploads = 1
	}
	return &Pool{
		jobQueue:  make(chan *ExportJob, 100), // bounded to prevent unbounded memory growth
		workers:   workers,
		uploadSem: semaphore.NewWeighted(maxUploads),
		quit:      make(chan struct{}),
		store:     store,
		storage:   provider,
		emailer:   emailer,
		progress:  progress,
		jobs:      make(map[string]*ExportJob),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Export worker pool started", "workers", p.workers)
}

// Submit queues a job. Returns false when the queue is full or the pool
// is shutting down.
func (p *Pool) Submit(job *ExportJob) bool {
	p.mu.Lock()
	p.jobs[job.ID] = job
	p.mu.Unlock()

	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	default:
		// Queue full
		p.mu.Lock()
		delete(p.jobs, job.ID)
		p.mu.Unlock()
		return false
	}
}

// Job returns a snapshot of a submitted job for status reporting. The
// snapshot is taken under the job's lock, so it is safe to call while
// the worker is mid-export.
func (p *Pool) Job(id string) (Progress, bool) {
	p.mu.Lock()
	job, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	return job.Progress(), true
}

// Stop initiates graceful shutdown.
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
	slog.Info("Export worker pool stopped")
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	slog.Info("Processing export", "worker_id", workerID, "job_id", job.ID, "result_id", job.ResultID)
	defer job.Cancel()

	started := job.start()
	waitTime := started.Sub(job.Submitted)

	p.progress.UpdateActive(1)
	defer p.progress.UpdateActive(-1)
	p.progress.Broadcast(hub.Update{Type: "export_start", JobID: job.ID, Status: string(StatusProcessing)})

	if err := p.uploadSem.Acquire(job.Ctx, 1); err != nil {
		p.failJob(job, fmt.Errorf("failed to acquire upload slot: %w", err))
		return
	}

	storageKey, err := p.runExport(job)
	p.uploadSem.Release(1)

	if err != nil {
		p.failJob(job, err)
		return
	}

	downloadURL := p.storage.GetDownloadURL(storageKey)
	finished := job.complete(downloadURL)
	rows := job.rows()

	slog.Info("Export completed", "job_id", job.ID, "rows", rows)
	p.progress.Broadcast(hub.Update{
		Type:   "export_complete",
		JobID:  job.ID,
		Rows:   rows,
		Status: string(StatusCompleted),
	})

	if job.Email != "" {
		summary := fmt.Sprintf(
			"Export Summary:\n"+
				"----------------\n"+
				"Job ID: %s\n"+
				"Rows Exported: %d\n"+
				"Submitted: %s\n"+
				"Started: %s (Wait: %v)\n"+
				"Finished: %s\n",
			job.ID,
			rows,
			job.Submitted.Format("2006-01-02 03:04:05 PM"),
			started.Format("2006-01-02 03:04:05 PM"), waitTime,
			finished.Format("2006-01-02 03:04:05 PM"),
		)
		p.emailer.SendDownloadLink(job.Email, downloadURL, summary)
	}
}

// runExport streams the staged rows into storage and returns the
// artifact's storage key.
func (p *Pool) runExport(job *ExportJob) (string, error) {
	payload, err := p.store.Get(job.Ctx, result.StageKey(job.ResultID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", fmt.Errorf("%w: %s", result.ErrResultNotFound, job.ResultID)
	}
	if err != nil {
		return "", fmt.Errorf("fetch staged result: %w", err)
	}

	staged, err := result.DecodeStaged(payload)
	if err != nil {
		return "", err
	}

	ext := job.Format
	if ext == "excel" {
		ext = "xlsx"
	}
	storageKey := fmt.Sprintf("exports/%s.%s", job.ID, ext)

	storageWriter, errChan := p.storage.StreamToFile(job.Ctx, storageKey)
	if storageWriter == nil {
		return "", <-errChan
	}

	var encoder export.RowEncoder
	switch job.Format {
	case "json":
		encoder = export.NewJSONEncoder(storageWriter)
	case "excel":
		encoder = export.NewExcelEncoder(storageWriter)
	case "pdf":
		encoder = export.NewPDFEncoder(storageWriter)
	default:
		encoder = export.NewCSVEncoder(storageWriter)
	}

	exportErr := p.encodeRows(job, encoder, staged)
	encoderCloseErr := encoder.Close()
	storageCloseErr := storageWriter.Close()
	uploadErr := <-errChan

	if exportErr != nil {
		return "", fmt.Errorf("export failed: %w", exportErr)
	}
	if encoderCloseErr != nil {
		return "", fmt.Errorf("encoder close failed: %w", encoderCloseErr)
	}
	if storageCloseErr != nil {
		return "", fmt.Errorf("storage close failed: %w", storageCloseErr)
	}
	if uploadErr != nil {
		return "", fmt.Errorf("upload failed: %w", uploadErr)
	}

	return storageKey, nil
}

// encodeRows streams the staged rows through the encoder, tracking
// per-row progress and honoring the job's cancellation context.
func (p *Pool) encodeRows(job *ExportJob, encoder export.RowEncoder, staged *result.StagedResultSet) error {
	return export.WriteStaged(encoder, staged, func(written int) error {
		if err := job.Ctx.Err(); err != nil {
			return err
		}
		job.setRows(written)
		if written%progressEvery == 0 {
			p.progress.Broadcast(hub.Update{Type: "progress", JobID: job.ID, Rows: written})
		}
		return nil
	})
}

func (p *Pool) failJob(job *ExportJob, err error) {
	job.fail(err)
	slog.Error("Export failed", "job_id", job.ID, "error", err)
	p.progress.Broadcast(hub.Update{Type: "export_failed", JobID: job.ID, Status: string(StatusFailed)})
}
