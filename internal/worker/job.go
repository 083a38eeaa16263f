package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusProcessing JobStatus = "PROCESSING"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// ExportJob turns one staged result into a downloadable artifact. The
// identity fields are fixed at construction; everything the worker
// mutates afterwards sits behind the job's own mutex so status polling
// never races the export goroutine.
type ExportJob struct {
	// ID is the unique UUID v4 for the job.
	ID string
	// ResultID addresses the staged result in the cache.
	ResultID string
	// Format is the requested output format (csv, json, excel, pdf).
	Format string
	// Email is the recipient address for the completion notification;
	// empty means no notification.
	Email string
	// Submitted records when the job entered the queue.
	Submitted time.Time

	// Context manages the lifecycle/cancellation of the job.
	Ctx    context.Context
	Cancel context.CancelFunc

	mu           sync.Mutex
	started      time.Time
	finished     time.Time
	status       JobStatus
	err          error
	rowsExported int
	downloadURL  string
}

func NewExportJob(resultID, email, format string, timeout time.Duration) *ExportJob {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if format == "" {
		format = "csv"
	}
	return &ExportJob{
		ID:        uuid.New().String(),
		ResultID:  resultID,
		Email:     email,
		Format:    format,
		Submitted: time.Now(),
		status:    StatusPending,
		Ctx:       ctx,
		Cancel:    cancel,
	}
}

// Progress is a point-in-time copy of a job's observable state, safe to
// read while the worker is still running.
type Progress struct {
	ID           string
	ResultID     string
	Format       string
	Status       JobStatus
	Error        error
	RowsExported int
	DownloadURL  string
}

// Progress snapshots the job under its lock.
func (j *ExportJob) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Progress{
		ID:           j.ID,
		ResultID:     j.ResultID,
		Format:       j.Format,
		Status:       j.status,
		Error:        j.err,
		RowsExported: j.rowsExported,
		DownloadURL:  j.downloadURL,
	}
}

func (j *ExportJob) start() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = time.Now()
	j.status = StatusProcessing
	return j.started
}

func (j *ExportJob) setRows(n int) {
	j.mu.Lock()
	j.rowsExported = n
	j.mu.Unlock()
}

func (j *ExportJob) rows() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rowsExported
}

func (j *ExportJob) complete(downloadURL string) time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusCompleted
	j.finished = time.Now()
	j.downloadURL = downloadURL
	return j.finished
}

func (j *ExportJob) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusFailed
	j.err = err
	j.finished = time.Now()
}
