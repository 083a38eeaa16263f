package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"querybridge/internal/hub"
	"querybridge/internal/nlsql"
	"querybridge/internal/result"
	"querybridge/internal/security"
	"querybridge/internal/service"
	"querybridge/internal/worker"
)

// Handler is the thin transport layer: it validates input shape, calls
// the service facade, and maps sentinel errors to status codes. No
// query logic lives here.
type Handler struct {
	Svc           *service.Service
	Pool          *worker.Pool
	Hub           *hub.Hub
	Secret        string
	ExportTimeout time.Duration
}

func NewHandler(svc *service.Service, pool *worker.Pool, h *hub.Hub, secret string, exportTimeout time.Duration) *Handler {
	if exportTimeout <= 0 {
		exportTimeout = 10 * time.Minute
	}
	return &Handler{
		Svc:           svc,
		Pool:          pool,
		Hub:           h,
		Secret:        secret,
		ExportTimeout: exportTimeout,
	}
}

// --- Core endpoints ---

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.Svc.HealthCheck(r.Context())
	if !status.Connected {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.Svc.GetTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if res.IsLargeResult {
		// Catalog listings beyond the staging threshold come back as a
		// handle like any other large result.
		writeJSON(w, http.StatusOK, res)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tables": service.TableNames(res)})
}

func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info, err := h.Svc.GetSchemaInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if err := security.ValidateQuery(req.SQL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.Svc.ExecuteQuery(r.Context(), req.SQL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleQueryPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id", http.StatusBadRequest)
		return
	}

	pageIdx, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, result.ErrInvalidPageIndex)
		return
	}

	res, err := h.Svc.GetQueryPage(r.Context(), id, pageIdx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.Svc.Disconnect(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Disconnected"})
}

// --- NL translation stub ---

type TranslateRequest struct {
	Question string `json:"question"`
}

func (h *Handler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		http.Error(w, "Missing question", http.StatusBadRequest)
		return
	}

	// Table names improve the guess but are not required for it.
	var tables []string
	if res, err := h.Svc.GetTables(r.Context()); err == nil && !res.IsLargeResult {
		tables = service.TableNames(res)
	}

	sqlText := nlsql.NewTranslator(tables).Translate(req.Question)
	writeJSON(w, http.StatusOK, map[string]string{"sql": sqlText})
}

// --- Export endpoints ---

type ExportRequest struct {
	ResultID string `json:"resultId"`
	Format   string `json:"format"`
	Email    string `json:"email"`
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResultID == "" {
		http.Error(w, "Missing resultId", http.StatusBadRequest)
		return
	}

	if req.Email != "" {
		if err := security.ValidateEmail(req.Email); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	job := worker.NewExportJob(req.ResultID, req.Email, req.Format, h.ExportTimeout)
	if !h.Pool.Submit(job) {
		http.Error(w, "Export queue full", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Export submitted", "job_id", job.ID, "result_id", req.ResultID, "format", job.Format)
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
}

type ExportStatusResponse struct {
	JobID        string `json:"jobId"`
	Status       string `json:"status"`
	RowsExported int    `json:"rowsExported"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (h *Handler) HandleExportStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	job, ok := h.Pool.Job(id)
	if !ok {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	resp := ExportStatusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		RowsExported: job.RowsExported,
		DownloadURL:  job.DownloadURL,
	}
	if job.Error != nil {
		resp.Error = job.Error.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type SchemaExportRequest struct {
	Format string `json:"format"`
	Email  string `json:"email"`
}

// HandleSchemaExport stages the current schema catalog as a result set
// and queues it on the export pipeline like any staged result.
func (h *Handler) HandleSchemaExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SchemaExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Email != "" {
		if err := security.ValidateEmail(req.Email); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res, err := h.Svc.StageSchemaSnapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	job := worker.NewExportJob(res.ResultID, req.Email, req.Format, h.ExportTimeout)
	if !h.Pool.Submit(job) {
		http.Error(w, "Export queue full", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Schema export submitted", "job_id", job.ID, "result_id", res.ResultID, "rows", res.RowCount)
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": job.ID, "resultId": res.ResultID})
}

// HandleToken mints a short-lived bearer token for the websocket
// endpoints; the request itself is HMAC-protected by middleware.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, err := security.MintToken(h.Secret, "dashboard", time.Hour)
	if err != nil {
		http.Error(w, "Failed to mint token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- Helpers ---

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors to machine-stable kinds and HTTP
// status codes. The wrapped message rides along untouched.
func writeError(w http.ResponseWriter, err error) {
	kind := "INTERNAL"
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, result.ErrConfigInvalid):
		kind, status = "CONFIG_INVALID", http.StatusBadRequest
	case errors.Is(err, result.ErrConnectionExhausted):
		kind, status = "CONNECTION_EXHAUSTED", http.StatusServiceUnavailable
	case errors.Is(err, result.ErrNotConnected):
		kind, status = "NOT_CONNECTED", http.StatusServiceUnavailable
	case errors.Is(err, result.ErrExecutionFailed):
		kind, status = "EXECUTION_FAILED", http.StatusBadRequest
	case errors.Is(err, result.ErrResultNotFound):
		kind, status = "RESULT_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, result.ErrInvalidPageIndex):
		kind, status = "INVALID_PAGE_INDEX", http.StatusBadRequest
	}

	writeJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: err.Error()}})
}
