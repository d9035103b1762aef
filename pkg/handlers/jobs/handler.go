package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iddaa-lens/jobrunner/pkg/jobs"
	"github.com/iddaa-lens/jobrunner/pkg/logger"
	"github.com/iddaa-lens/jobrunner/pkg/models/api"
)

// Request types accepted by the envelope endpoint
const (
	RequestRunJob       = "RunJob"
	RequestGetJobStatus = "GetJobStatus"
	RequestCancelJob    = "CancelJob"
)

// Manager is what the handler needs from the job manager
type Manager interface {
	Run(ctx context.Context, category, jobType string, descriptor []byte) (int64, error)
	Status(id int64) (jobs.Status, error)
	Cancel(ctx context.Context, id int64) (jobs.ResultCode, error)
	List() []jobs.Status
}

// Handler exposes RunJob, GetJobStatus and CancelJob over HTTP
type Handler struct {
	manager Manager
	logger  *logger.Logger
}

// NewHandler creates a new jobs handler
func NewHandler(manager Manager, log *logger.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  log,
	}
}

// Routes mounts the job endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/jobs", h.Run)
	r.Get("/api/jobs", h.List)
	r.Get("/api/jobs/{id}", h.Status)
	r.Post("/api/jobs/{id}/cancel", h.Cancel)
	r.Post("/api/requests", h.Dispatch)
}

// Run handles POST /api/jobs
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req api.RunJobRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.runJob(w, r, req.Category, req.JobType, req.Descriptor)
}

// Status handles GET /api/jobs/{id}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jobStatus(w, r, id)
}

// Cancel handles POST /api/jobs/{id}/cancel. It blocks until the job stops
// or the client goes away.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseJobID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.cancelJob(w, r, id)
}

// List handles GET /api/jobs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	statuses := h.manager.List()
	h.writeJSON(w, r, http.StatusOK, api.Response{
		Success: true,
		Data:    statuses,
		Meta:    map[string]int{"total": len(statuses)},
	})
}

// Dispatch handles POST /api/requests, routing an envelope by its type
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var env api.RequestEnvelope
	if err := decodeBody(r, &env); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch env.Type {
	case RequestRunJob:
		h.runJob(w, r, env.Category, env.JobType, env.Descriptor)
	case RequestGetJobStatus:
		if env.JobID == nil {
			h.writeError(w, r, jobs.ServerRequestMalformed("job_id", "required"))
			return
		}
		h.jobStatus(w, r, *env.JobID)
	case RequestCancelJob:
		if env.JobID == nil {
			h.writeError(w, r, jobs.ServerRequestMalformed("job_id", "required"))
			return
		}
		h.cancelJob(w, r, *env.JobID)
	default:
		h.writeError(w, r, jobs.InvalidRequestType(env.Type))
	}
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request, category, jobType string, descriptor json.RawMessage) {
	if isNull(descriptor) {
		h.writeError(w, r, jobs.NullInputDescriptor())
		return
	}

	id, err := h.manager.Run(r.Context(), category, jobType, descriptor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusAccepted, api.RunJobResponse{JobID: id})
}

func (h *Handler) jobStatus(w http.ResponseWriter, r *http.Request, id int64) {
	s, err := h.manager.Status(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, api.JobStatusResponse{
		JobID:   s.ID,
		Status:  s.Percent,
		Message: s.Message,
		State:   string(s.State),
	})
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request, id int64) {
	start := time.Now()

	result, err := h.manager.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context(), "jobs-handler").Info().
		Int64("job_id", id).
		Str("result", result.String()).
		Dur("duration", time.Since(start)).
		Str("action", "cancel_job").
		Msg("Cancel request served")

	h.writeJSON(w, r, http.StatusOK, api.CancelJobResponse{
		JobID:      id,
		ResultCode: int(result),
		Result:     result.String(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return jobs.ServerRequestMalformed("body", "empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return jobs.ServerRequestMalformed("body", err.Error())
	}
	return nil
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, jobs.ServerRequestMalformed("job_id", "must be an integer")
	}
	return id, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// statusFor maps an error code onto an HTTP status
func statusFor(code jobs.Code) int {
	switch code {
	case jobs.CodeInvalidRequestType, jobs.CodeNullInputDescriptor,
		jobs.CodeServerRequestMalformed, jobs.CodeInvalidCategoryOrType:
		return http.StatusBadRequest
	case jobs.CodeJobAlreadyRunning:
		return http.StatusConflict
	case jobs.CodeInvalidJobID, jobs.CodeJobDefinitionNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := api.NewErrorResponse(err)
	status := statusFor(jobs.Code(resp.Error.Code))

	log := logger.FromContext(r.Context(), "jobs-handler")
	event := log.Info()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status_code", status).
		Str("action", "request_rejected").
		Msg("Job request failed")

	h.writeJSON(w, r, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().
			Err(err).
			Str("path", r.URL.Path).
			Str("action", "encode_failed").
			Msg("Failed to encode response")
	}
}
