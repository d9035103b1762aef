package api

import (
	"encoding/json"
	"time"

	"github.com/iddaa-lens/jobrunner/pkg/database/pool"
	"github.com/iddaa-lens/jobrunner/pkg/jobs"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	ActiveJobID *int64    `json:"active_job_id,omitempty"`

	// ClusterSlotLocked is set only when the cluster slot lock is enabled
	ClusterSlotLocked *bool       `json:"cluster_slot_locked,omitempty"`
	Database          *pool.Stats `json:"database,omitempty"`
}

// RunJobRequest is the body of a RunJob call
type RunJobRequest struct {
	Category   string          `json:"category"`
	JobType    string          `json:"job_type"`
	Descriptor json.RawMessage `json:"descriptor"`
}

// RunJobResponse returns the id of an admitted job
type RunJobResponse struct {
	JobID int64 `json:"job_id"`
}

// JobStatusResponse is the GetJobStatus result
type JobStatusResponse struct {
	JobID   int64  `json:"job_id"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	State   string `json:"state"`
}

// CancelJobResponse is the CancelJob result
type CancelJobResponse struct {
	JobID      int64  `json:"job_id"`
	ResultCode int    `json:"result_code"`
	Result     string `json:"result"`
}

// RequestEnvelope carries any of the three operations through a single endpoint
type RequestEnvelope struct {
	Type       string          `json:"type"`
	Category   string          `json:"category,omitempty"`
	JobType    string          `json:"job_type,omitempty"`
	JobID      *int64          `json:"job_id,omitempty"`
	Descriptor json.RawMessage `json:"descriptor,omitempty"`
}

// ErrorBody describes a structured error
type ErrorBody struct {
	Code    int      `json:"code"`
	Name    string   `json:"name"`
	Args    []string `json:"args"`
	Message string   `json:"message"`
}

// ErrorResponse wraps an ErrorBody
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse renders any error as a classified error response
func NewErrorResponse(err error) ErrorResponse {
	e := jobs.AsError(err)
	args := e.Args
	if args == nil {
		args = []string{}
	}
	return ErrorResponse{Error: ErrorBody{
		Code:    int(e.Code),
		Name:    e.Code.String(),
		Args:    args,
		Message: e.Error(),
	}}
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
}
