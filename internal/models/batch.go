package models

// BatchItem is one request within a batch submission.
type BatchItem struct {
	// ID is an optional caller-supplied correlation id.
	ID       string
	Messages []Message
	// Options overrides BatchOptions.Defaults for this item when set.
	Options *RequestOptions
}

// BatchOptions configures a batch submission.
type BatchOptions struct {
	Name     string
	CallerID string
	// TimeoutSeconds is clamped into the backend completion window. Zero
	// selects the maximum window.
	TimeoutSeconds int
	Metadata       map[string]string
	Defaults       RequestOptions
}

// BatchSubmission is returned once a batch job has been created.
type BatchSubmission struct {
	JobID          string   `json:"job_id"`
	CorrelationIDs []string `json:"correlation_ids"`
	WindowHours    int      `json:"window_hours"`
}

// BatchState is the unified lifecycle state of a batch job.
type BatchState string

const (
	BatchPending    BatchState = "pending"
	BatchProcessing BatchState = "processing"
	BatchCompleted  BatchState = "completed"
	BatchFailed     BatchState = "failed"
)

// BatchError describes a job-level failure reported by the backend.
type BatchError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// BatchCounts mirrors the backend's per-request tallies.
type BatchCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// BatchStatus is a snapshot of a batch job.
type BatchStatus struct {
	JobID        string            `json:"job_id"`
	State        BatchState        `json:"state"`
	RawStatus    string            `json:"raw_status"`
	OutputFileID string            `json:"output_file_id,omitempty"`
	ErrorFileID  string            `json:"error_file_id,omitempty"`
	Error        *BatchError       `json:"error,omitempty"`
	Counts       BatchCounts       `json:"counts"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
