package migration

import "time"

// Result summarises one run. A failed run keeps the counts reached before
// the failure; FailedStage names the state the run was in when it failed.
type Result struct {
	TotalRecords     int       `json:"total_records"`
	ProcessedRecords int       `json:"processed_records"`
	SuccessCount     int       `json:"success_count"`
	ErrorCount       int       `json:"error_count"`
	Batches          int       `json:"batches"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	State            State     `json:"state"`
	FailedStage      State     `json:"failed_stage,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
}

// Succeeded reports whether the run completed
func (r *Result) Succeeded() bool {
	return r.Status == StatusCompleted
}

// Duration returns the wall time of the run
func (r *Result) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

func (r *Result) recordBatch(size, loaded int) {
	r.Batches++
	r.ProcessedRecords += size
	r.SuccessCount += loaded
	r.ErrorCount = r.ProcessedRecords - r.SuccessCount
}
