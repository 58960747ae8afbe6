package syncer

import "time"

// maxErrorDetails caps how many per-row error strings a result keeps. The
// error count keeps climbing past the cap.
const maxErrorDetails = 25

// Result accumulates the outcome of one sync run. One bad row adds an error
// and the run keeps going; the run itself only fails when nothing could be
// fetched at all.
type Result struct {
	Job          string    `json:"job"`
	Success      bool      `json:"success"`
	Processed    int       `json:"processed"`
	Errors       int       `json:"errors"`
	ErrorDetails []string  `json:"error_details,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`

	Duration time.Duration `json:"-"`
}

func newResult(job string) *Result {
	return &Result{
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

func (r *Result) recordSuccess() {
	r.Processed++
}

func (r *Result) recordError(detail string) {
	r.Errors++
	if len(r.ErrorDetails) < maxErrorDetails {
		r.ErrorDetails = append(r.ErrorDetails, detail)
	}
}

// merge folds a sub-result into this one
func (r *Result) merge(other *Result) {
	r.Processed += other.Processed
	r.Errors += other.Errors
	for _, detail := range other.ErrorDetails {
		if len(r.ErrorDetails) >= maxErrorDetails {
			break
		}
		r.ErrorDetails = append(r.ErrorDetails, detail)
	}
}

func (r *Result) finish() *Result {
	r.Duration = time.Since(r.StartedAt)
	r.DurationMs = r.Duration.Milliseconds()
	r.Success = r.Errors == 0
	return r
}
