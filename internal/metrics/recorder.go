package metrics

import "time"

// PageResult enumerates page outcomes for counters.
type PageResult string

const (
	PageWritten   PageResult = "written"
	PageUnchanged PageResult = "unchanged"
	PageSkipped   PageResult = "skipped"
	PageFailed    PageResult = "failed"
)

// Recorder defines observability hooks for pass, stage and page metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObservePassDuration(mode string, d time.Duration)
	IncPassOutcome(status string) // status: success|partial|failed|empty
	ObserveStageDuration(stage string, d time.Duration)
	IncPageResult(result PageResult)
	IncManifestResult(success bool)
	SetRenderConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(string, time.Duration)  {}
func (NoopRecorder) IncPassOutcome(string)                      {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncPageResult(PageResult)                   {}
func (NoopRecorder) IncManifestResult(bool)                     {}
func (NoopRecorder) SetRenderConcurrency(int)                   {}
