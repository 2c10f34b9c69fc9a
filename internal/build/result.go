package build

import (
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/pagefactory/internal/incremental"
)

// Status summarizes the outcome of a pass.
type Status string

const (
	// StatusSuccess means every processed page was written or unchanged.
	StatusSuccess Status = "success"
	// StatusPartial means some pages failed and others succeeded.
	StatusPartial Status = "partial"
	// StatusFailed means there were failures and no page succeeded.
	StatusFailed Status = "failed"
	// StatusEmpty means nothing was processed and nothing failed.
	StatusEmpty Status = "empty"
)

// Failure is one contained failure of a pass.
type Failure struct {
	Manifest string
	Template string
	// Page is empty for manifest and template level failures.
	Page  string
	Stage string
	Err   error
}

// PassResult aggregates the outcome of one pass.
type PassResult struct {
	PassID    string
	Mode      incremental.Mode
	StartTime time.Time
	Duration  time.Duration

	Manifests       int
	ManifestsFailed int
	TemplatesFailed int

	Written   int
	Unchanged int
	Skipped   int
	Failed    int

	Failures []Failure

	mu sync.Mutex
}

// Status derives the pass status from the counters.
func (r *PassResult) Status() Status {
	failures := len(r.Failures)
	succeeded := r.Written + r.Unchanged
	switch {
	case failures == 0 && succeeded == 0:
		return StatusEmpty
	case failures == 0:
		return StatusSuccess
	case succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// HasFailures reports whether any manifest, template or page failed.
func (r *PassResult) HasFailures() bool { return len(r.Failures) > 0 }

func (r *PassResult) addManifest() {
	r.mu.Lock()
	r.Manifests++
	r.mu.Unlock()
}

func (r *PassResult) addSkipped(n int) {
	r.mu.Lock()
	r.Skipped += n
	r.mu.Unlock()
}

func (r *PassResult) addWritten(written bool) {
	r.mu.Lock()
	if written {
		r.Written++
	} else {
		r.Unchanged++
	}
	r.mu.Unlock()
}

func (r *PassResult) addFailure(f Failure, failedPages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, f)
	r.Failed += failedPages
	switch f.Stage {
	case StageManifest:
		r.ManifestsFailed++
	case StageTemplate:
		r.TemplatesFailed++
	}
}

func (r *PassResult) finish(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(start)
	sort.SliceStable(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i], r.Failures[j]
		if a.Manifest != b.Manifest {
			return a.Manifest < b.Manifest
		}
		if a.Template != b.Template {
			return a.Template < b.Template
		}
		return a.Page < b.Page
	})
}
