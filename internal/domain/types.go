// Package domain defines the core types shared across the converter:
// work items, per-item outcomes, and the batch report.
package domain

import "time"

// WorkItem identifies one input file to convert. Immutable once enumerated.
type WorkItem struct {
	Name       string // base name of the input file, e.g. "photo.png"
	SourcePath string
	DestPath   string
}

// OutcomeStatus is the terminal state of one work item.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusWarning OutcomeStatus = "warning" // converted, with benign diagnostic output
	StatusSkipped OutcomeStatus = "skipped" // destination already existed
	StatusFailed  OutcomeStatus = "failed"
)

// FailureKind distinguishes how a failed item failed.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureExitCode   FailureKind = "exit_code"  // converter exited non-zero
	FailureDiagnostic FailureKind = "diagnostic" // stderr line classified as an error
	FailureAborted    FailureKind = "aborted"    // admission cancelled before the item ran
)

// Outcome is the terminal result of one WorkItem. Never mutated after creation;
// exactly one Outcome exists per enumerated item.
type Outcome struct {
	Item     WorkItem
	Status   OutcomeStatus
	Failure  FailureKind
	ExitCode int
	Detail   string // diagnostic text: warning lines or the failing line
	Duration time.Duration

	InputBytes  int64
	OutputBytes int64
}

// Failed reports whether the item reached a failure outcome.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// BatchReport aggregates the outcomes of one batch invocation. It exists only
// for the lifetime of the batch and is discarded after reporting.
type BatchReport struct {
	ID        string
	InputDir  string
	OutputDir string
	DryRun    bool

	StartedAt  time.Time
	FinishedAt time.Time

	Outcomes []Outcome

	Succeeded int
	Warned    int
	Skipped   int
	Failed    int

	InputBytes  int64
	OutputBytes int64
}

// Total returns the number of recorded outcomes.
func (r *BatchReport) Total() int { return len(r.Outcomes) }

// SpaceSaved returns input minus output bytes across converted items.
// Negative when the converted files are larger than their sources.
func (r *BatchReport) SpaceSaved() int64 { return r.InputBytes - r.OutputBytes }

// Finalize computes the summary counters and byte totals from the outcomes.
func (r *BatchReport) Finalize() {
	r.Succeeded, r.Warned, r.Skipped, r.Failed = 0, 0, 0, 0
	r.InputBytes, r.OutputBytes = 0, 0

	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			r.Succeeded++
		case StatusWarning:
			r.Warned++
		case StatusSkipped:
			r.Skipped++
		case StatusFailed:
			r.Failed++
		}
		r.InputBytes += o.InputBytes
		r.OutputBytes += o.OutputBytes
	}
}
