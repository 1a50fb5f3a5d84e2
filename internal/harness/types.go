package harness

import (
	"github.com/roach88/crossfade/internal/library"
	"github.com/roach88/crossfade/internal/store"
)

// StepEvent records what one step did.
type StepEvent struct {
	Seq    int64  `json:"seq"`
	Op     string `json:"op"`
	Target string `json:"target,omitempty"`

	// Size is the target collection's length after the step.
	Size int `json:"size,omitempty"`

	// IDs are the canonical ids produced by store steps, in order.
	IDs []int64 `json:"ids,omitempty"`

	// Created counts canonical rows created by store steps.
	Created int `json:"created,omitempty"`

	// Failures holds the error codes of records rejected by store steps.
	Failures []string `json:"failures,omitempty"`

	// Error is the code of the step's own error, if it failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Steps contains one event per executed step, in order.
	Steps []StepEvent `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Collections holds the final contents of every named collection.
	Collections map[string][]library.Entity `json:"-"`

	// Counts holds the final canonical row counts.
	Counts store.Counts `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Steps:       []StepEvent{},
		Errors:      []string{},
		Collections: make(map[string][]library.Entity),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step event.
func (r *Result) AddStep(ev StepEvent) {
	r.Steps = append(r.Steps, ev)
}

// FailureCount counts rejected records across steps, optionally filtered
// by error code.
func (r *Result) FailureCount(code string) int {
	n := 0
	for _, ev := range r.Steps {
		for _, c := range ev.Failures {
			if code == "" || c == code {
				n++
			}
		}
	}
	return n
}
