package harness

import (
	"github.com/roach88/loopsched/internal/plan"
	"github.com/roach88/loopsched/internal/store"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the plan covers the space and every expected row
	// matches, or when the expected error was returned.
	Pass bool `json:"pass"`

	// Request is the rendered loop request.
	Request string `json:"request"`

	// Plan is nil when building failed.
	Plan *plan.Plan `json:"plan,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Metadata holds the loop descriptions recorded during the run.
	Metadata []store.Record `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
