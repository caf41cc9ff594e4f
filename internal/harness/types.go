package harness

import "github.com/roach88/hdlreplay/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions and run checks hold.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Module is the elaborated module. Nil if elaboration failed.
	Module *ir.Module `json:"-"`

	// Stats summarizes Module.
	Stats *ir.Stats `json:"stats,omitempty"`

	// StoredID is the ID Module was stored under.
	StoredID string `json:"stored_id,omitempty"`

	// ErrorCode and ErrorMessage describe a failed elaboration: an engine
	// error code, or a compiler validation code (E2xx) if the library did
	// not pass static validation.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Failed reports whether elaboration failed.
func (r *Result) Failed() bool {
	return r.ErrorCode != ""
}
