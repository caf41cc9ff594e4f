package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlreplay/internal/driver"
	"github.com/roach88/hdlreplay/internal/ir"
)

// ElaborationError represents a fatal error detected while elaborating a
// module. Every code aborts the module's construction; the engine never
// returns a partial tree.
//
// ElaborationError includes structured fields for diagnostics.
type ElaborationError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Module names the module under construction.
	Module string

	// Site identifies the decision or assignment site, when known.
	Site ir.SiteID

	// Dest and Range identify the endpoint bits involved (MULTI_DRIVE, INVALID_ENDPOINT).
	Dest  ir.Endpoint
	Range ir.BitRange

	// Invocation is the 1-based replay invocation in which the error surfaced.
	Invocation int

	// Err is the underlying error, if any.
	Err error
}

// ErrorCode categorizes elaboration errors.
type ErrorCode string

const (
	// ErrCodeNonDeterministic indicates the invocation bound or the per-invocation
	// event bound was exceeded.
	ErrCodeNonDeterministic ErrorCode = "NON_DETERMINISTIC_CONSTRUCTION"

	// ErrCodeInconsistentSite indicates a decision site reappeared with a
	// different kind or value domain.
	ErrCodeInconsistentSite ErrorCode = "INCONSISTENT_DECISION_SITE"

	// ErrCodeReplayDivergence indicates a replayed invocation did not match
	// the recorded trace where a match was required.
	ErrCodeReplayDivergence ErrorCode = "REPLAY_DIVERGENCE"

	// ErrCodeMultiDrive indicates endpoint bits driven twice on one path.
	ErrCodeMultiDrive ErrorCode = "MULTI_DRIVE"

	// ErrCodeInvalidEndpoint indicates an unregistered endpoint, a width
	// mismatch, or a range outside the endpoint.
	ErrCodeInvalidEndpoint ErrorCode = "INVALID_ENDPOINT"
)

// Error implements the error interface.
func (e *ElaborationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Module != "" {
		msg += fmt.Sprintf(" (module=%s", e.Module)
		if e.Site.Key != "" {
			msg += fmt.Sprintf(", site=%s", e.Site)
		}
		if e.Dest != "" {
			msg += fmt.Sprintf(", dest=%s%s", e.Dest, e.Range)
		}
		if e.Invocation > 0 {
			msg += fmt.Sprintf(", invocation=%d", e.Invocation)
		}
		msg += ")"
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ElaborationError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the ElaborationError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ee *ElaborationError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNonDeterministicError returns true if the error is a NON_DETERMINISTIC_CONSTRUCTION error.
// Uses errors.As to handle wrapped errors.
func IsNonDeterministicError(err error) bool {
	return CodeOf(err) == ErrCodeNonDeterministic
}

// IsInconsistentSiteError returns true if the error is an INCONSISTENT_DECISION_SITE error.
func IsInconsistentSiteError(err error) bool {
	return CodeOf(err) == ErrCodeInconsistentSite
}

// IsDivergenceError returns true if the error is a REPLAY_DIVERGENCE error.
func IsDivergenceError(err error) bool {
	return CodeOf(err) == ErrCodeReplayDivergence
}

// IsMultiDriveError returns true if the error is a MULTI_DRIVE error.
// Matches both ElaborationError with ErrCodeMultiDrive and a bare driver.MultiDriveError.
func IsMultiDriveError(err error) bool {
	return CodeOf(err) == ErrCodeMultiDrive || driver.IsMultiDriveError(err)
}

// NewNonDeterministicError creates an ElaborationError for an exceeded bound.
func NewNonDeterministicError(module, what string, count, limit int) *ElaborationError {
	return &ElaborationError{
		Code:    ErrCodeNonDeterministic,
		Message: fmt.Sprintf("construction exceeded max %s (%d > %d)", what, count, limit),
		Module:  module,
	}
}

// NewInconsistentSiteError creates an ElaborationError for an unstable decision site.
func NewInconsistentSiteError(module string, site ir.SiteID, was, now string) *ElaborationError {
	return &ElaborationError{
		Code:    ErrCodeInconsistentSite,
		Message: fmt.Sprintf("decision site changed domain from %s to %s", was, now),
		Module:  module,
		Site:    site,
	}
}

// NewDivergenceError creates an ElaborationError for a replay mismatch.
func NewDivergenceError(module string, site ir.SiteID, message string) *ElaborationError {
	return &ElaborationError{
		Code:    ErrCodeReplayDivergence,
		Message: message,
		Module:  module,
		Site:    site,
	}
}

// wrapDriverError converts a driver table error into an ElaborationError.
func wrapDriverError(module string, site ir.SiteID, dest ir.Endpoint, rng ir.BitRange, err error) *ElaborationError {
	code := ErrCodeInvalidEndpoint
	if driver.IsMultiDriveError(err) {
		code = ErrCodeMultiDrive
	}
	return &ElaborationError{
		Code:    code,
		Message: err.Error(),
		Module:  module,
		Site:    site,
		Dest:    dest,
		Range:   rng,
		Err:     err,
	}
}
