package driver

import (
	"errors"
	"fmt"

	"github.com/roach88/hdlreplay/internal/ir"
)

// ErrUnknownEndpoint is returned when an assignment targets an endpoint that
// was never registered.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// MultiDriveError reports bits of an endpoint driven by more than one
// assignment on the same path.
type MultiDriveError struct {
	Dest     ir.Endpoint
	Range    ir.BitRange // the rejected assignment
	Conflict ir.BitRange // bits already driven
	Source   ir.Operand  // source of the rejected assignment
	Existing ir.Operand  // source already driving Conflict
}

// Error implements the error interface.
func (e *MultiDriveError) Error() string {
	return fmt.Sprintf("multiple drivers for %s%s: %s conflicts with %s already driving %s",
		e.Dest, e.Range, e.Source, e.Existing, e.Conflict)
}

// RangeError reports an assignment range outside the endpoint's width, or a
// registration that disagrees with an earlier width.
type RangeError struct {
	Dest  ir.Endpoint
	Range ir.BitRange
	Width int
	Msg   string
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s (width %d, range %s)", e.Dest, e.Msg, e.Width, e.Range)
}

// IsMultiDriveError returns true if err is or wraps a MultiDriveError.
func IsMultiDriveError(err error) bool {
	var md *MultiDriveError
	return errors.As(err, &md)
}
