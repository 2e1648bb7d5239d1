// Package faults defines the error kinds surfaced by the analysis pipeline.
//
// Kinds ride on errors as ftag tags so callers can branch on them without
// depending on concrete error types:
//
//	if faults.Is(err, faults.InputRejected) { ... }
package faults

import (
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	// InputRejected marks malformed or disallowed input. Returned to callers.
	InputRejected ftag.Kind = "input_rejected"
	// InferenceDegenerate marks bars without pitch-class mass.
	InferenceDegenerate ftag.Kind = "inference_degenerate"
	// Inconsistent marks a bar whose candidate set came out empty.
	Inconsistent ftag.Kind = "inconsistent"
	// TheoryKernel marks pitch-class sets or numerals the kernel cannot interpret.
	TheoryKernel ftag.Kind = "theory_kernel"
)

// Reject builds an InputRejected error. issue is the user-facing description.
// The message is wrapped, not decorated in place, so Error() flattens the
// chain instead of printing ftag's placeholder.
func Reject(msg, issue string) error {
	return fault.Wrap(fault.New(msg), fmsg.WithDesc(msg, issue), ftag.With(InputRejected))
}

// Rejectf builds an InputRejected error from a format string
func Rejectf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fault.Wrap(fault.New(msg), fmsg.WithDesc(msg, msg), ftag.With(InputRejected))
}

// WrapRejected tags err as InputRejected. Returns nil for a nil err.
func WrapRejected(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.WithDesc(msg, msg), ftag.With(InputRejected))
}

// Kernel builds a TheoryKernel error
func Kernel(format string, args ...any) error {
	return fault.Wrap(fault.New(fmt.Sprintf(format, args...)), ftag.With(TheoryKernel))
}

// Tag wraps err with the given kind and message
func Tag(err error, kind ftag.Kind, msg string) error {
	if err == nil {
		return nil
	}
	return fault.Wrap(err, fmsg.With(msg), ftag.With(kind))
}

// Is reports whether err carries kind
func Is(err error, kind ftag.Kind) bool {
	if err == nil {
		return false
	}
	return ftag.Get(err) == kind
}

// Issue returns the user-facing description attached to err, or its message
func Issue(err error) string {
	if err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}
