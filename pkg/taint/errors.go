package taint

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is matched by errors.Is for structurally broken trees.
var ErrMalformedInput = errors.New("malformed input")

// ErrorKind classifies analysis failures.
type ErrorKind int

const (
	MalformedInput ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	if k == MalformedInput {
		return "MalformedInput"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// AnalysisError is returned when a scope cannot be analysed at all.
type AnalysisError struct {
	Kind   ErrorKind
	Scope  string
	Line   int
	Reason string
}

func (e *AnalysisError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("analysis of %s failed (%s): %s at line %d", e.Scope, e.Kind, e.Reason, e.Line)
	}
	return fmt.Sprintf("analysis of %s failed (%s): %s", e.Scope, e.Kind, e.Reason)
}

func (e *AnalysisError) Unwrap() error {
	if e.Kind == MalformedInput {
		return ErrMalformedInput
	}
	return nil
}

func malformed(scope string, line int, reason string) *AnalysisError {
	return &AnalysisError{Kind: MalformedInput, Scope: scope, Line: line, Reason: reason}
}
