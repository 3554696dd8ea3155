package service

import (
	"errors"
	"fmt"
)

var (
	ErrOracleUnavailable     = errors.New("ORACLE_UNAVAILABLE")
	ErrOracleMalformedOutput = errors.New("ORACLE_MALFORMED_OUTPUT")
	ErrStoreExecution        = errors.New("STORE_EXECUTION_FAILED")
	ErrRetrieval             = errors.New("RETRIEVAL_FAILED")
	ErrUnexpectedInternal    = errors.New("UNEXPECTED_INTERNAL")
)

// PipelineError ties a failure to the stage that produced it.
type PipelineError struct {
	Kind error
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newPipelineError(kind error, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// ErrorCode returns the sentinel code carried by err, or
// UNEXPECTED_INTERNAL when err is not a pipeline error.
func ErrorCode(err error) string {
	for _, kind := range []error{ErrOracleUnavailable, ErrOracleMalformedOutput, ErrStoreExecution, ErrRetrieval, ErrUnexpectedInternal} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrUnexpectedInternal.Error()
}
