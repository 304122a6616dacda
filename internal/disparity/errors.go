package disparity

import (
	"errors"
	"fmt"
)

// Pipeline stages. Every error returned by Run matches exactly one of them
// with errors.Is.
var (
	ErrLoad            = errors.New("load error")
	ErrWrap            = errors.New("wrap error")
	ErrStream          = errors.New("stream error")
	ErrEstimatorCreate = errors.New("estimator create error")
	ErrSubmit          = errors.New("submission error")
	ErrSync            = errors.New("sync error")
	ErrReadback        = errors.New("readback error")
	ErrWrite           = errors.New("write error")
)

// StageError records the stage and operation that failed together with the
// underlying cause.
type StageError struct {
	Stage error
	Op    string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage, e.Err}
}

func stageError(stage error, op string, err error) error {
	return &StageError{Stage: stage, Op: op, Err: err}
}
