package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a pipeline step.
type Stage string

// Pipeline stages, in execution order.
const (
	StageParse  Stage = "parse"
	StageLoad   Stage = "load"
	StageRender Stage = "render"
	StageEncode Stage = "encode"
)

// PipelineError tags the error of a failed stage. Err is the stage's error
// unchanged, so errors.Is still matches its sentinel kinds.
type PipelineError struct { //nolint:revive // name mirrors the error taxonomy
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// StageOf returns the stage tagged on err, if any.
func StageOf(err error) (Stage, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}

func fail(stage Stage, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}
