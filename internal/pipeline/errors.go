package pipeline

import (
	"errors"
	"fmt"
)

// Pipeline stages, also used as metric labels.
const (
	StageExtract      = "extract"
	StageScript       = "script"
	StageSynthesize   = "synthesize"
	StageSaveAudio    = "save_audio"
	StageSaveMetadata = "save_metadata"
)

// ErrEmptyContent is returned when an email yields no text at all.
var ErrEmptyContent = errors.New("email has no usable content")

// Error is a fatal pipeline failure. No episode is visible after one.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
