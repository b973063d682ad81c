package ibl

import (
	"errors"
	"fmt"
)

var (
	// ErrPanorama means the source panorama is missing or malformed.
	ErrPanorama = errors.New("environment panorama unavailable")
	// ErrProgramBuild wraps every shader compile or link failure.
	ErrProgramBuild = errors.New("capture program build failed")
	// ErrAllocation means the device could not provide texture or target storage.
	ErrAllocation = errors.New("device allocation failed")
	// ErrNotReady is returned when products are requested before a bake completes.
	ErrNotReady = errors.New("image-based lighting not baked")
	// ErrInvalidSettings is returned by Settings.Validate.
	ErrInvalidSettings = errors.New("invalid bake settings")
)

// ProgramError reports which program and stage failed to build, with the
// compiler or linker log.
type ProgramError struct {
	Program ProgramKind
	Stage   string
	Log     string
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("%s program: %s: %s", e.Program, e.Stage, e.Log)
}

func (e *ProgramError) Unwrap() error { return ErrProgramBuild }
