package scripting

import (
	"errors"
	"fmt"

	"github.com/vibeforge/engine/internal/core/ecs"
)

var (
	ErrCompile     = errors.New("script compile error")
	ErrRuntime     = errors.New("script runtime error")
	ErrNotCompiled = errors.New("script not compiled")
)

// CompileError locates a compile failure in the user's source.
// Line and Column are 1-based; 0 means unknown.
type CompileError struct {
	ScriptID string
	Line     int
	Column   int
	Message  string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile %s:%d:%d: %s", e.ScriptID, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile %s: %s", e.ScriptID, e.Message)
}

func (e *CompileError) Unwrap() error { return ErrCompile }

// ScriptError is an error raised by script code, or a Go panic recovered
// while running it.
type ScriptError struct {
	ScriptID  string
	Entity    ecs.EntityID
	Lifecycle Lifecycle
	Message   string
	Traceback string
	cause     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s %s (entity %d): %s", e.ScriptID, e.Lifecycle, e.Entity, e.Message)
}

func (e *ScriptError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrRuntime}
	}
	return []error{ErrRuntime, e.cause}
}
