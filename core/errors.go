package core

import (
	"errors"
	"fmt"
)

// ErrStepLimit is returned once a run exceeds its turn budget.
var ErrStepLimit = errors.New("exceeded max turns")

// ErrNoResponse is matched (errors.Is) by every NoResponseError.
var ErrNoResponse = errors.New("completion service returned no usable response")

// NoResponseError reports that the completion service returned zero choices
// or a choice without a message. It is fatal for the turn.
type NoResponseError struct {
	Model  string
	Reason string
}

func (e *NoResponseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: model %q", ErrNoResponse, e.Model)
	}
	return fmt.Sprintf("%s: model %q: %s", ErrNoResponse, e.Model, e.Reason)
}

// Is enables errors.Is(err, ErrNoResponse).
func (e *NoResponseError) Is(target error) bool { return target == ErrNoResponse }

// MalformedArgumentsError reports a tool call argument payload that is not a
// JSON object.
type MalformedArgumentsError struct {
	Tool      string
	Arguments string
	Err       error
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("malformed arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *MalformedArgumentsError) Unwrap() error { return e.Err }

// UnresolvedToolError reports a tool call whose name matches nothing in the
// active tool set.
type UnresolvedToolError struct {
	Name      string
	Available []string
}

func (e *UnresolvedToolError) Error() string {
	return fmt.Sprintf("tool %q is not available; available tools: %v", e.Name, e.Available)
}
