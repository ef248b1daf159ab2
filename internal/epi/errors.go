package epi

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInitialState indicates Simulate was called before SetInitialState.
	ErrNoInitialState = errors.New("epi: initial state not set")

	// ErrNoSolution indicates Evaluate was called before a successful Simulate.
	ErrNoSolution = errors.New("epi: no simulation has been run")
)

// ShapeError reports a vector or matrix whose size does not match the
// compartment count.
type ShapeError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("epi: %s has size %d, want %d", e.Field, e.Got, e.Want)
}

// ConfigurationError reports a missing or out-of-range model parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("epi: invalid %s: %s", e.Field, e.Reason)
}

// IntegrationError reports a failed ODE solve. It is fatal; the model does
// not retry with different controls.
type IntegrationError struct {
	Method string
	Err    error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("epi: integration with %s failed: %v", e.Method, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// StateError reports an operation invoked before its prerequisites,
// e.g. evaluating results before running a simulation.
type StateError struct {
	Op  string
	Err error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("epi: %s: %v", e.Op, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }
