package agent

import (
	"errors"
	"fmt"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Swarm errors
var (
	ErrJobNotFound = errors.New("swarm job not found")
	ErrNoPrompts   = errors.New("no prompts given and mode has no preset roles")
)

// Synthesis errors
var (
	ErrSynthesisPrecondition = errors.New("no completed tasks with output to synthesize")
)

// IterationBoundError is returned when a turn needs more tool
// round-trips than the executor allows. It is fatal for the turn; the
// executor never silently returns a partial answer instead.
type IterationBoundError struct {
	Limit int
}

func (e *IterationBoundError) Error() string {
	return fmt.Sprintf("turn exceeded the tool round-trip limit of %d", e.Limit)
}
