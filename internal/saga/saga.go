// Package saga runs ordered multi-record writes that the store cannot make
// atomic. A failed step triggers the compensations of the steps that already
// succeeded, newest first; steps without a compensation stay applied.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Step is one write of a saga.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga is a named ordered list of steps.
type Saga struct {
	Name  string
	Steps []Step
}

// Error reports where a saga stopped and what was left behind.
type Error struct {
	Saga string
	// Step is the name of the step that failed.
	Step string
	Err  error
	// Applied lists steps that succeeded and were not undone.
	Applied []string
	// Compensated lists steps that were successfully undone.
	Compensated []string
	// CompensationErrs holds failures while undoing steps.
	CompensationErrs []error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("saga %s: step %s failed: %v", e.Saga, e.Step, e.Err)
	if len(e.Applied) > 0 {
		msg += fmt.Sprintf(" (left applied: %s)", strings.Join(e.Applied, ", "))
	}
	if len(e.CompensationErrs) > 0 {
		msg += fmt.Sprintf(" (compensation failed: %v)", errors.Join(e.CompensationErrs...))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Partial reports whether the saga left some of its writes in place.
func (e *Error) Partial() bool {
	return len(e.Applied) > 0 || len(e.CompensationErrs) > 0
}

// New builds a saga.
func New(name string, steps ...Step) *Saga {
	return &Saga{Name: name, Steps: steps}
}

// Add appends a step.
func (s *Saga) Add(step Step) *Saga {
	s.Steps = append(s.Steps, step)
	return s
}

// Run executes the steps in order. On failure it compensates completed steps
// in reverse and returns an *Error wrapping the step's error.
func (s *Saga) Run(ctx context.Context) error {
	done := make([]Step, 0, len(s.Steps))
	for _, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return s.unwind(ctx, done, step.Name, err)
		}
		if err := step.Do(ctx); err != nil {
			return s.unwind(ctx, done, step.Name, err)
		}
		done = append(done, step)
	}
	return nil
}

func (s *Saga) unwind(ctx context.Context, done []Step, failed string, cause error) error {
	sagaErr := &Error{Saga: s.Name, Step: failed, Err: cause}
	log.Printf("saga %s: step %q failed: %v", s.Name, failed, cause)

	// compensations run even if ctx was cancelled
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			sagaErr.Applied = append(sagaErr.Applied, step.Name)
			continue
		}
		if err := step.Compensate(cctx); err != nil {
			log.Printf("saga %s: compensating %q failed: %v", s.Name, step.Name, err)
			sagaErr.Applied = append(sagaErr.Applied, step.Name)
			sagaErr.CompensationErrs = append(sagaErr.CompensationErrs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		sagaErr.Compensated = append(sagaErr.Compensated, step.Name)
	}
	if sagaErr.Partial() {
		log.Printf("saga %s: left partially applied: %v", s.Name, sagaErr.Applied)
	}
	return sagaErr
}
