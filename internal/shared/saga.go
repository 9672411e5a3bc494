package shared

import (
	"context"
	"fmt"
	"log/slog"
)

// StepMode declares up front what a step failure does to the whole sequence.
type StepMode int

const (
	// StepAbort fails the whole saga when the step fails.
	StepAbort StepMode = iota
	// StepTolerate logs the failure and continues; used for rebuildable projections.
	StepTolerate
)

// SagaStep is one ordered write with a declared failure mode.
type SagaStep struct {
	Name string
	Mode StepMode
	Run  func(context.Context) error
}

// Saga runs ordered steps against the datastore without a wrapping transaction.
// Step order is the consistency mechanism: primary records run first, derived
// projections last, so a crash mid-sequence fails open toward surplus stock.
type Saga struct {
	name   string
	logger *slog.Logger
	steps  []SagaStep
}

// NewSaga constructs a named saga.
func NewSaga(name string, logger *slog.Logger) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{name: name, logger: logger}
}

// Then appends a step whose failure aborts the saga.
func (s *Saga) Then(name string, fn func(context.Context) error) *Saga {
	s.steps = append(s.steps, SagaStep{Name: name, Mode: StepAbort, Run: fn})
	return s
}

// ThenTolerate appends a step whose failure is logged and swallowed.
func (s *Saga) ThenTolerate(name string, fn func(context.Context) error) *Saga {
	s.steps = append(s.steps, SagaStep{Name: name, Mode: StepTolerate, Run: fn})
	return s
}

// Run executes the steps in order.
func (s *Saga) Run(ctx context.Context) error {
	for _, step := range s.steps {
		if err := step.Run(ctx); err != nil {
			if step.Mode == StepTolerate {
				s.logger.Error("saga step failed, continuing",
					slog.String("saga", s.name),
					slog.String("step", step.Name),
					slog.Any("error", err))
				continue
			}
			return fmt.Errorf("%s: %s: %w", s.name, step.Name, err)
		}
	}
	return nil
}
