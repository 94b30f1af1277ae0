package sagas

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SagaStep represents a single step in a saga. Steps run exactly once; a
// failed step is never retried.
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context, data interface{}) (interface{}, error)
	Compensate func(ctx context.Context, data interface{}) error
}

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending            SagaState = "PENDING"
	SagaStateRunning            SagaState = "RUNNING"
	SagaStateCompleted          SagaState = "COMPLETED"
	SagaStateCompensating       SagaState = "COMPENSATING"
	SagaStateCompensated        SagaState = "COMPENSATED"
	SagaStateCompensationFailed SagaState = "COMPENSATION_FAILED"
)

// StepError is returned when a step fails. CompensationErr is set when undoing
// the completed steps failed as well, which leaves partial state behind.
type StepError struct {
	Saga            string
	Step            string
	Err             error
	CompensationErr error
}

func (e *StepError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("saga %s failed at step %s and compensation failed: %v (compensation: %v)",
			e.Saga, e.Step, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("saga %s failed at step %s: %v", e.Saga, e.Step, e.Err)
}

// Unwrap returns the step failure
func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated reports whether every completed step was undone
func (e *StepError) Compensated() bool {
	return e.CompensationErr == nil
}

// Saga orchestrates a series of steps with compensation logic
type Saga struct {
	id            string
	name          string
	steps         []SagaStep
	compensations []func(ctx context.Context) error
	state         SagaState
	currentStep   int
	logger        *zap.Logger
	metadata      map[string]interface{}
}

// NewSaga creates a new saga instance
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		id:            generateSagaID(),
		name:          name,
		steps:         make([]SagaStep, 0),
		compensations: make([]func(ctx context.Context) error, 0),
		state:         SagaStatePending,
		logger:        logger,
		metadata:      make(map[string]interface{}),
	}
}

// AddStep adds a step to the saga
func (s *Saga) AddStep(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// SetMetadata sets metadata for the saga
func (s *Saga) SetMetadata(key string, value interface{}) *Saga {
	s.metadata[key] = value
	return s
}

// Execute runs the saga. On a step failure the completed steps are
// compensated in reverse order and a *StepError is returned.
func (s *Saga) Execute(ctx context.Context, initialData interface{}) (interface{}, error) {
	s.state = SagaStateRunning
	s.logger.Debug("Starting saga execution",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
		zap.Any("metadata", s.metadata),
	)

	data := initialData
	for i, step := range s.steps {
		s.currentStep = i

		result, err := step.Execute(ctx, data)
		if err != nil {
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			stepErr := &StepError{Saga: s.name, Step: step.Name, Err: err}
			if compensateErr := s.compensate(ctx); compensateErr != nil {
				s.state = SagaStateCompensationFailed
				stepErr.CompensationErr = compensateErr
				s.logger.Error("Saga compensation failed",
					zap.String("saga_id", s.id),
					zap.String("saga_name", s.name),
					zap.Error(compensateErr),
				)
				return nil, stepErr
			}

			s.state = SagaStateCompensated
			return nil, stepErr
		}

		data = result
		if step.Compensate != nil {
			stepData := data
			compensate := step.Compensate
			s.compensations = append(s.compensations, func(ctx context.Context) error {
				return compensate(ctx, stepData)
			})
		}

		s.logger.Debug("Saga step completed",
			zap.String("saga_id", s.id),
			zap.String("step_name", step.Name),
			zap.Int("step_number", i+1),
		)
	}

	s.state = SagaStateCompleted
	return data, nil
}

// compensate runs compensation logic in reverse order. Every compensation
// is attempted; failures are joined. Compensations keep the caller's values
// but not its cancellation, so a dropped request still undoes its writes.
func (s *Saga) compensate(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	s.state = SagaStateCompensating
	s.logger.Info("Starting saga compensation",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("steps_to_compensate", len(s.compensations)),
	)

	var errs []error
	for i := len(s.compensations) - 1; i >= 0; i-- {
		if err := s.compensations[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetState returns the current state of the saga
func (s *Saga) GetState() SagaState {
	return s.state
}

// GetID returns the saga ID
func (s *Saga) GetID() string {
	return s.id
}

// GetCurrentStep returns the current step index
func (s *Saga) GetCurrentStep() int {
	return s.currentStep
}

func generateSagaID() string {
	return "saga_" + uuid.NewString()
}

// SagaBuilder provides a fluent interface for building sagas
type SagaBuilder struct {
	saga *Saga
}

// NewSagaBuilder creates a new saga builder
func NewSagaBuilder(name string, logger *zap.Logger) *SagaBuilder {
	return &SagaBuilder{
		saga: NewSaga(name, logger),
	}
}

// WithStep adds a step to the saga
func (b *SagaBuilder) WithStep(name string, execute func(context.Context, interface{}) (interface{}, error)) *SagaBuilder {
	b.saga.AddStep(SagaStep{
		Name:    name,
		Execute: execute,
	})
	return b
}

// WithCompensableStep adds a step with compensation logic
func (b *SagaBuilder) WithCompensableStep(
	name string,
	execute func(context.Context, interface{}) (interface{}, error),
	compensate func(context.Context, interface{}) error,
) *SagaBuilder {
	b.saga.AddStep(SagaStep{
		Name:       name,
		Execute:    execute,
		Compensate: compensate,
	})
	return b
}

// WithMetadata adds metadata to the saga
func (b *SagaBuilder) WithMetadata(key string, value interface{}) *SagaBuilder {
	b.saga.SetMetadata(key, value)
	return b
}

// Build returns the constructed saga
func (b *SagaBuilder) Build() *Saga {
	return b.saga
}
