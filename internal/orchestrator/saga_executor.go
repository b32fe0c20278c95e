package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// SagaStep represents a single checkpointed step of the release.
type SagaStep struct {
	Name string
	Type domain.OperationType
	// Retries is the number of extra attempts after a failure.
	Retries uint64
	Execute func(ctx context.Context) (checkpoint map[string]any, err error)
}

// SagaExecutor runs steps in order and records a checkpoint after each one.
// A failed run is resumed by loading the session and executing it again;
// completed steps are skipped.
type SagaExecutor struct {
	stateRepo repository.StateRepository
	state     *domain.SessionState
	steps     []SagaStep
	log       *zap.SugaredLogger
}

// NewSagaExecutor creates a saga with a fresh session id.
func NewSagaExecutor(stateRepo repository.StateRepository, log *zap.SugaredLogger) *SagaExecutor {
	return &SagaExecutor{
		stateRepo: stateRepo,
		state:     domain.NewSessionState(uuid.New().String()),
		log:       log,
	}
}

// LoadExistingSaga loads a session from state. An empty sessionID loads the latest one.
func LoadExistingSaga(
	ctx context.Context,
	stateRepo repository.StateRepository,
	sessionID string,
	log *zap.SugaredLogger,
) (*SagaExecutor, error) {
	var (
		state *domain.SessionState
		err   error
	)
	if sessionID == "" {
		state, err = stateRepo.LoadLatest(ctx)
	} else {
		state, err = stateRepo.Load(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load saga state: %w", err)
	}
	return &SagaExecutor{
		stateRepo: stateRepo,
		state:     state,
		log:       log,
	}, nil
}

// AddStep adds a step to the saga
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.state.AddOperation(step.Type)
}

// Execute runs every step not yet completed, saving the session after each transition.
func (s *SagaExecutor) Execute(ctx context.Context) error {
	if s.state.Status == domain.WorkflowStatusCompleted {
		s.log.Infow("Session already completed", "session_id", s.state.SessionID)
		return nil
	}
	s.state.Status = domain.WorkflowStatusRunning
	s.state.Error = ""
	if err := s.saveState(ctx); err != nil {
		return fmt.Errorf("failed to save initial state: %w", err)
	}
	for _, step := range s.steps {
		if s.state.IsCompleted(step.Type) {
			s.log.Infow("Skipping completed step", "step", step.Name)
			continue
		}
		if err := s.executeStep(ctx, step); err != nil {
			s.state.MarkOperationFailed(step.Type, err)
			s.saveStateBestEffort(ctx)
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	s.state.Status = domain.WorkflowStatusCompleted
	s.saveStateBestEffort(ctx)
	return nil
}

// executeStep executes a single saga step with its retry budget
func (s *SagaExecutor) executeStep(ctx context.Context, step SagaStep) error {
	s.state.MarkOperationStarted(step.Type)
	s.saveStateBestEffort(ctx)
	s.log.Debugw("Executing step", "step", step.Name, "retries", step.Retries)
	var checkpoint map[string]any
	attempt := 0
	backoff := retry.WithMaxRetries(step.Retries, retry.NewExponential(DefaultRetryDelay))
	err := retry.Do(ctx, backoff, func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		attempt++
		data, execErr := step.Execute(retryCtx)
		if execErr != nil {
			if attempt <= int(step.Retries) {
				s.log.Warnw("Step failed, retrying", "step", step.Name, "attempt", attempt, "error", execErr)
			}
			return retry.RetryableError(execErr)
		}
		checkpoint = data
		return nil
	})
	if err != nil {
		return err
	}
	s.state.MarkOperationCompleted(step.Type, checkpoint)
	s.saveStateBestEffort(ctx)
	return nil
}

// saveState persists the current state
func (s *SagaExecutor) saveState(ctx context.Context) error {
	return s.stateRepo.Save(ctx, s.state)
}

func (s *SagaExecutor) saveStateBestEffort(ctx context.Context) {
	if err := s.saveState(context.WithoutCancel(ctx)); err != nil {
		s.log.Warnw("Failed to save release session", "session_id", s.state.SessionID, "error", err)
	}
}

// State returns the session recorded by the saga.
func (s *SagaExecutor) State() *domain.SessionState {
	return s.state
}

// SessionID returns the id under which the session is stored.
func (s *SagaExecutor) SessionID() string {
	return s.state.SessionID
}
