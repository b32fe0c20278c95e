package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errBoom = errors.New("boom")

func newSavingStateRepo() *mockStateRepository {
	repo := new(mockStateRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	return repo
}

func TestSagaExecutor_Execute(t *testing.T) {
	log := zap.NewNop().Sugar()
	t.Run("Should execute all steps and record checkpoints", func(t *testing.T) {
		stateRepo := newSavingStateRepo()
		saga := NewSagaExecutor(stateRepo, log)
		var order []string
		saga.AddStep(SagaStep{
			Name: "Update Version File",
			Type: domain.OperationTypeUpdateVersionFile,
			Execute: func(_ context.Context) (map[string]any, error) {
				order = append(order, "update")
				return map[string]any{"version": "1.2.4"}, nil
			},
		})
		saga.AddStep(SagaStep{
			Name: "Create Release Branch",
			Type: domain.OperationTypeCreateBranch,
			Execute: func(_ context.Context) (map[string]any, error) {
				order = append(order, "branch")
				return nil, nil
			},
		})
		err := saga.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"update", "branch"}, order)
		state := saga.State()
		assert.Equal(t, domain.WorkflowStatusCompleted, state.Status)
		assert.True(t, state.IsCompleted(domain.OperationTypeUpdateVersionFile))
		assert.True(t, state.IsCompleted(domain.OperationTypeCreateBranch))
		assert.Equal(t, "1.2.4", state.Operation(domain.OperationTypeUpdateVersionFile).Data["version"])
		assert.NotEmpty(t, saga.SessionID())
		stateRepo.AssertCalled(t, "Save", mock.Anything, state)
	})
	t.Run("Should stop at the first failing step and keep earlier checkpoints", func(t *testing.T) {
		stateRepo := newSavingStateRepo()
		saga := NewSagaExecutor(stateRepo, log)
		thirdExecuted := false
		saga.AddStep(SagaStep{
			Name:    "Update Version File",
			Type:    domain.OperationTypeUpdateVersionFile,
			Execute: func(_ context.Context) (map[string]any, error) { return nil, nil },
		})
		saga.AddStep(SagaStep{
			Name:    "Create Release Branch",
			Type:    domain.OperationTypeCreateBranch,
			Execute: func(_ context.Context) (map[string]any, error) { return nil, errBoom },
		})
		saga.AddStep(SagaStep{
			Name: "Commit Changes",
			Type: domain.OperationTypeCommitChanges,
			Execute: func(_ context.Context) (map[string]any, error) {
				thirdExecuted = true
				return nil, nil
			},
		})
		err := saga.Execute(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.Contains(t, err.Error(), "step 'Create Release Branch' failed")
		assert.False(t, thirdExecuted)
		state := saga.State()
		assert.Equal(t, domain.WorkflowStatusFailed, state.Status)
		assert.True(t, state.IsCompleted(domain.OperationTypeUpdateVersionFile))
		assert.Equal(t, domain.OperationStatusFailed, state.Operation(domain.OperationTypeCreateBranch).Status)
		assert.Equal(t, domain.OperationStatusPending, state.Operation(domain.OperationTypeCommitChanges).Status)
	})
	t.Run("Should not run steps when the initial save fails", func(t *testing.T) {
		stateRepo := new(mockStateRepository)
		stateRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("read-only"))
		saga := NewSagaExecutor(stateRepo, log)
		executed := false
		saga.AddStep(SagaStep{
			Name: "Update Version File",
			Type: domain.OperationTypeUpdateVersionFile,
			Execute: func(_ context.Context) (map[string]any, error) {
				executed = true
				return nil, nil
			},
		})
		err := saga.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save initial state")
		assert.False(t, executed)
	})
	t.Run("Should retry a step within its budget", func(t *testing.T) {
		saga := NewSagaExecutor(newSavingStateRepo(), log)
		attempts := 0
		saga.AddStep(SagaStep{
			Name:    "Push Branch",
			Type:    domain.OperationTypePushBranch,
			Retries: 2,
			Execute: func(_ context.Context) (map[string]any, error) {
				attempts++
				if attempts < 3 {
					return nil, errBoom
				}
				return map[string]any{"remote": "origin"}, nil
			},
		})
		require.NoError(t, saga.Execute(context.Background()))
		assert.Equal(t, 3, attempts)
	})
	t.Run("Should run a step once without retries", func(t *testing.T) {
		saga := NewSagaExecutor(newSavingStateRepo(), log)
		attempts := 0
		saga.AddStep(SagaStep{
			Name: "Push Branch",
			Type: domain.OperationTypePushBranch,
			Execute: func(_ context.Context) (map[string]any, error) {
				attempts++
				return nil, domain.ErrNoRemote
			},
		})
		err := saga.Execute(context.Background())
		assert.ErrorIs(t, err, domain.ErrNoRemote)
		assert.Equal(t, 1, attempts)
	})
}

func TestSagaExecutor_Resume(t *testing.T) {
	log := zap.NewNop().Sugar()
	failedSession := func() *domain.SessionState {
		state := domain.NewSessionState("session-1")
		state.AddOperation(domain.OperationTypeUpdateVersionFile)
		state.AddOperation(domain.OperationTypeCreateBranch)
		state.MarkOperationStarted(domain.OperationTypeUpdateVersionFile)
		state.MarkOperationCompleted(domain.OperationTypeUpdateVersionFile, nil)
		state.MarkOperationStarted(domain.OperationTypeCreateBranch)
		state.MarkOperationFailed(domain.OperationTypeCreateBranch, errBoom)
		return state
	}
	t.Run("Should skip completed steps", func(t *testing.T) {
		stateRepo := newSavingStateRepo()
		stateRepo.On("Load", mock.Anything, "session-1").Return(failedSession(), nil)
		saga, err := LoadExistingSaga(context.Background(), stateRepo, "session-1", log)
		require.NoError(t, err)
		var ran []domain.OperationType
		for _, opType := range []domain.OperationType{
			domain.OperationTypeUpdateVersionFile,
			domain.OperationTypeCreateBranch,
		} {
			opType := opType
			saga.AddStep(SagaStep{
				Name: string(opType),
				Type: opType,
				Execute: func(_ context.Context) (map[string]any, error) {
					ran = append(ran, opType)
					return nil, nil
				},
			})
		}
		require.NoError(t, saga.Execute(context.Background()))
		assert.Equal(t, []domain.OperationType{domain.OperationTypeCreateBranch}, ran)
		assert.Len(t, saga.State().Operations, 2)
		assert.Equal(t, domain.WorkflowStatusCompleted, saga.State().Status)
		assert.Empty(t, saga.State().Error)
	})
	t.Run("Should load the latest session without id", func(t *testing.T) {
		stateRepo := newSavingStateRepo()
		stateRepo.On("LoadLatest", mock.Anything).Return(failedSession(), nil)
		saga, err := LoadExistingSaga(context.Background(), stateRepo, "", log)
		require.NoError(t, err)
		assert.Equal(t, "session-1", saga.SessionID())
	})
	t.Run("Should do nothing for a completed session", func(t *testing.T) {
		state := failedSession()
		state.Status = domain.WorkflowStatusCompleted
		stateRepo := new(mockStateRepository)
		stateRepo.On("Load", mock.Anything, "session-1").Return(state, nil)
		saga, err := LoadExistingSaga(context.Background(), stateRepo, "session-1", log)
		require.NoError(t, err)
		saga.AddStep(SagaStep{
			Name: "Create Release Branch",
			Type: domain.OperationTypeCreateBranch,
			Execute: func(_ context.Context) (map[string]any, error) {
				t.Fatal("step must not run")
				return nil, nil
			},
		})
		require.NoError(t, saga.Execute(context.Background()))
		stateRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
	t.Run("Should wrap load errors", func(t *testing.T) {
		stateRepo := new(mockStateRepository)
		stateRepo.On("Load", mock.Anything, "missing").Return(nil, repository.ErrStateNotFound)
		_, err := LoadExistingSaga(context.Background(), stateRepo, "missing", log)
		assert.ErrorIs(t, err, repository.ErrStateNotFound)
	})
}
