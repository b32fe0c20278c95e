package orchestrator

import (
	"context"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Mock for GitRepository
type mockGitRepository struct{ mock.Mock }

func (m *mockGitRepository) Root() string {
	args := m.Called()
	return args.String(0)
}
func (m *mockGitRepository) DirtyPaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if paths := args.Get(0); paths != nil {
		return paths.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockGitRepository) GetCurrentBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitRepository) GetHeadCommit(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGitRepository) BranchExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}
func (m *mockGitRepository) CreateBranch(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
func (m *mockGitRepository) CheckoutBranch(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
func (m *mockGitRepository) AddFiles(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
func (m *mockGitRepository) Commit(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}
func (m *mockGitRepository) ResolveRemote(ctx context.Context, preferred string) (string, error) {
	args := m.Called(ctx, preferred)
	return args.String(0), args.Error(1)
}
func (m *mockGitRepository) PushBranch(ctx context.Context, remote, name string) error {
	args := m.Called(ctx, remote, name)
	return args.Error(0)
}

// Mock for GithubRepository
type mockGithubRepository struct{ mock.Mock }

func (m *mockGithubRepository) DefaultBranch(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
func (m *mockGithubRepository) CreateOrUpdatePR(
	ctx context.Context,
	head, base, title, body string,
	labels []string,
) (*repository.PullRequest, error) {
	args := m.Called(ctx, head, base, title, body, labels)
	if pr := args.Get(0); pr != nil {
		return pr.(*repository.PullRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock for StateRepository
type mockStateRepository struct{ mock.Mock }

func (m *mockStateRepository) Save(ctx context.Context, state *domain.SessionState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}
func (m *mockStateRepository) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	args := m.Called(ctx, sessionID)
	if state := args.Get(0); state != nil {
		return state.(*domain.SessionState), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStateRepository) LoadLatest(ctx context.Context) (*domain.SessionState, error) {
	args := m.Called(ctx)
	if state := args.Get(0); state != nil {
		return state.(*domain.SessionState), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockStateRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
func (m *mockStateRepository) Exists(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}
