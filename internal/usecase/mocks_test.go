package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockGitRepository struct {
	mock.Mock
}

func (m *mockGitRepository) Root() string {
	args := m.Called()
	return args.String(0)
}

func (m *mockGitRepository) DirtyPaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	paths, _ := args.Get(0).([]string)
	return paths, args.Error(1)
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
