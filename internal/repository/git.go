package repository

import "context"

// GitRepository defines the git operations the release workflow needs.
type GitRepository interface {
	// Root returns the absolute path of the worktree.
	Root() string
	// DirtyPaths lists tracked paths with staged or unstaged changes.
	DirtyPaths(ctx context.Context) ([]string, error)
	GetCurrentBranch(ctx context.Context) (string, error)
	GetHeadCommit(ctx context.Context) (string, error)
	BranchExists(ctx context.Context, name string) (bool, error)
	CreateBranch(ctx context.Context, name string) error
	// CheckoutBranch switches to name keeping index and worktree changes.
	CheckoutBranch(ctx context.Context, name string) error
	AddFiles(ctx context.Context, path string) error
	// Commit commits the index and returns the new commit hash.
	Commit(ctx context.Context, message string) (string, error)
	// ResolveRemote returns preferred if set, else the sole remote, else origin.
	ResolveRemote(ctx context.Context, preferred string) (string, error)
	PushBranch(ctx context.Context, remote, name string) error
}
