package repository

import "context"

// PullRequest identifies a pull request opened for a release branch.
type PullRequest struct {
	Number  int
	URL     string
	Created bool
}

// GithubRepository defines the interface for GitHub API operations.
type GithubRepository interface {
	DefaultBranch(ctx context.Context) (string, error)
	CreateOrUpdatePR(ctx context.Context, head, base, title, body string, labels []string) (*PullRequest, error)
}
