package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/razou/dev-ops/internal/domain"
)

// gitRepository is the implementation of the GitRepository interface.
type gitRepository struct {
	repo        *git.Repository
	root        string
	authorName  string
	authorEmail string
	token       string
}

// GitOption customizes a GitRepository.
type GitOption func(*gitRepository)

// WithAuthor sets the identity used for commits. Without it the repository
// and global git configuration are used.
func WithAuthor(name, email string) GitOption {
	return func(r *gitRepository) {
		r.authorName = name
		r.authorEmail = email
	}
}

// WithToken sets the token used for pushes over http(s).
func WithToken(token string) GitOption {
	return func(r *gitRepository) {
		r.token = strings.TrimSpace(token)
	}
}

// NewGitRepository opens the repository containing path.
func NewGitRepository(path string, opts ...GitOption) (GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	w, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	r := &gitRepository{repo: repo, root: w.Filesystem.Root()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute path of the worktree.
func (r *gitRepository) Root() string {
	return r.root
}

// DirtyPaths lists tracked paths with staged or unstaged changes, sorted.
// Untracked files do not make the tree dirty.
func (r *gitRepository) DirtyPaths(_ context.Context) ([]string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	var paths []string
	for path, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		if fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// GetCurrentBranch returns the name of the current branch.
func (r *gitRepository) GetCurrentBranch(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Name().Short(), nil
}

// GetHeadCommit returns the SHA of the current HEAD commit.
func (r *gitRepository) GetHeadCommit(_ context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// BranchExists reports whether a local branch exists.
func (r *gitRepository) BranchExists(_ context.Context, name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check branch %s: %w", name, err)
	}
	return true, nil
}

// CreateBranch creates a new branch at HEAD.
func (r *gitRepository) CreateBranch(_ context.Context, name string) error {
	branchRef := plumbing.NewBranchReferenceName(name)
	_, err := r.repo.Reference(branchRef, false)
	if err == nil {
		return fmt.Errorf("branch %s already exists", name)
	}
	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("failed to get HEAD: %w", err)
	}
	ref := plumbing.NewHashReference(branchRef, head.Hash())
	return r.repo.Storer.SetReference(ref)
}

// CheckoutBranch switches to the specified branch keeping local changes.
func (r *gitRepository) CheckoutBranch(_ context.Context, name string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Keep:   true,
	}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", name, err)
	}
	return nil
}

// AddFiles stages a path relative to the worktree root.
func (r *gitRepository) AddFiles(_ context.Context, path string) error {
	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	return nil
}

// Commit creates a commit with the given message.
func (r *gitRepository) Commit(_ context.Context, message string) (string, error) {
	w, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	opts := &git.CommitOptions{}
	if r.authorName != "" {
		opts.Author = &object.Signature{
			Name:  r.authorName,
			Email: r.authorEmail,
			When:  time.Now(),
		}
	}
	hash, err := w.Commit(message, opts)
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}
	return hash.String(), nil
}

// ResolveRemote picks the remote to push to.
func (r *gitRepository) ResolveRemote(_ context.Context, preferred string) (string, error) {
	if preferred != "" {
		if _, err := r.repo.Remote(preferred); err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrNoRemote, preferred, err)
		}
		return preferred, nil
	}
	remotes, err := r.repo.Remotes()
	if err != nil {
		return "", fmt.Errorf("failed to list remotes: %w", err)
	}
	switch len(remotes) {
	case 0:
		return "", domain.ErrNoRemote
	case 1:
		return remotes[0].Config().Name, nil
	}
	for _, remote := range remotes {
		if remote.Config().Name == git.DefaultRemoteName {
			return git.DefaultRemoteName, nil
		}
	}
	return "", fmt.Errorf("%w: %d remotes and none named %s", domain.ErrNoRemote, len(remotes), git.DefaultRemoteName)
}

// PushBranch pushes a branch to the remote.
func (r *gitRepository) PushBranch(ctx context.Context, remote, name string) error {
	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", name, name))
	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       r.getAuth(remote),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s to %s: %w", name, remote, err)
	}
	return nil
}

// getAuth returns token authentication for http(s) remotes.
func (r *gitRepository) getAuth(remote string) transport.AuthMethod {
	if r.token == "" {
		return nil
	}
	rem, err := r.repo.Remote(remote)
	if err != nil || len(rem.Config().URLs) == 0 {
		return nil
	}
	ep, err := transport.NewEndpoint(rem.Config().URLs[0])
	if err != nil || (ep.Protocol != "http" && ep.Protocol != "https") {
		return nil
	}
	// x-access-token is the username GitHub expects for token authentication
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: r.token,
	}
}
