package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/razou/dev-ops/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// githubRepository is the implementation of the GithubRepository interface.
type githubRepository struct {
	client *github.Client
	owner  string
	repo   string
	log    *zap.SugaredLogger
}

// GithubOption customizes a GithubRepository.
type GithubOption func(*githubRepository) error

// WithBaseURL points the client at another API endpoint, such as GitHub Enterprise.
func WithBaseURL(raw string) GithubOption {
	return func(r *githubRepository) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		r.client.BaseURL = u
		return nil
	}
}

// NewGithubRepository creates a new GithubRepository with validation.
func NewGithubRepository(
	token, owner, repo string,
	log *zap.SugaredLogger,
	opts ...GithubOption,
) (GithubRepository, error) {
	if err := config.ValidateGitHubToken(token); err != nil {
		return nil, fmt.Errorf("invalid GitHub token: %w", err)
	}
	if err := config.ValidateGitHubOwnerRepo(owner, repo); err != nil {
		return nil, fmt.Errorf("invalid repository configuration: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: strings.TrimSpace(token)},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	ghRepo := &githubRepository{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		log:    log,
	}
	for _, opt := range opts {
		if err := opt(ghRepo); err != nil {
			return nil, err
		}
	}
	return ghRepo, nil
}

// DefaultBranch returns the default branch of the repository.
func (r *githubRepository) DefaultBranch(ctx context.Context) (string, error) {
	repo, _, err := r.client.Repositories.Get(ctx, r.owner, r.repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository %s/%s: %w", r.owner, r.repo, err)
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", r.owner, r.repo)
	}
	return branch, nil
}

// CreateOrUpdatePR creates a new PR or updates the open one for head.
func (r *githubRepository) CreateOrUpdatePR(
	ctx context.Context,
	head, base, title, body string,
	labels []string,
) (*PullRequest, error) {
	log := r.log.With("owner", r.owner, "repo", r.repo, "head", head, "base", base)
	prs, _, err := r.client.PullRequests.List(ctx, r.owner, r.repo, &github.PullRequestListOptions{
		Head:  fmt.Sprintf("%s:%s", r.owner, head),
		Base:  base,
		State: "open",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}
	var (
		pr      *github.PullRequest
		created bool
	)
	if len(prs) > 0 {
		pr = prs[0]
		log.Debugw("Updating existing pull request", "number", pr.GetNumber())
		if _, _, err := r.client.PullRequests.Edit(ctx, r.owner, r.repo, pr.GetNumber(), &github.PullRequest{
			Title: github.Ptr(title),
			Body:  github.Ptr(body),
		}); err != nil {
			return nil, fmt.Errorf("failed to update pull request #%d: %w", pr.GetNumber(), err)
		}
	} else {
		log.Debug("Creating pull request")
		pr, _, err = r.client.PullRequests.Create(ctx, r.owner, r.repo, &github.NewPullRequest{
			Title: github.Ptr(title),
			Body:  github.Ptr(body),
			Head:  github.Ptr(head),
			Base:  github.Ptr(base),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create pull request: %w", err)
		}
		created = true
	}
	if len(labels) > 0 {
		if _, _, err := r.client.Issues.AddLabelsToIssue(ctx, r.owner, r.repo, pr.GetNumber(), labels); err != nil {
			return nil, fmt.Errorf("failed to add labels to pull request #%d: %w", pr.GetNumber(), err)
		}
	}
	log.Infow("Pull request ready", "number", pr.GetNumber(), "created", created)
	return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Created: created}, nil
}
