package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/razou/dev-ops/internal/config"
	"github.com/razou/dev-ops/internal/logger"
	"github.com/razou/dev-ops/internal/orchestrator"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// releaseRunner is what the commands need from the orchestrator.
type releaseRunner interface {
	Execute(ctx context.Context, cfg orchestrator.ReleaseConfig) (*orchestrator.Result, error)
	Resume(ctx context.Context, sessionID string) (*orchestrator.Result, error)
}

// container holds all the dependencies for the application.
type container struct {
	cfg *config.Config
	log *zap.SugaredLogger

	fsRepo    repository.FileSystemRepository
	gitRepo   repository.GitRepository
	ghRepo    repository.GithubRepository
	stateRepo repository.StateRepository
	orch      releaseRunner
}

// containerFactory builds the container once flags are parsed.
type containerFactory func() (*container, error)

// newContainer creates a new container with all the dependencies.
func newContainer() (*container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	gitRepo, err := repository.NewGitRepository(".",
		repository.WithAuthor(cfg.AuthorName, cfg.AuthorEmail),
		repository.WithToken(cfg.GitToken),
	)
	if err != nil {
		return nil, err
	}
	root := gitRepo.Root()
	log.Debugw("Opened git repository", "root", root)
	fsRepo := repository.NewWorktreeFileSystem(root)
	stateRepo := repository.NewJSONStateRepository(afero.NewOsFs(), filepath.Join(root, cfg.StateDir), log)

	// GitHub repository is optional - only create it when pull requests are enabled
	var ghRepo repository.GithubRepository
	if cfg.PullRequest.Enabled && cfg.GitToken != "" {
		ghRepo, err = repository.NewGithubRepository(cfg.GitToken, cfg.GithubOwner, cfg.GithubRepo, log)
		if err != nil {
			return nil, err
		}
	}
	orch := orchestrator.NewReleaseOrchestrator(gitRepo, ghRepo, fsRepo, stateRepo, orchestrator.Options{
		VersionFile:  cfg.VersionFile,
		BranchPrefix: cfg.BranchPrefix,
		Remote:       cfg.Remote,
		PushRetries:  cfg.PushRetries,
		PullRequest: orchestrator.PullRequestOptions{
			Enabled: cfg.PullRequest.Enabled,
			Base:    cfg.PullRequest.Base,
			Labels:  cfg.PullRequest.Labels,
		},
	}, log)
	return &container{
		cfg:       cfg,
		log:       log,
		fsRepo:    fsRepo,
		gitRepo:   gitRepo,
		ghRepo:    ghRepo,
		stateRepo: stateRepo,
		orch:      orch,
	}, nil
}

func (c *container) close() {
	if c == nil || c.log == nil {
		return
	}
	_ = c.log.Sync()
}
