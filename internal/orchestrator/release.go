package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/razou/dev-ops/internal/usecase"
	"go.uber.org/zap"
)

// ReleaseConfig contains the parameters of a single release run.
type ReleaseConfig struct {
	ReleaseType domain.ReleaseType
}

// PullRequestOptions controls the optional pull request step.
type PullRequestOptions struct {
	Enabled bool
	Base    string
	Labels  []string
}

// Options holds the repository-level settings of the release workflow.
type Options struct {
	VersionFile  string
	BranchPrefix string
	Remote       string
	PushRetries  uint64
	PullRequest  PullRequestOptions
}

// Result describes what a run produced.
type Result struct {
	SessionID   string
	Release     *domain.Release
	Remote      string
	Commit      string
	PullRequest *repository.PullRequest
}

// ReleaseOrchestrator bumps the version file and publishes the release branch.
type ReleaseOrchestrator struct {
	gitRepo    repository.GitRepository
	githubRepo repository.GithubRepository
	fsRepo     repository.FileSystemRepository
	stateRepo  repository.StateRepository
	opts       Options
	log        *zap.SugaredLogger
}

// NewReleaseOrchestrator creates a new release orchestrator. githubRepo may be nil
// when pull requests are disabled.
func NewReleaseOrchestrator(
	gitRepo repository.GitRepository,
	githubRepo repository.GithubRepository,
	fsRepo repository.FileSystemRepository,
	stateRepo repository.StateRepository,
	opts Options,
	log *zap.SugaredLogger,
) *ReleaseOrchestrator {
	if opts.VersionFile == "" {
		opts.VersionFile = "version.py"
	}
	if opts.BranchPrefix == "" {
		opts.BranchPrefix = "release"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReleaseOrchestrator{
		gitRepo:    gitRepo,
		githubRepo: githubRepo,
		fsRepo:     fsRepo,
		stateRepo:  stateRepo,
		opts:       opts,
		log:        log,
	}
}

// Execute checks the working tree, computes the next version and runs the release steps.
func (o *ReleaseOrchestrator) Execute(ctx context.Context, cfg ReleaseConfig) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultWorkflowTimeout)
	defer cancel()
	releaseType, err := domain.ParseReleaseType(string(cfg.ReleaseType))
	if err != nil {
		return nil, err
	}
	o.log.Infow("Starting release", "release_type", releaseType)
	originalBranch, err := o.gitRepo.GetCurrentBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current branch: %w", err)
	}
	o.log.Infow("Current branch", "branch", originalBranch)
	if err := o.ensureClean(ctx); err != nil {
		return nil, err
	}
	release, err := o.prepareRelease(ctx, releaseType)
	if err != nil {
		return nil, err
	}
	saga := NewSagaExecutor(o.stateRepo, o.log)
	state := saga.State()
	state.ReleaseType = release.Type
	state.CurrentVersion = release.Current.String()
	state.Version = release.Next.String()
	state.VersionFile = release.VersionFile
	state.BranchName = release.BranchName
	state.OriginalBranch = originalBranch
	state.OpenPullRequest = o.pullRequestsEnabled()
	o.log.Infow("Release session created", "session_id", state.SessionID)
	return o.run(ctx, saga, release, false)
}

// Resume continues a failed session from its last checkpoint. An empty sessionID
// resumes the latest session. The working tree check is not repeated.
func (o *ReleaseOrchestrator) Resume(ctx context.Context, sessionID string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultWorkflowTimeout)
	defer cancel()
	saga, err := LoadExistingSaga(ctx, o.stateRepo, sessionID, o.log)
	if err != nil {
		return nil, err
	}
	state := saga.State()
	release, err := releaseFromState(state)
	if err != nil {
		return nil, err
	}
	if last := state.LastCompleted(); last != nil {
		o.log.Infow("Resuming release session",
			"session_id", state.SessionID, "version", state.Version, "last_checkpoint", last.Type)
	} else {
		o.log.Infow("Resuming release session", "session_id", state.SessionID, "version", state.Version)
	}
	return o.run(ctx, saga, release, true)
}

func (o *ReleaseOrchestrator) run(
	ctx context.Context,
	saga *SagaExecutor,
	release *domain.Release,
	resuming bool,
) (*Result, error) {
	result := &Result{SessionID: saga.SessionID(), Release: release}
	o.addUpdateVersionFileStep(saga, release)
	o.addCreateBranchStep(saga, release, resuming)
	o.addCommitChangesStep(saga, release, resuming, result)
	o.addPushBranchStep(saga, release, result)
	if saga.State().OpenPullRequest {
		o.addOpenPullRequestStep(saga, release, result)
	}
	if err := saga.Execute(ctx); err != nil {
		o.log.Errorw("Release failed",
			"session_id", result.SessionID, "error", err,
			"hint", "fix the cause and run the resume command")
		return nil, fmt.Errorf("release %s failed (session %s): %w", release.Next, result.SessionID, err)
	}
	state := saga.State()
	if result.Remote == "" {
		result.Remote = state.Remote
	}
	if result.Commit == "" {
		if op := state.Operation(domain.OperationTypeCommitChanges); op != nil {
			result.Commit, _ = op.Data["commit"].(string)
		}
	}
	o.log.Infow("Release branch published",
		"version", release.Next.String(), "branch", release.BranchName, "remote", result.Remote)
	return result, nil
}

func (o *ReleaseOrchestrator) ensureClean(ctx context.Context) error {
	o.log.Info("Ensuring the git repository is clean")
	uc := &usecase.EnsureCleanUseCase{GitRepo: o.gitRepo}
	if err := uc.Execute(ctx); err != nil {
		var dirty *domain.DirtyWorkTreeError
		if errors.As(err, &dirty) {
			o.log.Errorw("Current repository has uncommitted changes", "changed_files", dirty.Paths)
		}
		return err
	}
	o.log.Info("Git repository is clean")
	return nil
}

// prepareRelease reads the current version and computes the release to make.
func (o *ReleaseOrchestrator) prepareRelease(
	ctx context.Context,
	releaseType domain.ReleaseType,
) (*domain.Release, error) {
	o.log.Infow("Reading version file", "path", o.opts.VersionFile)
	reader := &usecase.ReadVersionUseCase{FS: o.fsRepo}
	current, err := reader.Execute(ctx, o.opts.VersionFile)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return nil, fmt.Errorf("%w in %s", domain.ErrVersionNotDeclared, o.opts.VersionFile)
	}
	o.log.Infow("Current version", "version", current)
	calc := &usecase.CalculateVersionUseCase{}
	cur, next, err := calc.Execute(ctx, current, releaseType)
	if err != nil {
		return nil, err
	}
	if err := ValidateVersion(next.String()); err != nil {
		return nil, fmt.Errorf("invalid version: %w", err)
	}
	o.log.Infow("Next version", "version", next.String())
	branchName := fmt.Sprintf("%s/%s", o.opts.BranchPrefix, next.String())
	if err := ValidateBranchName(branchName); err != nil {
		return nil, fmt.Errorf("invalid branch name: %w", err)
	}
	return &domain.Release{
		Type:        releaseType,
		Current:     cur,
		Next:        next,
		BranchName:  branchName,
		VersionFile: o.opts.VersionFile,
	}, nil
}

func (o *ReleaseOrchestrator) pullRequestsEnabled() bool {
	return o.opts.PullRequest.Enabled && o.githubRepo != nil
}

func (o *ReleaseOrchestrator) addUpdateVersionFileStep(saga *SagaExecutor, release *domain.Release) {
	saga.AddStep(SagaStep{
		Name: "Update Version File",
		Type: domain.OperationTypeUpdateVersionFile,
		Execute: func(ctx context.Context) (map[string]any, error) {
			o.log.Infow("Updating version file", "path", release.VersionFile, "version", release.Next.String())
			uc := &usecase.UpdateVersionFileUseCase{FS: o.fsRepo}
			changed, err := uc.Execute(ctx, release.VersionFile, release.Next.String())
			if err != nil {
				return nil, err
			}
			return map[string]any{"changed": changed, "version": release.Next.String()}, nil
		},
	})
}

func (o *ReleaseOrchestrator) addCreateBranchStep(saga *SagaExecutor, release *domain.Release, resuming bool) {
	saga.AddStep(SagaStep{
		Name: "Create Release Branch",
		Type: domain.OperationTypeCreateBranch,
		Execute: func(ctx context.Context) (map[string]any, error) {
			o.log.Infow("Creating release branch and switching to it", "branch", release.BranchName)
			uc := &usecase.CreateReleaseBranchUseCase{GitRepo: o.gitRepo}
			if err := uc.Execute(ctx, release.BranchName, resuming); err != nil {
				return nil, err
			}
			return map[string]any{"branch": release.BranchName}, nil
		},
	})
}

func (o *ReleaseOrchestrator) addCommitChangesStep(
	saga *SagaExecutor,
	release *domain.Release,
	resuming bool,
	result *Result,
) {
	saga.AddStep(SagaStep{
		Name: "Commit Changes",
		Type: domain.OperationTypeCommitChanges,
		Execute: func(ctx context.Context) (map[string]any, error) {
			if err := o.gitRepo.AddFiles(ctx, release.VersionFile); err != nil {
				return nil, err
			}
			if resuming {
				// A crash after the commit leaves nothing staged.
				paths, err := o.gitRepo.DirtyPaths(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to check working tree: %w", err)
				}
				if len(paths) == 0 {
					head, err := o.gitRepo.GetHeadCommit(ctx)
					if err != nil {
						return nil, err
					}
					result.Commit = head
					return map[string]any{"commit": head, "reused": true}, nil
				}
			}
			hash, err := o.gitRepo.Commit(ctx, release.CommitMessage())
			if err != nil {
				return nil, err
			}
			o.log.Infow("Committed release", "commit", hash, "message", release.CommitMessage())
			result.Commit = hash
			return map[string]any{"commit": hash}, nil
		},
	})
}

func (o *ReleaseOrchestrator) addPushBranchStep(saga *SagaExecutor, release *domain.Release, result *Result) {
	state := saga.State()
	saga.AddStep(SagaStep{
		Name:    "Push Branch",
		Type:    domain.OperationTypePushBranch,
		Retries: o.opts.PushRetries,
		Execute: func(ctx context.Context) (map[string]any, error) {
			remote, err := o.gitRepo.ResolveRemote(ctx, o.opts.Remote)
			if err != nil {
				return nil, err
			}
			state.Remote = remote
			o.log.Infow("Pushing release branch", "branch", release.BranchName, "remote", remote)
			if err := o.gitRepo.PushBranch(ctx, remote, release.BranchName); err != nil {
				return nil, err
			}
			result.Remote = remote
			return map[string]any{"remote": remote, "branch": release.BranchName}, nil
		},
	})
}

func (o *ReleaseOrchestrator) addOpenPullRequestStep(saga *SagaExecutor, release *domain.Release, result *Result) {
	state := saga.State()
	saga.AddStep(SagaStep{
		Name: "Open Pull Request",
		Type: domain.OperationTypeOpenPullRequest,
		Execute: func(ctx context.Context) (map[string]any, error) {
			if o.githubRepo == nil {
				return nil, fmt.Errorf("pull request step requires a GitHub token")
			}
			base, err := o.pullRequestBase(ctx, state.OriginalBranch, release.BranchName)
			if err != nil {
				return nil, err
			}
			bodyUC := &usecase.PreparePRBodyUseCase{}
			body, err := bodyUC.Execute(ctx, release)
			if err != nil {
				return nil, err
			}
			pr, err := o.githubRepo.CreateOrUpdatePR(
				ctx, release.BranchName, base, bodyUC.Title(release), body, o.opts.PullRequest.Labels,
			)
			if err != nil {
				return nil, err
			}
			result.PullRequest = pr
			return map[string]any{"number": pr.Number, "url": pr.URL, "base": base}, nil
		},
	})
}

// pullRequestBase picks the configured base, else the branch the release started from,
// else the repository default branch.
func (o *ReleaseOrchestrator) pullRequestBase(ctx context.Context, original, head string) (string, error) {
	if o.opts.PullRequest.Base != "" {
		return o.opts.PullRequest.Base, nil
	}
	if original != "" && original != head {
		return original, nil
	}
	return o.githubRepo.DefaultBranch(ctx)
}

// releaseFromState rebuilds the release recorded in a session.
func releaseFromState(state *domain.SessionState) (*domain.Release, error) {
	cur, err := domain.NewVersion(state.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid current version in session %s: %w", state.SessionID, err)
	}
	next, err := domain.NewVersion(state.Version)
	if err != nil {
		return nil, fmt.Errorf("invalid version in session %s: %w", state.SessionID, err)
	}
	if err := ValidateBranchName(state.BranchName); err != nil {
		return nil, fmt.Errorf("invalid branch in session %s: %w", state.SessionID, err)
	}
	return &domain.Release{
		Type:        state.ReleaseType,
		Current:     cur,
		Next:        next,
		BranchName:  state.BranchName,
		VersionFile: state.VersionFile,
	}, nil
}
