package usecase

import (
	"context"
	"fmt"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
)

// EnsureCleanUseCase refuses to continue when tracked files have uncommitted changes.
type EnsureCleanUseCase struct {
	GitRepo repository.GitRepository
}

// Execute returns a *domain.DirtyWorkTreeError listing the offending paths.
func (uc *EnsureCleanUseCase) Execute(ctx context.Context) error {
	paths, err := uc.GitRepo.DirtyPaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to check working tree: %w", err)
	}
	if len(paths) > 0 {
		return &domain.DirtyWorkTreeError{Paths: paths}
	}
	return nil
}
