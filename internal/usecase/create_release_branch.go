package usecase

import (
	"context"
	"fmt"

	"github.com/razou/dev-ops/internal/repository"
)

// CreateReleaseBranchUseCase creates the release branch and switches to it.
type CreateReleaseBranchUseCase struct {
	GitRepo repository.GitRepository
}

// Execute creates branchName at HEAD and checks it out keeping local changes.
// With reuse set, an existing branch is checked out instead of failing.
func (uc *CreateReleaseBranchUseCase) Execute(ctx context.Context, branchName string, reuse bool) error {
	exists, err := uc.GitRepo.BranchExists(ctx, branchName)
	if err != nil {
		return err
	}
	switch {
	case exists && !reuse:
		return fmt.Errorf("release branch %s already exists", branchName)
	case !exists:
		if err := uc.GitRepo.CreateBranch(ctx, branchName); err != nil {
			return fmt.Errorf("failed to create release branch: %w", err)
		}
	}
	current, err := uc.GitRepo.GetCurrentBranch(ctx)
	if err == nil && current == branchName {
		return nil
	}
	if err := uc.GitRepo.CheckoutBranch(ctx, branchName); err != nil {
		return fmt.Errorf("failed to checkout release branch: %w", err)
	}
	return nil
}
