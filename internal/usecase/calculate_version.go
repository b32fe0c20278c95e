package usecase

import (
	"context"
	"fmt"

	"github.com/razou/dev-ops/internal/domain"
)

// CalculateVersionUseCase computes the next version for a release type.
type CalculateVersionUseCase struct{}

// Execute parses current and returns it along with the version that follows it.
func (uc *CalculateVersionUseCase) Execute(
	_ context.Context,
	current string,
	releaseType domain.ReleaseType,
) (*domain.Version, *domain.Version, error) {
	if current == "" {
		return nil, nil, domain.ErrVersionNotDeclared
	}
	cur, err := domain.NewVersion(current)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse current version %q: %w", current, err)
	}
	next, err := cur.Next(releaseType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute %s release from %s: %w", releaseType, cur, err)
	}
	return cur, next, nil
}
