package usecase

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/razou/dev-ops/internal/repository"
	"github.com/spf13/afero"
)

var (
	// versionDeclRegex matches a quoted __version__ assignment at the start of a line.
	versionDeclRegex = regexp.MustCompile(`(?m)^__version__\s*=\s*(?:"([^"\n]*)"|'([^'\n]*)')`)
	// versionLineRegex marks the line the rewriter replaces.
	versionLineRegex = regexp.MustCompile(`^__version__\s*=`)
)

// ReadVersionUseCase reads the declared version from the version file.
type ReadVersionUseCase struct {
	FS repository.FileSystemRepository
}

// Execute returns the quoted value of the first __version__ declaration in path.
// It returns "" when the file declares no version.
func (uc *ReadVersionUseCase) Execute(_ context.Context, path string) (string, error) {
	data, _, err := readVersionFile(uc.FS, path)
	if err != nil {
		return "", err
	}
	m := versionDeclRegex.FindSubmatch(data)
	if m == nil {
		return "", nil
	}
	if m[1] != nil {
		return string(m[1]), nil
	}
	return string(m[2]), nil
}

func readVersionFile(fs repository.FileSystemRepository, path string) ([]byte, os.FileMode, error) {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrVersionFileNotFound, path)
		}
		return nil, 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%w: %s is a directory", domain.ErrVersionFileNotFound, path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, info.Mode().Perm(), nil
}
