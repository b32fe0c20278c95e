package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVersionFileNotFound is returned when the configured version file does not exist.
	ErrVersionFileNotFound = errors.New("version file not found")
	// ErrVersionNotDeclared is returned when the version file has no __version__ line.
	ErrVersionNotDeclared = errors.New("version not declared")
	// ErrUnsupportedReleaseType is returned for a release type outside the known set.
	ErrUnsupportedReleaseType = errors.New("unsupported release type")
	// ErrUnsupportedPreRelease is returned for pre-release labels other than alpha, beta and rc.
	ErrUnsupportedPreRelease = errors.New("unsupported pre-release tag")
	// ErrPreReleaseRegression is returned when a bump would move to an earlier pre-release phase.
	ErrPreReleaseRegression = errors.New("pre-release phase cannot go backwards")
	// ErrDirtyWorkTree is matched by DirtyWorkTreeError.
	ErrDirtyWorkTree = errors.New("working tree has uncommitted changes")
	// ErrNoRemote is returned when no remote can be selected for the push.
	ErrNoRemote = errors.New("no remote configured")
)

// DirtyWorkTreeError lists the paths that keep the working tree from being clean.
type DirtyWorkTreeError struct {
	Paths []string
}

func (e *DirtyWorkTreeError) Error() string {
	if len(e.Paths) == 0 {
		return ErrDirtyWorkTree.Error()
	}
	return fmt.Sprintf("%s: %s", ErrDirtyWorkTree.Error(), strings.Join(e.Paths, ", "))
}

// Is reports whether target is ErrDirtyWorkTree.
func (e *DirtyWorkTreeError) Is(target error) bool {
	return target == ErrDirtyWorkTree
}
