package repository

import "github.com/spf13/afero"

// FileSystemRepository defines the interface for filesystem operations.
type FileSystemRepository interface {
	afero.Fs
}

// NewWorktreeFileSystem returns a filesystem whose paths resolve inside root.
// Paths escaping root are rejected by the underlying BasePathFs.
func NewWorktreeFileSystem(root string) FileSystemRepository {
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}
