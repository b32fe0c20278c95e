package usecase

import (
	"bytes"
	"context"
	"fmt"

	"github.com/razou/dev-ops/internal/repository"
	"github.com/spf13/afero"
)

// UpdateVersionFileUseCase rewrites the __version__ declaration of the version file.
type UpdateVersionFileUseCase struct {
	FS repository.FileSystemRepository
}

// Execute replaces the first __version__ assignment line by a declaration of version.
// The line terminator and every other byte of the file are kept. It reports whether
// the file was changed; a file without such a line is left untouched.
func (uc *UpdateVersionFileUseCase) Execute(_ context.Context, path, version string) (bool, error) {
	data, mode, err := readVersionFile(uc.FS, path)
	if err != nil {
		return false, err
	}
	updated, ok := replaceVersionLine(data, version)
	if !ok {
		return false, nil
	}
	if bytes.Equal(updated, data) {
		return false, nil
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(uc.FS, tmp, updated, mode); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := uc.FS.Rename(tmp, path); err != nil {
		_ = uc.FS.Remove(tmp)
		return false, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return true, nil
}

// replaceVersionLine returns data with its first __version__ assignment line replaced.
func replaceVersionLine(data []byte, version string) ([]byte, bool) {
	start := 0
	for start <= len(data) {
		end := bytes.IndexByte(data[start:], '\n')
		lineEnd := len(data)
		if end >= 0 {
			lineEnd = start + end
		}
		if versionLineRegex.Match(data[start:lineEnd]) {
			terminator := data[lineEnd:]
			if end >= 0 {
				terminator = []byte("\n")
				if lineEnd > start && data[lineEnd-1] == '\r' {
					terminator = []byte("\r\n")
					lineEnd--
				}
			}
			var out bytes.Buffer
			out.Grow(len(data) + len(version))
			out.Write(data[:start])
			fmt.Fprintf(&out, "__version__ = %q", version)
			out.Write(terminator)
			if end >= 0 {
				out.Write(data[start+end+1:])
			}
			return out.Bytes(), true
		}
		if end < 0 {
			break
		}
		start += end + 1
	}
	return data, false
}
