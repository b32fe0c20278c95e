package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorktreeFileSystem(t *testing.T) {
	t.Run("Should resolve paths relative to the root", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "version.py"), []byte("x"), 0644))
		fs := NewWorktreeFileSystem(root)
		data, err := afero.ReadFile(fs, "version.py")
		require.NoError(t, err)
		assert.Equal(t, "x", string(data))
	})
	t.Run("Should reject paths outside the root", func(t *testing.T) {
		fs := NewWorktreeFileSystem(t.TempDir())
		_, err := fs.Open("../../etc/passwd")
		assert.Error(t, err)
	})
}
