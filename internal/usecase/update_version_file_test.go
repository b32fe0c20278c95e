package usecase

import (
	"context"
	"os"
	"testing"

	"github.com/razou/dev-ops/internal/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateVersionFileUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		content string
		want    string
		changed bool
	}{
		{
			name:    "simple file",
			content: "__version__ = \"1.2.3\"\n",
			want:    "__version__ = \"1.2.4\"\n",
			changed: true,
		},
		{
			name:    "surrounding lines",
			content: "# pkg\n__version__ = '1.2.3'  # bumped by CI\nNAME = \"pkg\"\n",
			want:    "# pkg\n__version__ = \"1.2.4\"\nNAME = \"pkg\"\n",
			changed: true,
		},
		{
			name:    "crlf terminator",
			content: "a = 1\r\n__version__ = \"1.2.3\"\r\nb = 2\r\n",
			want:    "a = 1\r\n__version__ = \"1.2.4\"\r\nb = 2\r\n",
			changed: true,
		},
		{
			name:    "last line without terminator",
			content: "a = 1\n__version__ = \"1.2.3\"",
			want:    "a = 1\n__version__ = \"1.2.4\"",
			changed: true,
		},
		{
			name:    "only first line replaced",
			content: "__version__ = \"1.2.3\"\n__version__ = \"0.0.1\"\n",
			want:    "__version__ = \"1.2.4\"\n__version__ = \"0.0.1\"\n",
			changed: true,
		},
		{
			name:    "assignment after similar names",
			content: "__version_info__ = (1, 2, 3)\n__version__tuple = (1, 2, 3)\n__version__ = \"1.2.3\"\n",
			want:    "__version_info__ = (1, 2, 3)\n__version__tuple = (1, 2, 3)\n__version__ = \"1.2.4\"\n",
			changed: true,
		},
		{
			name:    "no declaration",
			content: "VERSION = \"1.2.3\"\n",
			want:    "VERSION = \"1.2.3\"\n",
			changed: false,
		},
		{
			name:    "already at version",
			content: "__version__ = \"1.2.4\"\n",
			want:    "__version__ = \"1.2.4\"\n",
			changed: false,
		},
	}
	for _, tc := range cases {
		t.Run("Should rewrite "+tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "pkg/version.py", []byte(tc.content), 0640))
			uc := &UpdateVersionFileUseCase{FS: fs}
			changed, err := uc.Execute(ctx, "pkg/version.py", "1.2.4")
			require.NoError(t, err)
			assert.Equal(t, tc.changed, changed)
			data, err := afero.ReadFile(fs, "pkg/version.py")
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(data))
			exists, err := afero.Exists(fs, "pkg/version.py.tmp")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
	t.Run("Should keep the file mode", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "version.py", []byte("__version__ = \"1.0.0\"\n"), 0600))
		uc := &UpdateVersionFileUseCase{FS: fs}
		_, err := uc.Execute(ctx, "version.py", "1.0.1")
		require.NoError(t, err)
		info, err := fs.Stat("version.py")
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
	t.Run("Should rewrite the line the reader reads", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		content := "__version__tuple = (2, 0, 0)\n__version__ = \"2.0.0\"\n"
		require.NoError(t, afero.WriteFile(fs, "version.py", []byte(content), 0644))
		before, err := (&ReadVersionUseCase{FS: fs}).Execute(ctx, "version.py")
		require.NoError(t, err)
		assert.Equal(t, "2.0.0", before)
		_, err = (&UpdateVersionFileUseCase{FS: fs}).Execute(ctx, "version.py", "2.0.1")
		require.NoError(t, err)
		after, err := (&ReadVersionUseCase{FS: fs}).Execute(ctx, "version.py")
		require.NoError(t, err)
		assert.Equal(t, "2.0.1", after)
		data, err := afero.ReadFile(fs, "version.py")
		require.NoError(t, err)
		assert.Contains(t, string(data), "__version__tuple = (2, 0, 0)\n")
	})
	t.Run("Should be read back as the new version", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "version.py", []byte("__version__ = '2.0.0b1'\n"), 0644))
		_, err := (&UpdateVersionFileUseCase{FS: fs}).Execute(ctx, "version.py", "2.0.0b2")
		require.NoError(t, err)
		got, err := (&ReadVersionUseCase{FS: fs}).Execute(ctx, "version.py")
		require.NoError(t, err)
		assert.Equal(t, "2.0.0b2", got)
	})
	t.Run("Should return ErrVersionFileNotFound for a missing file", func(t *testing.T) {
		uc := &UpdateVersionFileUseCase{FS: afero.NewMemMapFs()}
		_, err := uc.Execute(ctx, "version.py", "1.0.0")
		assert.ErrorIs(t, err, domain.ErrVersionFileNotFound)
	})
}
