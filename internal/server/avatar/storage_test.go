package avatar

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_Publish(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, Dir), s.Dir())

	upload := filepath.Join(t.TempDir(), "upload.png")
	require.NoError(t, os.WriteFile(upload, []byte("first"), 0o600))

	url, err := s.Publish(context.Background(), upload, "acc-1.png")
	require.NoError(t, err)
	assert.Equal(t, "/avatars/acc-1.png", url)

	_, err = os.Stat(upload)
	assert.True(t, os.IsNotExist(err), "source moved away")

	second := filepath.Join(t.TempDir(), "again.png")
	require.NoError(t, os.WriteFile(second, []byte("second"), 0o600))
	_, err = s.Publish(context.Background(), second, "acc-1.png")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, Dir, "acc-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b), "previous avatar replaced")

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorage_MissingSource(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Publish(context.Background(), filepath.Join(t.TempDir(), "gone.png"), "acc-1.png")
	assert.Error(t, err)
}
