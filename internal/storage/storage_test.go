package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKey(t *testing.T) {
	key, err := ImageKey("products/abc", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "products/abc/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	_, err = ImageKey("products/abc", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStoragePutAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/uploads/")
	require.NoError(t, err)

	url, err := s.Put(context.Background(), "avatars/u1/a.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"), 10)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/u1/a.jpg", url)

	data, err := os.ReadFile(filepath.Join(root, "avatars", "u1", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, s.Delete(context.Background(), "avatars/u1/a.jpg"))
	require.NoError(t, s.Delete(context.Background(), "avatars/u1/a.jpg"))
}
