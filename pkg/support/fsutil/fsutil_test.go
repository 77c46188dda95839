package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte{}, 0644))
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.png", "b.JPG", "c.jpeg", "d.tiff", "e.Bmp", "f.webp", "g.gif"} {
		assert.True(t, IsImageFile(name), name)
	}
	for _, name := range []string{"a.txt", "png", "b.png.bak", "README", ".png.swp"} {
		assert.False(t, IsImageFile(name), name)
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "z.png"))
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "b", "c.png"))
	touch(t, filepath.Join(dir, "b", "a.jpg"))
	touch(t, filepath.Join(dir, "a-c", "x.png"))

	got, err := ListImages(dir)
	require.NoError(t, err)
	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "z.png"),
		filepath.Join(dir, "a-c", "x.png"),
		filepath.Join(dir, "b", "a.jpg"),
		filepath.Join(dir, "b", "c.png"),
	}
	assert.Equal(t, want, got)

	// Listing again yields the same order.
	again, err := ListImages(dir)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestListImagesEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty", "sub"), 0755))
	got, err := ListImages(filepath.Join(dir, "empty"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ListImages(filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReplaceTildeInDir(t *testing.T) {
	got, err := ReplaceTildeInDir("/tmp/camvid")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/camvid", got)

	got, err = ReplaceTildeInDir("~/camvid")
	require.NoError(t, err)
	assert.NotContains(t, got, "~")
	assert.Equal(t, "camvid", filepath.Base(got))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.png")
	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)
	touch(t, path)
	exists, err = FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)
}
