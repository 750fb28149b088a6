package wdtfs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateExistsRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stopbot")

	assert.False(t, Exists(path))

	require.NoError(t, CreateEmpty(path))
	assert.True(t, Exists(path))

	require.NoError(t, Remove(path))
	assert.False(t, Exists(path))

	// Removing an already-absent sentinel is not an error.
	require.NoError(t, Remove(path))
}

func TestWriteAllReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats_bot.raw")

	data := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, WriteAll(path, data))

	got, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	oldpath := filepath.Join(dir, "wdt.log")
	newpath := filepath.Join(dir, "wdt.old.log")

	require.NoError(t, WriteAll(oldpath, []byte("log line\n")))
	require.NoError(t, Rename(oldpath, newpath))

	assert.False(t, Exists(oldpath))
	assert.True(t, Exists(newpath))
}

func TestMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "startbot")
	require.NoError(t, CreateEmpty(path))

	mt, err := Mtime(path)
	require.NoError(t, err)
	assert.False(t, mt.IsZero())
}
