package filesystem

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	hio "github.com/OpenListTeam/wazero-hostio/manager/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub")

	require.NoError(t, Mkdir(dir))
	assert.ErrorIs(t, Mkdir(dir), hio.ErrIOFailure)

	ok, err := IsDir(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, Rmdir(dir))
	_, err = IsDir(dir)
	assert.ErrorIs(t, err, hio.ErrIOFailure)
	assert.ErrorIs(t, Rmdir(dir), hio.ErrIOFailure)
}

func TestWorkingDirectory(t *testing.T) {
	wd, err := Getwd()
	require.NoError(t, err)

	abs, err := AbsPath("")
	require.NoError(t, err)
	assert.Equal(t, wd, abs)

	_, err = AbsPath(filepath.Join(t.TempDir(), "nope"))
	var herr *hio.Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "File does not exist", herr.Op)

	assert.ErrorIs(t, Chdir(filepath.Join(t.TempDir(), "nope")), hio.ErrIOFailure)
}

func TestFileMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	size, err := FileSize(path)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	stamp := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	require.NoError(t, SetTime(path, stamp))
	mt, err := ModTime(path)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(mt), "got %v", mt)

	_, err = ModTime(filepath.Join(dir, "*.txt"))
	assert.ErrorIs(t, err, hio.ErrIOFailure)
	_, err = FileSize(filepath.Join(dir, "f?.txt"))
	assert.ErrorIs(t, err, hio.ErrIOFailure)

	ok, err := IsSymlink(path)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, Access(path, AccessRead))
	assert.True(t, Access(path, AccessRead|AccessWrite))
	assert.False(t, Access(filepath.Join(dir, "missing"), AccessRead))

	if runtime.GOOS != "windows" {
		assert.Greater(t, FileID(path), int64(0))
	}
	assert.EqualValues(t, -1, FileID(filepath.Join(dir, "missing")))
}

func TestRenameAndRemove(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("old"), 0o644))

	require.NoError(t, Rename(a, b))
	data, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	require.NoError(t, Remove(b))
	assert.ErrorIs(t, Remove(b), hio.ErrIOFailure)
	assert.ErrorIs(t, Remove(dir), hio.ErrIOFailure, "directories are refused")
}

func TestSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		_, err := ReadLink("x")
		assert.ErrorIs(t, err, hio.ErrNotImplemented)
		return
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, nil, 0o644))
	require.NoError(t, os.Symlink(target, link))

	ok, err := IsSymlink(link)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := ReadLink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	_, err = ReadLink(target)
	assert.ErrorIs(t, err, hio.ErrIOFailure)
}

func TestTempFileName(t *testing.T) {
	name, err := TempFileName()
	require.NoError(t, err)
	defer os.Remove(name)

	assert.Contains(t, filepath.Base(name), "MLTEMP")
	fi, err := os.Stat(name)
	require.NoError(t, err)
	assert.Zero(t, fi.Size())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
	}
}
