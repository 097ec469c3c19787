package dicom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMagicFile(t *testing.T, path string) {
	t.Helper()
	data := make([]byte, 140)
	copy(data[128:], "DICM")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestFindDicomFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dcm"), []byte("x"), 0644))
	writeMagicFile(t, filepath.Join(dir, "sub", "IMG0001"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "random.bin"), []byte("no magic here"), 0644))

	files, err := FindDicomFiles(dir, true)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.dcm"),
		filepath.Join(dir, "sub", "IMG0001"),
	}, files)
}

func TestFindDicomFilesNonRecursive(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dcm"), []byte("x"), 0644))
	writeMagicFile(t, filepath.Join(dir, "sub", "IMG0001"))

	files, err := FindDicomFiles(dir, false)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "a.dcm")}, files)
}

func TestHasDicomMagicBytes(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good")
	writeMagicFile(t, good)
	require.True(t, hasDicomMagicBytes(good))

	short := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(short, []byte("tiny"), 0644))
	require.False(t, hasDicomMagicBytes(short))
}
