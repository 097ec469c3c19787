package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLogFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ErrorLogName)

	l, err := NewErrorLog(path)
	require.NoError(t, err)

	l.Record("/data/scan1.dcm", "not a valid dataset")
	l.Record("/data/scan2.dcm", "unexpected end of file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "ERROR: /data/scan1.dcm\n" +
		"EXCEPTION: not a valid dataset\n" +
		"ERROR: /data/scan2.dcm\n" +
		"EXCEPTION: unexpected end of file\n"
	assert.Equal(t, want, string(data))
	assert.Equal(t, 2, l.Count())
}

func TestErrorLogAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ErrorLogName)

	l1, err := NewErrorLog(path)
	require.NoError(t, err)
	l1.Record("a.dcm", "first")
	require.NoError(t, l1.Close())

	l2, err := NewErrorLog(path)
	require.NoError(t, err)
	l2.Record("b.dcm", "second")
	require.NoError(t, l2.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ERROR: a.dcm")
	assert.Contains(t, string(data), "ERROR: b.dcm")
}

func TestErrorLogInMemory(t *testing.T) {
	l, err := NewErrorLog("")
	require.NoError(t, err)
	l.Record("a.dcm", "oops")
	assert.Equal(t, 1, l.Count())
	assert.NoError(t, l.Close())
}

func TestTrackerMarksAndResumes(t *testing.T) {
	dir := t.TempDir()
	progressFile := filepath.Join(dir, ".progress.json")
	source := filepath.Join(dir, "scan.dcm")
	require.NoError(t, os.WriteFile(source, []byte("data"), 0644))

	tr := NewTracker(progressFile, nil)
	assert.False(t, tr.IsProcessed(source))

	tr.MarkSuccess(source, "out/scan.json")
	assert.True(t, tr.IsProcessed(source))

	// A fresh tracker resumes from the persisted state.
	resumed := NewTracker(progressFile, nil)
	assert.True(t, resumed.IsProcessed(source))

	success, errors := resumed.Stats()
	assert.Equal(t, 1, success)
	assert.Equal(t, 0, errors)
}

func TestTrackerDetectsChangedFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "scan.dcm")
	require.NoError(t, os.WriteFile(source, []byte("data"), 0644))

	tr := NewTracker("", nil)
	tr.MarkSuccess(source, "out/scan.json")
	require.True(t, tr.IsProcessed(source))

	// Growing the file changes its fingerprint.
	require.NoError(t, os.WriteFile(source, []byte("data plus more"), 0644))
	assert.False(t, tr.IsProcessed(source))
}

func TestTrackerClearFailed(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dcm")
	bad := filepath.Join(dir, "bad.dcm")
	require.NoError(t, os.WriteFile(good, []byte("g"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("b"), 0644))

	tr := NewTracker("", nil)
	tr.MarkSuccess(good, "out/good.json")
	tr.MarkError(bad, "decode failure")

	assert.Equal(t, 1, tr.ClearFailed())
	assert.True(t, tr.IsProcessed(good))
	assert.False(t, tr.IsProcessed(bad))

	success, errors := tr.Stats()
	assert.Equal(t, 1, success)
	assert.Equal(t, 0, errors)
}
