package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestSweepRemovesOnlyStaleFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "old.webm"), now.Add(-2*time.Hour))
	touch(t, filepath.Join(dir, "fresh.webm"), now.Add(-10*time.Minute))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	j, err := New(dir, time.Hour, "@every 10m", logr.Discard())
	require.NoError(t, err)
	j.now = func() time.Time { return now }

	removed, err := j.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "old.webm"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh.webm"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "nested"))
	assert.NoError(t, err)
}

func TestPurgeRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.wav"), time.Now())
	touch(t, filepath.Join(dir, "b.wav"), time.Now())

	j, err := New(dir, time.Hour, "@hourly", logr.Discard())
	require.NoError(t, err)

	removed, err := j.Purge()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestSweepMissingDirectory(t *testing.T) {
	j, err := New(filepath.Join(t.TempDir(), "absent"), time.Hour, "@every 1m", logr.Discard())
	require.NoError(t, err)

	removed, err := j.Sweep()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(t.TempDir(), time.Hour, "every so often", logr.Discard())
	require.Error(t, err)
}

func TestStartStop(t *testing.T) {
	j, err := New(t.TempDir(), time.Hour, "@every 1h", logr.Discard())
	require.NoError(t, err)
	j.Start()
	j.Stop()
}
