package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWatchLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "liftlog.pid")

	cleanup, err := acquireWatchLock(path)
	require.NoError(t, err)
	require.NotNil(t, cleanup)

	// The lock file records this process.
	assert.Equal(t, os.Getpid(), watcherPID(path))

	// A second acquisition in the same process fails: the flock is held.
	_, err = acquireWatchLock(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	cleanup()

	// Released: the file is gone and the lock is free again.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	cleanup2, err := acquireWatchLock(path)
	require.NoError(t, err)
	cleanup2()
}

func TestWatcherPID_Stale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "liftlog.pid")

	assert.Zero(t, watcherPID(path), "missing file reads as not running")

	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))
	assert.Zero(t, watcherPID(path), "garbage content reads as not running")

	// PID 1 is running but isn't ours to signal on most systems; use an
	// absurdly high PID that cannot exist.
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))
	assert.Zero(t, watcherPID(path), "dead process reads as not running")
}

func TestWatchLockPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/data/liftlog.pid", watchLockPath("/data/liftlog.db"))
}
