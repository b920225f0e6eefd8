package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankx/agent-fabric/pkg/cache"
)

func writeCacheFile(t *testing.T, dir, customerID string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, customerID+".json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestService_SweepRemovesOnlyStaleCacheFiles(t *testing.T) {
	dir := t.TempDir()
	manager, err := cache.NewManager(dir)
	require.NoError(t, err)

	writeCacheFile(t, dir, "stale-customer", time.Now().Add(-2*cache.CleanupAge))
	writeCacheFile(t, dir, "fresh-customer", time.Now())

	svc := NewService(manager, time.Hour)
	svc.sweep()

	_, err = os.Stat(filepath.Join(dir, "stale-customer.json"))
	assert.True(t, os.IsNotExist(err), "stale cache file should have been removed")

	_, err = os.Stat(filepath.Join(dir, "fresh-customer.json"))
	assert.NoError(t, err, "fresh cache file should be preserved")
}

func TestService_StartStopRunsSweepOnStartAndStopsCleanly(t *testing.T) {
	dir := t.TempDir()
	manager, err := cache.NewManager(dir)
	require.NoError(t, err)

	writeCacheFile(t, dir, "stale-customer", time.Now().Add(-2*cache.CleanupAge))

	svc := NewService(manager, 10*time.Millisecond)
	svc.Start(context.Background())

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "stale-customer.json"))
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	svc.Stop()
}

func TestNewService_DefaultsIntervalToCleanupAge(t *testing.T) {
	manager, err := cache.NewManager(t.TempDir())
	require.NoError(t, err)

	svc := NewService(manager, 0)
	assert.Equal(t, cache.CleanupAge, svc.interval)
}
