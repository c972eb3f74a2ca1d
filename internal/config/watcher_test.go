package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCategoryWatcher_InvokesCallbackOnWrite(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  - npm install\n"), 0o644))

	watcher, err := NewCategoryWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	var mu sync.Mutex
	var received map[string][]string
	watcher.OnReload(func(categories map[string][]string) {
		mu.Lock()
		received = categories
		mu.Unlock()
	})

	// Act
	require.NoError(t, os.WriteFile(path, []byte("docker:\n  - no space left\n"), 0o644))

	// Assert
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil
	}, 3*time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"no space left"}, received["docker"])
}

func TestCategoryWatcher_MalformedRewriteIsIgnored(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "categories.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  - npm install\n"), 0o644))

	watcher, err := NewCategoryWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	var mu sync.Mutex
	calls := 0
	watcher.OnReload(func(map[string][]string) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Act: a broken write must not reach the callback.
	require.NoError(t, os.WriteFile(path, []byte("build: [unbalanced"), 0o644))

	// Assert
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestCategoryWatcher_MissingFileFailsConstruction(t *testing.T) {
	// Act
	watcher, err := NewCategoryWatcher(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())

	// Assert
	require.Error(t, err)
	assert.Nil(t, watcher)
}
