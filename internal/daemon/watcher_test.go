package daemon

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sponsorbot.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	var calls atomic.Int32
	w, err := NewConfigWatcher(path, 100*time.Millisecond, func() { calls.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))

	// rapid writes are coalesced
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConfigWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sponsorbot.json")

	var calls atomic.Int32
	w, err := NewConfigWatcher(path, 200*time.Millisecond, func() { calls.Add(1) }, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, w.Stop())

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
