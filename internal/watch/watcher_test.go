package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_MissingSourceRoot(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 10*time.Millisecond,
		func(context.Context) error { return nil })
	require.NoError(t, err)

	err = w.Run(context.Background())
	require.Error(t, err)
}

func TestRun_DebouncesBurstIntoSingleRebuild(t *testing.T) {
	src := t.TempDir()
	var rebuilds atomic.Int32

	w, err := NewWatcher(src, 50*time.Millisecond, func(context.Context) error {
		rebuilds.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// Burst of writes within the debounce window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(src, "a.css"), []byte{byte(i)}, 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return rebuilds.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// No extra rebuilds after the window has passed.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int32(1), rebuilds.Load())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_PicksUpNewSubdirectories(t *testing.T) {
	src := t.TempDir()
	var rebuilds atomic.Int32

	w, err := NewWatcher(src, 30*time.Millisecond, func(context.Context) error {
		rebuilds.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(src, "images", "icons")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)

	// A write inside the new directory triggers another rebuild.
	prev := rebuilds.Load()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.svg"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return rebuilds.Load() > prev }, 2*time.Second, 20*time.Millisecond)
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler(30*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer func() { require.NoError(t, s.Stop()) }()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 3*time.Second, 10*time.Millisecond)
}
