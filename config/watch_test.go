package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScheduledShot/logging"
)

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filename_prefix: before\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Settings, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		Watch(ctx, path, 10*time.Millisecond, logging.Discard(), func(s *Settings) { changes <- s })
	}()

	// 不正な内容は通知しない
	require.NoError(t, os.WriteFile(path, []byte("filename_prefix: [\n"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Hour)))
	select {
	case <-changes:
		t.Fatal("broken settings must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("filename_prefix: after\n"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(2*time.Hour)))
	select {
	case s := <-changes:
		assert.Equal(t, "after", s.FilenamePrefix)
	case <-time.After(2 * time.Second):
		t.Fatal("change was not detected")
	}

	cancel()
	<-done
}
