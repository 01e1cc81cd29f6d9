package xconf

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RejectsBytesConfig(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a: 1"), FormatYAML)
	require.NoError(t, err)

	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrNotFromFile)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "xsnow.yaml", "log:\n  level: info\n")
	cfg, err := New(path)
	require.NoError(t, err)

	reloaded := make(chan string, 8)
	w, err := Watch(cfg, func(c Config, err error) {
		if err == nil {
			reloaded <- c.Client().String("log.level")
		}
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// 其他文件的事件被忽略
	writeFile(t, dir, "other.yaml", "x: 1")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	select {
	case level := <-reloaded:
		assert.Equal(t, "debug", level)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到重载回调")
	}

	cancel()
	require.NoError(t, <-errCh)
	assert.NoError(t, w.Stop(), "重复 Stop 安全")
}

func TestWatch_RunTwice(t *testing.T) {
	path := writeFile(t, t.TempDir(), "xsnow.yaml", "a: 1")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.running
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, w.Run(ctx), ErrWatcherRunning)

	require.NoError(t, w.Stop())
	require.NoError(t, <-errCh)
	cancel()
}

func TestWatch_RunAfterStop(t *testing.T) {
	path := writeFile(t, t.TempDir(), "xsnow.yaml", "a: 1")
	cfg, err := New(path)
	require.NoError(t, err)

	w, err := Watch(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Run(context.Background()))
}
