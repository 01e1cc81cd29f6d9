package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsnow/internal/appconf"
	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/util/xid"
)

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(context.Background(), append([]string{"xsnowctl"}, args...), &out, &errb)
	return code, out.String(), errb.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func parseLines(t *testing.T, out string, parse func(string) (int64, error)) []int64 {
	t.Helper()
	var ids []int64
	for line := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		id, err := parse(line)
		require.NoError(t, err, line)
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// gen
// =============================================================================

func TestGen(t *testing.T) {
	code, out, stderr := execute(t, "--dc", "3", "--worker", "7", "gen", "-n", "5")
	require.Equal(t, 0, code, stderr)

	ids := parseLines(t, out, xid.ParseDecimal)
	require.Len(t, ids, 5)
	for i, id := range ids {
		assert.Equal(t, int64(3), id>>17&0x1f)
		assert.Equal(t, int64(7), id>>12&0x1f)
		if i > 0 {
			assert.Greater(t, id, ids[i-1])
		}
	}
}

func TestGen_Base36(t *testing.T) {
	code, out, stderr := execute(t, "gen", "-n", "3", "--format", "base36")
	require.Equal(t, 0, code, stderr)
	assert.Len(t, parseLines(t, out, xid.Parse), 3)
}

func TestGen_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero count", []string{"gen", "-n", "0"}},
		{"count over limit", []string{"gen", "-n", strconv.Itoa(appconf.MaxBatchLimit + 1)}},
		{"unknown format", []string{"gen", "--format", "hex"}},
		{"layout over band", []string{"--seq-bits", "20", "gen"}},
		{"worker out of range", []string{"--worker", "32", "gen"}},
		{"unknown engine", []string{"--engine", "uuid", "gen"}},
		{"unknown flag", []string{"gen", "--bogus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := execute(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

// =============================================================================
// decode / layout
// =============================================================================

func TestDecode(t *testing.T) {
	_, out, _ := execute(t, "--dc", "2", "--worker", "9", "gen")
	raw := strings.TrimSpace(out)

	code, out, stderr := execute(t, "--dc", "2", "--worker", "9", "decode", raw)
	require.Equal(t, 0, code, stderr)

	var p xid.Parts
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, raw, strconv.FormatInt(p.ID, 10))
	assert.Equal(t, int64(2), p.DataCenterID)
	assert.Equal(t, int64(9), p.WorkerID)
	assert.WithinDuration(t, time.Now(), p.Time, 5*time.Second)
}

func TestDecode_Multiple(t *testing.T) {
	_, out, _ := execute(t, "gen", "-n", "2", "--format", "base36")
	ids := strings.Fields(out)

	code, out, stderr := execute(t, "decode", "--base36", ids[0], ids[1])
	require.Equal(t, 0, code, stderr)

	var parts []xid.Parts
	require.NoError(t, json.Unmarshal([]byte(out), &parts))
	require.Len(t, parts, 2)
	assert.Less(t, parts[0].ID, parts[1].ID)
}

func TestDecode_UsageErrors(t *testing.T) {
	code, _, stderr := execute(t, "decode")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "参数错误")

	code, _, _ = execute(t, "decode", "not-a-number")
	assert.Equal(t, 2, code)

	code, _, _ = execute(t, "decode", "--base36", "!!")
	assert.Equal(t, 2, code)
}

func TestDecode_Zero(t *testing.T) {
	code, out, stderr := execute(t, "decode", "0")
	require.Equal(t, 0, code, stderr)

	var p xid.Parts
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Zero(t, p.ID)
	assert.Zero(t, p.Sequence)
}

func TestLayout(t *testing.T) {
	code, out, stderr := execute(t, "--dc-bits", "6", "--worker-bits", "6", "--seq-bits", "10", "layout")
	require.Equal(t, 0, code, stderr)

	var info xid.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, xid.EngineSnowflake, info.Engine)
	assert.Equal(t, uint8(6), info.DataCenterBits)
	assert.Equal(t, uint8(6), info.WorkerBits)
	assert.Equal(t, uint8(10), info.SequenceBits)
	assert.Equal(t, uint8(41), info.TimestampBits)
}

func TestLayout_Sonyflake(t *testing.T) {
	code, out, stderr := execute(t, "--engine", "sonyflake", "--dc", "1", "--worker", "2", "layout")
	require.Equal(t, 0, code, stderr)

	var info xid.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, xid.EngineSonyflake, info.Engine)
	assert.Equal(t, int64(1<<5|2), info.Machine)
}

// =============================================================================
// 配置文件
// =============================================================================

func TestConfigFile(t *testing.T) {
	path := writeFile(t, "xsnow.yaml", `
generator:
  datacenter_id: 4
  worker_id: 1
`)

	code, out, stderr := execute(t, "--config", path, "layout")
	require.Equal(t, 0, code, stderr)
	var info xid.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, int64(4), info.DataCenterID)
	assert.Equal(t, int64(1), info.WorkerID)

	// flag 优先于配置文件
	code, out, stderr = execute(t, "-c", path, "--dc", "5", "layout")
	require.Equal(t, 0, code, stderr)
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, int64(5), info.DataCenterID)
}

func TestConfigFile_Errors(t *testing.T) {
	code, _, _ := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "layout")
	assert.Equal(t, 2, code)

	bad := writeFile(t, "bad.yaml", "generator:\n  sequence_bits: 30\n")
	code, _, stderr := execute(t, "--config", bad, "layout")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "sequence_bits")
}

// =============================================================================
// serve
// =============================================================================

func TestServe(t *testing.T) {
	path := writeFile(t, "xsnow.yaml", `
server:
  addr: "127.0.0.1:0"
  shutdown_timeout: 1s
  stats_interval: 10ms
limit:
  enabled: true
log:
  format: json
`)

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(200*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	var out, errb bytes.Buffer
	code := run(ctx, []string{"xsnowctl", "-c", path, "serve"}, &out, &errb)
	require.Equal(t, 0, code, errb.String())
	assert.Contains(t, errb.String(), `"msg":"xsnow serving"`)
	assert.Contains(t, errb.String(), `"quota":true`)
	assert.Contains(t, errb.String(), `"msg":"generator stats"`)
}

func TestProbeLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := appconf.LimitConfig{
		Enabled:   true,
		Backend:   appconf.LimitBackendRedis,
		RedisAddr: mr.Addr(),
		Limit:     100,
		Window:    time.Second,
	}
	limiter, cleanup, err := cfg.NewLimiter(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	var buf bytes.Buffer
	logger, logCleanup, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = logCleanup() })

	probeLimiter(context.Background(), logger, limiter)
	assert.NotContains(t, buf.String(), "unreachable")

	mr.Close()
	probeLimiter(context.Background(), logger, limiter)
	assert.Contains(t, buf.String(), "quota backend ping failed")
	assert.Contains(t, buf.String(), "quota backend unreachable")
}

func TestReloadLogLevel(t *testing.T) {
	path := writeFile(t, "xsnow.yaml", "log:\n  level: info\n")
	src, _, err := appconf.Load(path, func(string) (string, bool) { return "", false })
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	cb := reloadLogLevel(logger)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, src.Reload())
	cb(src, nil)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.Contains(t, buf.String(), "log level changed")

	cb(src, errors.New("boom"))
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.Contains(t, buf.String(), "config reload failed")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.NoError(t, src.Reload())
	cb(src, nil)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.Contains(t, buf.String(), "reloaded config rejected")
}

func TestIsCLIUsageError(t *testing.T) {
	assert.True(t, isCLIUsageError(errors.New("flag provided but not defined: -bogus")))
	assert.False(t, isCLIUsageError(errors.New("clock moved backwards")))
}
