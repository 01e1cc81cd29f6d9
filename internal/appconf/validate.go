package appconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
	"github.com/omeyang/xsnow/pkg/util/xid"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// ErrInvalid 配置校验失败，具体原因以 errors.Join 附带。
var ErrInvalid = errors.New("appconf: invalid config")

// 上限
const (
	MaxBatchLimit    = 100_000
	maxSonyMachineID = 1<<16 - 1
)

// Validate 校验全部字段，返回所有违规项。
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	errs = append(errs, c.Generator.validate(time.Now())...)

	if c.Retry.MaxWait < 0 {
		add("retry.max_wait", "must be >= 0, got %s", c.Retry.MaxWait)
	}
	if c.Retry.Interval < 0 {
		add("retry.interval", "must be >= 0, got %s", c.Retry.Interval)
	}

	if c.Breaker.Enabled {
		if c.Breaker.ConsecutiveFailures < 1 {
			add("breaker.consecutive_failures", "must be >= 1, got %d", c.Breaker.ConsecutiveFailures)
		}
		if c.Breaker.OpenTimeout <= 0 {
			add("breaker.open_timeout", "must be > 0, got %s", c.Breaker.OpenTimeout)
		}
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		add("server.addr", "must not be empty")
	}
	if c.Server.MaxBatch < 1 || c.Server.MaxBatch > MaxBatchLimit {
		add("server.max_batch", "must be in [1, %d], got %d", MaxBatchLimit, c.Server.MaxBatch)
	}
	if c.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "must be >= 0, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.ReadHeaderTimeout < 0 {
		add("server.read_header_timeout", "must be >= 0, got %s", c.Server.ReadHeaderTimeout)
	}
	if c.Server.StatsInterval < 0 {
		add("server.stats_interval", "must be >= 0, got %s", c.Server.StatsInterval)
	}

	errs = append(errs, c.Limit.validate(c.Server.MaxBatch)...)

	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	if f := strings.ToLower(strings.TrimSpace(c.Log.Format)); f != "" && f != "text" && f != "json" {
		add("log.format", "must be text or json, got %q", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (g GeneratorConfig) validate(now time.Time) []error {
	var errs []error

	engine, err := xid.ParseEngine(g.Engine)
	if err != nil {
		errs = append(errs, fmt.Errorf("generator.engine: %w", err))
	}
	if g.MaxSpin < 0 {
		errs = append(errs, fmt.Errorf("generator.max_spin: must be >= 0, got %s", g.MaxSpin))
	}
	if g.EpochMillis < 0 {
		errs = append(errs, fmt.Errorf("generator.epoch_millis: must be >= 0, got %d", g.EpochMillis))
	} else if g.EpochMillis > now.UnixMilli() {
		errs = append(errs, fmt.Errorf("generator.epoch_millis: %d is in the future", g.EpochMillis))
	}

	bits := []struct {
		name string
		v    int
	}{
		{"generator.datacenter_bits", g.DataCenterBits},
		{"generator.worker_bits", g.WorkerBits},
		{"generator.sequence_bits", g.SequenceBits},
	}
	bitsOK := true
	for _, b := range bits {
		if b.v < 1 || b.v > xsnowflake.MaxLayoutBits {
			errs = append(errs, fmt.Errorf("%s: must be in [1, %d], got %d", b.name, xsnowflake.MaxLayoutBits, b.v))
			bitsOK = false
		}
	}
	if !bitsOK {
		return errs
	}

	layout, err := xsnowflake.NewLayout(uint8(g.DataCenterBits), uint8(g.WorkerBits), uint8(g.SequenceBits)) //nolint:gosec // 上面已限定范围
	if err != nil {
		return append(errs, fmt.Errorf("generator: %w", err))
	}
	if g.DataCenterID < 0 || g.DataCenterID > layout.MaxDataCenterID {
		errs = append(errs, fmt.Errorf("generator.datacenter_id: must be in [0, %d], got %d", layout.MaxDataCenterID, g.DataCenterID))
	}
	if g.WorkerID < 0 || g.WorkerID > layout.MaxWorkerID {
		errs = append(errs, fmt.Errorf("generator.worker_id: must be in [0, %d], got %d", layout.MaxWorkerID, g.WorkerID))
	}

	if engine == xid.EngineSonyflake {
		if g.EpochMillis <= 0 {
			errs = append(errs, errors.New("generator.epoch_millis: sonyflake requires a positive epoch"))
		}
		if g.DataCenterBits+g.WorkerBits > 16 {
			errs = append(errs, fmt.Errorf("generator: sonyflake machine id holds 16 bits, datacenter_bits+worker_bits = %d", g.DataCenterBits+g.WorkerBits))
		} else if m := g.MachineID(); m < 0 || m > maxSonyMachineID {
			errs = append(errs, fmt.Errorf("generator: sonyflake machine id %d out of range", m))
		}
	}
	return errs
}

// 限流后端
const (
	LimitBackendLocal = "local"
	LimitBackendRedis = "redis"
)

func (l LimitConfig) validate(maxBatch int) []error {
	if !l.Enabled {
		return nil
	}
	var errs []error
	switch strings.ToLower(strings.TrimSpace(l.Backend)) {
	case LimitBackendLocal:
	case LimitBackendRedis:
		if strings.TrimSpace(l.RedisAddr) == "" {
			errs = append(errs, errors.New("limit.redis_addr: required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("limit.backend: must be local or redis, got %q", l.Backend))
	}
	if err := l.Quota().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("limit: %w", err))
	} else if burst := l.effectiveBurst(); burst < maxBatch {
		// count=max_batch 的请求必须装得进桶
		errs = append(errs, fmt.Errorf("limit.burst: effective burst %d is below server.max_batch %d", burst, maxBatch))
	}
	if _, err := xlimit.ParseFallback(l.Fallback); err != nil {
		errs = append(errs, fmt.Errorf("limit.fallback: %w", err))
	}
	return errs
}

func (l LimitConfig) effectiveBurst() int {
	if l.Burst == 0 {
		return l.Limit
	}
	return l.Burst
}
