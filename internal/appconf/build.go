package appconf

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/observability/xrotate"
	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
	"github.com/omeyang/xsnow/pkg/util/xid"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// BreakerName 时钟熔断器名称，用于日志和 /healthz。
const BreakerName = "xsnow-clock"

// NewLogger 按 LogConfig 构建日志。File 为空时写入 out。
func NewLogger(c LogConfig, out io.Writer, attrs ...slog.Attr) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevelString(c.Level).
		SetFormat(c.Format).
		SetAttrs(attrs...)
	if c.File != "" {
		b = b.SetRotation(c.File,
			xrotate.WithMaxSize(c.MaxSizeMB),
			xrotate.WithMaxBackups(c.MaxBackups),
			xrotate.WithMaxAge(c.MaxAgeDays),
			xrotate.WithCompress(c.Compress),
		)
	} else if out != nil {
		b = b.SetOutput(out)
	}
	return b.Build()
}

// NewSource 按引擎构建 ID 源。opts 只作用于 snowflake 引擎（如测试时注入时钟）。
func (g GeneratorConfig) NewSource(opts ...xsnowflake.Option) (xid.Source, error) {
	engine, err := xid.ParseEngine(g.Engine)
	if err != nil {
		return nil, err
	}
	if engine == xid.EngineSonyflake {
		return xid.NewSonyflakeSource(uint16(g.MachineID()), time.UnixMilli(g.EpochMillis)) //nolint:gosec // Validate 已限定 16 位
	}

	gen, err := xsnowflake.New(g.SnowflakeConfig(), append([]xsnowflake.Option{xsnowflake.WithMaxSpin(g.MaxSpin)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return xid.SnowflakeSource(gen), nil
}

// NewBreaker 构建只统计时钟类错误的熔断器；未启用时返回 nil。
func (c BreakerConfig) NewBreaker(logger xlog.Logger) *xbreaker.Breaker {
	if !c.Enabled {
		return nil
	}
	if logger == nil {
		logger = xlog.Discard()
	}
	return xbreaker.NewBreaker(BreakerName,
		xbreaker.WithTripPolicy(xbreaker.NewConsecutiveFailures(uint32(c.ConsecutiveFailures))), //nolint:gosec // Validate 已保证 >= 1
		xbreaker.WithSuccessPolicy(xbreaker.FailOn(xsnowflake.IsClockError)),
		xbreaker.WithTimeout(c.OpenTimeout),
		xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
			logger.Warn(context.Background(), "breaker state changed",
				xlog.Component(name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
	)
}

// NewGenerator 装配完整的生成器：ID 源 + 重试窗口 + 可选熔断器。
func (c *Config) NewGenerator(logger xlog.Logger, opts ...xsnowflake.Option) (*xid.Generator, error) {
	src, err := c.Generator.NewSource(opts...)
	if err != nil {
		return nil, err
	}
	return xid.NewGenerator(src,
		xid.WithMaxWaitDuration(c.Retry.MaxWait),
		xid.WithRetryInterval(c.Retry.Interval),
		xid.WithBreaker(c.Breaker.NewBreaker(logger)),
	)
}

// Quota 转换为 xlimit.Quota。
func (l LimitConfig) Quota() xlimit.Quota {
	return xlimit.Quota{Limit: l.Limit, Burst: l.Burst, Window: l.Window}
}

// NewLimiter 构建 ID 配额限流器；未启用时返回 nil limiter。
// 返回的 cleanup 关闭内部创建的 Redis 客户端。
func (l LimitConfig) NewLimiter(logger xlog.Logger) (*xlimit.Limiter, func() error, error) {
	noop := func() error { return nil }
	if !l.Enabled {
		return nil, noop, nil
	}
	fallback, err := xlimit.ParseFallback(l.Fallback)
	if err != nil {
		return nil, noop, err
	}
	opts := []xlimit.Option{xlimit.WithFallback(fallback), xlimit.WithLogger(logger)}

	if strings.ToLower(strings.TrimSpace(l.Backend)) != LimitBackendRedis {
		lim, err := xlimit.NewLocal(l.Quota(), opts...)
		return lim, noop, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     l.RedisAddr,
		Password: l.RedisPassword,
		DB:       l.RedisDB,
	})
	lim, err := xlimit.New(rdb, l.Quota(), opts...)
	if err != nil {
		_ = rdb.Close()
		return nil, noop, err
	}
	return lim, rdb.Close, nil
}
