package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xsnow/internal/appconf"
	"github.com/omeyang/xsnow/internal/idserver"
	"github.com/omeyang/xsnow/pkg/config/xconf"
	"github.com/omeyang/xsnow/pkg/lifecycle/xrun"
	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/observability/xmetrics"
	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
	"github.com/omeyang/xsnow/pkg/resilience/xretry"
)

func cmdServe(ctx context.Context, cmd *cli.Command) error {
	src, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, cleanup, err := appconf.NewLogger(cfg.Log, cmd.Root().ErrWriter, slog.String("service", "xsnow"))
	if err != nil {
		return &usageError{err: err}
	}
	defer func() { _ = cleanup() }()

	// 指标只在进程内采集，通过 /debug/metrics 读取；
	// trace 不导出，只为访问日志提供 trace_id/span_id。
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tp := sdktrace.NewTracerProvider()
	defer func() {
		sctx := context.WithoutCancel(ctx)
		if err := errors.Join(mp.Shutdown(sctx), tp.Shutdown(sctx)); err != nil {
			logger.Warn(sctx, "telemetry shutdown failed", xlog.Err(err))
		}
	}()

	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithMeterProvider(mp),
		xmetrics.WithTracerProvider(tp),
	)
	if err != nil {
		return err
	}

	gen, err := cfg.NewGenerator(logger)
	if err != nil {
		return err
	}
	limiter, closeLimiter, err := cfg.Limit.NewLimiter(logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeLimiter() }()
	if limiter != nil {
		probeLimiter(ctx, logger, limiter)
	}

	srv, err := idserver.New(gen, cfg.Server,
		idserver.WithLogger(logger),
		idserver.WithObserver(obs),
		idserver.WithMetricsReader(reader),
		idserver.WithLimiter(limiter),
	)
	if err != nil {
		return err
	}

	reg, err := srv.RegisterMetrics(mp)
	switch {
	case err == nil:
		defer func() { _ = reg.Unregister() }()
	case errors.Is(err, idserver.ErrStatsUnavailable):
		logger.Info(ctx, "generator stats not available for engine", xlog.Engine(cfg.Generator.Engine))
	default:
		return err
	}

	services := []xrun.Service{
		{Name: "http", Run: xrun.HTTPServer(srv.HTTPServer(), cfg.Server.ShutdownTimeout)},
	}
	if cfg.Server.StatsInterval > 0 {
		services = append(services, xrun.Service{
			Name: "stats",
			Run:  xrun.Ticker(cfg.Server.StatsInterval, false, srv.LogStats),
		})
	}
	if cmd.String("config") != "" {
		w, err := xconf.Watch(src, reloadLogLevel(logger))
		if err != nil {
			return err
		}
		services = append(services, xrun.Service{Name: "config-watch", Run: w.Run})
	}

	logger.Info(ctx, "xsnow serving",
		slog.String("addr", cfg.Server.Addr),
		xlog.Engine(cfg.Generator.Engine),
		xlog.Node(cfg.Generator.DataCenterID, cfg.Generator.WorkerID),
		slog.Bool("quota", limiter != nil),
	)

	err = xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger), xrun.WithName("xsnow")}, services...)
	if errors.Is(err, xrun.ErrSignal) {
		logger.Info(ctx, "xsnow stopped", xlog.Err(err))
		return nil
	}
	return err
}

// probeLimiter 启动时探测配额后端。不可达只记录告警，运行期按降级策略处理。
func probeLimiter(ctx context.Context, logger xlog.Logger, limiter *xlimit.Limiter) {
	err := xretry.Do(ctx, func() error { return limiter.Ping(ctx) },
		xretry.Attempts(3),
		xretry.Delay(200*time.Millisecond),
		xretry.DelayType(xretry.FixedDelay),
		xretry.OnRetry(func(n uint, err error) {
			logger.Debug(ctx, "quota backend ping failed", xlog.Count(int64(n)+1), xlog.Err(err))
		}),
	)
	if err != nil {
		logger.Warn(ctx, "quota backend unreachable, relying on fallback",
			slog.String("backend", limiter.Backend()),
			xlog.Err(err),
		)
	}
}

// reloadLogLevel 返回配置热重载回调。
// 只有 log.level 在运行中生效；生成器参数变更需要重启，避免同一进程内出现两套位布局。
func reloadLogLevel(logger xlog.LoggerWithLevel) xconf.WatchCallback {
	return func(src xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed", xlog.Err(err))
			return
		}
		cfg, err := appconf.Decode(src)
		if err != nil {
			logger.Warn(ctx, "reloaded config rejected", xlog.Err(err))
			return
		}
		level, err := xlog.ParseLevel(cfg.Log.Level)
		if err != nil {
			logger.Warn(ctx, "reloaded log level rejected", xlog.Err(err))
			return
		}
		if level != logger.GetLevel() {
			logger.Info(ctx, "log level changed",
				slog.String("from", logger.GetLevel().String()),
				slog.String("to", level.String()),
			)
			logger.SetLevel(level)
		}
	}
}
