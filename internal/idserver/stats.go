package idserver

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/observability/xmetrics"
	"github.com/omeyang/xsnow/pkg/util/xid"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// ErrStatsUnavailable 当前引擎不提供运行统计（sonyflake）。
var ErrStatsUnavailable = errors.New("idserver: engine does not report stats")

func (s *Server) stats() (xsnowflake.Stats, bool) {
	r, ok := s.gen.Source().(xid.StatsReporter)
	if !ok {
		return xsnowflake.Stats{}, false
	}
	return r.Stats(), true
}

// RegisterMetrics 把生成器统计注册为 observable counter。
// provider 为 nil 时使用全局 MeterProvider；引擎不支持统计时返回 ErrStatsUnavailable。
func (s *Server) RegisterMetrics(provider metric.MeterProvider) (metric.Registration, error) {
	r, ok := s.gen.Source().(xid.StatsReporter)
	if !ok {
		return nil, ErrStatsUnavailable
	}
	info := s.gen.Source().Describe()
	attrs := xmetrics.Node(info.DataCenterID, info.WorkerID)
	read := func(f func(xsnowflake.Stats) uint64) func() int64 {
		return func() int64 {
			return int64(f(r.Stats())) //nolint:gosec // 计数器实际不可能超过 int64
		}
	}
	return xmetrics.RegisterCounters(provider, attrs,
		xmetrics.CounterSpec{
			Name:        "xsnow.generator.issued",
			Description: "IDs issued, batches included",
			Read:        read(func(st xsnowflake.Stats) uint64 { return st.Issued }),
		},
		xmetrics.CounterSpec{
			Name:        "xsnow.generator.batches",
			Description: "Completed batch generations",
			Read:        read(func(st xsnowflake.Stats) uint64 { return st.Batches }),
		},
		xmetrics.CounterSpec{
			Name:        "xsnow.generator.rollbacks",
			Description: "Clock rollbacks detected",
			Read:        read(func(st xsnowflake.Stats) uint64 { return st.Rollbacks }),
		},
		xmetrics.CounterSpec{
			Name:        "xsnow.generator.exhaustions",
			Description: "Sequence exhaustions that waited for the next millisecond",
			Read:        read(func(st xsnowflake.Stats) uint64 { return st.Exhaustions }),
		},
		xmetrics.CounterSpec{
			Name:        "xsnow.generator.stalls",
			Description: "Waits for the next millisecond that exceeded max spin",
			Read:        read(func(st xsnowflake.Stats) uint64 { return st.Stalls }),
		},
	)
}

// LogStats 输出一次生成器统计，签名匹配 xrun.Ticker。
// 引擎不支持统计时只记录 debug 日志。
func (s *Server) LogStats(ctx context.Context) error {
	st, ok := s.stats()
	if !ok {
		s.logger.Debug(ctx, "generator stats unavailable", xlog.Component(component))
		return nil
	}
	s.logger.Info(ctx, "generator stats",
		xlog.Component(component),
		slog.Uint64("issued", st.Issued),
		slog.Uint64("batches", st.Batches),
		slog.Uint64("rollbacks", st.Rollbacks),
		slog.Uint64("exhaustions", st.Exhaustions),
		slog.Uint64("stalls", st.Stalls),
	)
	return nil
}
