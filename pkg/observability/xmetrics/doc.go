// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr，默认实现基于 OpenTelemetry。
//
//	obs, _ := xmetrics.NewOTelObserver(xmetrics.WithMeterProvider(mp))
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xid",
//		Operation: "next_id",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
// 操作指标（属性 component / operation / status）：
//   - xsnow.operation.total
//   - xsnow.operation.duration（秒）
//
// [RegisterCounters] 把进程内的单调计数器（如生成器 Stats）
// 暴露为 observable counter，采集时才读取。
package xmetrics
