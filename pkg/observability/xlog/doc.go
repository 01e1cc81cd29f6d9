// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString(cfg.Level).
//		SetFormat("json").
//		SetRotation("/var/log/xsnow/xsnow.log", xrotate.WithMaxSize(100)).
//		SetAttrs(slog.String("service", "xsnow")).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// Builder 为 first-error-wins：第一个配置错误在 Build 时返回。
//
// # 追踪注入
//
// 默认启用 [EnrichHandler]：ctx 中携带有效 OpenTelemetry span 时，
// 自动注入 trace_id 和 span_id。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]，SetLevel 运行时生效，
// 配置热重载时直接调整，无需重建 Logger。
// With/WithGroup 派生的 logger 共享同一个 LevelVar。
//
// # 便捷属性
//
// [Err]、[Duration]、[Component]、[Operation]、[Count]、[StatusCode]、[Method]、[Path]，
// 以及 ID 相关的 [ID]、[Engine]、[Node]。
package xlog
