// Package idserver 把 xid.Generator 暴露为 HTTP 发号服务。
//
// 路由：
//
//	GET /v1/ids?count=N   批量发号，ID 以十进制字符串返回（避免 JS 精度丢失）
//	GET /v1/ids/{id}      分解十进制 ID
//	GET /v1/layout        当前引擎的位布局
//	GET /healthz          熔断器打开时返回 503
//	GET /debug/metrics    ManualReader 的指标快照（需 WithMetricsReader）
//
// 时钟类错误、时间溢出和熔断拒绝映射为 503 并带 Retry-After，
// 参数错误映射为 400，其余为 500。错误响应体统一为 {"error": ..., "code": ...}。
//
// WithLimiter 为发号路由启用按客户端的配额，一次请求按 count 扣减，超额返回 429。
package idserver
