// Package xlimit 提供按 key 的令牌桶限流，用于限制每个客户端的发号速率。
//
// 发号服务按 ID 数量而不是请求数计费：一次 count=500 的批量请求消耗 500 个令牌。
//
// # 后端
//
//   - [New]: Redis（redis_rate GCRA），所有实例共享同一份配额
//   - [NewLocal]: 进程内令牌桶，LRU 限定跟踪的 key 数量
//
// Redis 连接类错误按 [FallbackStrategy] 降级：local（默认）、open、close。
//
// # HTTP 中间件
//
//	limiter, _ := xlimit.New(rdb, xlimit.Quota{Limit: 10000, Burst: 20000, Window: time.Second})
//	h := xlimit.HTTPMiddleware(limiter,
//	    xlimit.WithCostFunc(func(r *http.Request) int { return batchSize(r) }),
//	)(idsHandler)
package xlimit
