// Package xid 是业务侧的 ID 生成入口：在可替换的发号引擎之上
// 提供时钟异常重试、熔断保护和字符串编解码。
//
// # 引擎
//
//   - snowflake：[xsnowflake] 毫秒级生成器，位宽可配置（默认 41/5/5/12）
//   - sonyflake：[sony/sonyflake/v2]，10ms 时间单位，39/8/16 固定布局
//
// 两种引擎都实现 [Source] 接口，可通过 [SnowflakeSource] 和
// [NewSonyflakeSource] 构造。
//
// # 快速开始
//
//	sf, err := xsnowflake.New(cfg)
//	if err != nil {
//	    return err
//	}
//	gen, err := xid.NewGenerator(xid.SnowflakeSource(sf))
//	if err != nil {
//	    return err
//	}
//
//	id, err := gen.NewWithRetry(ctx)        // int64
//	s, err := gen.NewStringWithRetry(ctx)   // base36，例如 "2kq1r0c3b4k0"
//	ids, err := gen.NewBatchWithRetry(ctx, 100)
//
// # 时钟回拨处理
//
// xsnowflake 检测到时钟回拨时不会自行等待，而是立即报错。
// WithRetry 系列方法对时钟类错误（回拨、停滞）按固定间隔重试，
// 默认最多等待 500ms，超时返回 [ErrClockBackwardTimeout]。
// 溢出（ErrOverTimeLimit）、参数错误、熔断器打开都不重试。
//
//	gen, err := xid.NewGenerator(src,
//	    xid.WithMaxWaitDuration(time.Second),
//	    xid.WithRetryInterval(5*time.Millisecond),
//	)
//
// # 熔断
//
// 时钟持续异常时，通过 [WithBreaker] 让请求快速失败，而不是都卡在等待窗口里：
//
//	b := xbreaker.NewBreaker("xsnow.generator",
//	    xbreaker.WithSuccessPolicy(xbreaker.FailOn(xsnowflake.IsClockError)),
//	)
//	gen, err := xid.NewGenerator(src, xid.WithBreaker(b))
//
// # 生命周期
//
// 本包不提供全局实例。在进程启动时构造 Generator 并注入给使用方。
// 所有方法都是并发安全的。
//
// [sony/sonyflake/v2]: https://github.com/sony/sonyflake
package xid
