// Package xsnowflake 提供单调递增、结构化的分布式 64 位 ID 生成器（Snowflake 变体）。
//
// # ID 结构
//
// 每个 ID 是一个非负 int64，从高位到低位依次为：
//
//	[1 bit 符号位 0][时间戳 - epoch][数据中心 ID][机器 ID][序列号]
//
// 三个标识字段的位宽可配置，但每个至少 1 位，且三者之和必须在 [19, 22] 之间。
// 默认划分为 5/5/12，时间戳字段 41 位，以 2019-01-01 为起点约可使用 69 年。
//
// # 基本用法
//
//	cfg := xsnowflake.DefaultConfig()
//	cfg.DataCenterID = 1
//	cfg.WorkerID = 2
//
//	gen, err := xsnowflake.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	id, err := gen.NextID()
//	ids, err := gen.NextIDs(1000)
//
//	c := gen.Decompose(id) // c.Time, c.DataCenterID, c.WorkerID, c.Sequence
//
// # 并发与唯一性
//
// 生成器内部只有一把互斥锁，保护 (sequence, lastTimestamp) 这一对状态。
// 每次发号读取时钟、判定、拼装都在锁内完成，因此同一实例发出的 ID 严格递增。
// 不同 (DataCenterID, WorkerID) 的实例在任何时刻都不会产生相同 ID，
// 前提是部署方保证同一对标识只分配给一个存活实例。
//
// 同一毫秒内序列号用尽时，生成器持锁等待时钟进入下一毫秒。等待循环每轮
// 都会调用 runtime.Gosched 让出处理器。可通过 [WithMaxSpin] 设置等待上限，
// 超时返回 [ErrClockStalled]。
//
// # 时钟回拨
//
// 读到的时间早于上次发号时间时，立即返回 [*ClockRollbackError]，
// 不修改状态也不发号。生成器不做自动修正：是否重试由调用方决定，
// 上层的 xid 包提供了带超时的重试封装。
//
// # 生命周期
//
// 本包不提供全局单例。在进程启动时构造一个 [Generator]，
// 通过参数注入给需要发号的组件。测试中可以用 [WithClock] 注入确定性时钟。
package xsnowflake
