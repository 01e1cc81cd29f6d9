// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xsnowflake: Snowflake 风格的 64 位有序 ID 生成器，可配置位布局、时钟回拨检测、批量生成
//   - xid: 分布式 ID 门面，统一 snowflake/sonyflake 引擎，带时钟回拨重试和熔断
//   - xjson: JSON 序列化工具，Pretty 格式化输出
//
// 设计原则：
//   - 不使用全局单例，生成器由调用方构造并注入
//   - 错误使用哨兵值，通过 errors.Is 判断
package util
