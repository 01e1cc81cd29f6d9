// Package appconf 定义 xsnow 服务和 xsnowctl 的配置文件结构，
// 并负责把配置装配成生成器、日志、限流器等运行时组件。
//
// 加载顺序：内置默认值 → 配置文件 → 环境变量
// （XSNOW_DATACENTER_ID、XSNOW_WORKER_ID、XSNOW_ENGINE、XSNOW_REDIS_ADDR）。
// 数据中心和机器 ID 由运维方分配，进程内不做任何协调。
package appconf
