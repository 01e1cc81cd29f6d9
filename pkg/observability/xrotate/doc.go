// Package xrotate 提供日志文件轮转，供 xlog 作为输出目标使用。
//
// [NewLumberjack] 基于 lumberjack v2 按文件大小轮转，
// 备份按数量和天数清理，可选 gzip 压缩。
// 所有实现并发安全，Close 后的 Write/Rotate 返回 [ErrClosed]。
package xrotate
