// Package xjson 提供 JSON 输出工具函数。
//
//   - [Pretty]: 缩进 JSON 字符串，失败时返回标记字符串，便于在日志中识别
//   - [Encode]: 写入 io.Writer，HTTP 响应和命令行输出共用，失败时返回 [ErrMarshal]
package xjson
