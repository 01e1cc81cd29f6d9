package xrotate

import "io"

// Rotator 日志轮转器。
// 实现 [io.WriteCloser]，可直接作为 xlog 的输出目标。
type Rotator interface {
	io.WriteCloser

	// Rotate 手动触发轮转：关闭当前文件，重命名为备份，创建新文件。
	Rotate() error
}
