// xsnowctl 是 xsnow 分布式 ID 生成器的命令行工具。
//
// 用法:
//
//	xsnowctl [全局选项] <命令> [命令参数]
//
// 全局选项（覆盖配置文件和环境变量）:
//
//	-c, --config       配置文件路径（yaml/json），为空时只用默认值和环境变量
//	--engine           发号引擎: snowflake | sonyflake
//	--epoch            纪元（Unix 毫秒）
//	--dc-bits          数据中心位宽
//	--worker-bits      机器位宽
//	--seq-bits         序列号位宽
//	--dc               数据中心 ID
//	--worker           机器 ID
//
// 命令:
//
//	gen [-n N] [--format dec|base36]   生成 ID，每行一个
//	decode <id>...                     分解十进制 ID，输出 JSON
//	layout                             输出当前位布局
//	serve                              启动 HTTP 发号服务
//
// 退出码:
//
//	0: 成功
//	1: 运行失败（时钟异常、服务启动失败等）
//	2: 参数或配置错误
//
// 示例:
//
//	xsnowctl gen -n 5
//	xsnowctl --dc 3 --worker 7 gen --format base36
//	xsnowctl decode 1234567890123456789
//	xsnowctl -c /etc/xsnow/config.yaml serve
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// serve 的信号处理由 xrun 负责
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// createApp 创建 CLI 应用。
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xsnowctl",
		Usage:     "xsnow 分布式 ID 生成器命令行工具",
		Version:   fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Commands:  createCommands(),
		Authors: []any{
			"XSnow Team",
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			var ec cli.ExitCoder
			if errors.As(err, &ec) {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)

	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		if isCLIUsageError(err) {
			// flag 解析器已向 stderr 输出错误详情
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
