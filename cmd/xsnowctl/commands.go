package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xsnow/internal/appconf"
	"github.com/omeyang/xsnow/pkg/config/xconf"
	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/util/xid"
	"github.com/omeyang/xsnow/pkg/util/xjson"
)

// exitError 表示需要非零退出码但已完成输出的场景。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数或配置错误，退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// cliUsageMessages urfave/cli 和 flag 包对参数错误使用的消息前缀。
var cliUsageMessages = []string{
	"flag provided but not defined",
	"flag needs an argument",
	"invalid value",
	"invalid boolean",
	"Required flag",
	"No help topic for",
}

// isCLIUsageError 判断 err 是否为 CLI 框架产生的参数错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, m := range cliUsageMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// 输出格式
const (
	formatDecimal = "dec"
	formatBase36  = "base36"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "配置文件路径（yaml/json）",
			Sources: cli.EnvVars("XSNOW_CONFIG"),
		},
		&cli.StringFlag{Name: "engine", Usage: "发号引擎: snowflake | sonyflake"},
		&cli.Int64Flag{Name: "epoch", Usage: "纪元（Unix 毫秒）"},
		&cli.IntFlag{Name: "dc-bits", Usage: "数据中心位宽"},
		&cli.IntFlag{Name: "worker-bits", Usage: "机器位宽"},
		&cli.IntFlag{Name: "seq-bits", Usage: "序列号位宽"},
		&cli.Int64Flag{Name: "dc", Usage: "数据中心 ID"},
		&cli.Int64Flag{Name: "worker", Usage: "机器 ID"},
	}
}

// createCommands 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createGenCommand(),
		createDecodeCommand(),
		createLayoutCommand(),
		createServeCommand(),
	}
}

func createGenCommand() *cli.Command {
	return &cli.Command{
		Name:    "gen",
		Aliases: []string{"g"},
		Usage:   "生成 ID，每行一个",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "生成数量",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "输出格式: dec | base36",
				Value: formatDecimal,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdGen(ctx, cmd, cmd.Int("count"), cmd.String("format"))
		},
	}
}

func createDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Aliases:   []string{"d"},
		Usage:     "分解 ID，输出 JSON",
		ArgsUsage: "<id>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "base36", Usage: "按 base36 解析输入"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdDecode(cmd, cmd.Args().Slice(), cmd.Bool("base36"))
		},
	}
}

func createLayoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "输出当前位布局",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return cmdLayout(cmd)
		},
	}
}

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动 HTTP 发号服务",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdServe(ctx, cmd)
		},
	}
}

// loadConfig 加载配置并应用全局 flag 覆盖。
// 优先级：flag > 环境变量 > 配置文件 > 内置默认值。
func loadConfig(cmd *cli.Command) (xconf.Config, *appconf.Config, error) {
	src, cfg, err := appconf.Load(cmd.String("config"), nil)
	if err != nil {
		return nil, nil, &usageError{err: err}
	}

	g := &cfg.Generator
	if cmd.IsSet("engine") {
		g.Engine = cmd.String("engine")
	}
	if cmd.IsSet("epoch") {
		g.EpochMillis = cmd.Int64("epoch")
	}
	if cmd.IsSet("dc-bits") {
		g.DataCenterBits = cmd.Int("dc-bits")
	}
	if cmd.IsSet("worker-bits") {
		g.WorkerBits = cmd.Int("worker-bits")
	}
	if cmd.IsSet("seq-bits") {
		g.SequenceBits = cmd.Int("seq-bits")
	}
	if cmd.IsSet("dc") {
		g.DataCenterID = cmd.Int64("dc")
	}
	if cmd.IsSet("worker") {
		g.WorkerID = cmd.Int64("worker")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, &usageError{err: err}
	}
	return src, cfg, nil
}

// newGenerator 为一次性命令构建生成器，不输出日志。
func newGenerator(cmd *cli.Command) (*xid.Generator, error) {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cfg.NewGenerator(xlog.Discard())
}

func cmdGen(ctx context.Context, cmd *cli.Command, count int, format string) error {
	if count < 1 || count > appconf.MaxBatchLimit {
		return usagef("--count must be in [1, %d], got %d", appconf.MaxBatchLimit, count)
	}
	if format != formatDecimal && format != formatBase36 {
		return usagef("--format must be %s or %s, got %q", formatDecimal, formatBase36, format)
	}

	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}
	ids, err := gen.NewBatchWithRetry(ctx, count)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.Root().Writer)
	for _, id := range ids {
		if format == formatBase36 {
			_, err = fmt.Fprintln(w, xid.Format(id))
		} else {
			_, err = fmt.Fprintln(w, strconv.FormatInt(id, 10))
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

func cmdDecode(cmd *cli.Command, args []string, base36 bool) error {
	if len(args) == 0 {
		return usagef("decode requires at least one id")
	}
	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}

	parse := xid.ParseDecimal
	if base36 {
		parse = xid.Parse
	}

	out := make([]xid.Parts, 0, len(args))
	for _, arg := range args {
		id, err := parse(arg)
		if err != nil {
			return &usageError{err: err}
		}
		p, err := gen.Decompose(id)
		if err != nil {
			if errors.Is(err, xid.ErrInvalidID) {
				return &usageError{err: err}
			}
			return err
		}
		out = append(out, p)
	}

	if len(out) == 1 {
		return xjson.Encode(cmd.Root().Writer, out[0], true)
	}
	return xjson.Encode(cmd.Root().Writer, out, true)
}

func cmdLayout(cmd *cli.Command) error {
	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}
	return xjson.Encode(cmd.Root().Writer, gen.Source().Describe(), true)
}
