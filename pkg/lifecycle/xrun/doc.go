// Package xrun 提供进程生命周期管理：并发运行多个服务、监听信号、协调优雅关闭。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//		xrun.Service{Name: "http", Run: xrun.HTTPServer(srv, 10*time.Second)},
//		xrun.Service{Name: "config-watch", Run: watcher.Run},
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常退出
//	}
//
// 基于 errgroup：任一服务返回错误即取消其余服务，Wait 返回首个错误。
// 收到 SIGHUP/SIGINT/SIGTERM/SIGQUIT 时以 *SignalError 作为退出原因。
package xrun
