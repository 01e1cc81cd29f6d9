package xlog

import (
	"log/slog"
	"strconv"
	"time"
)

// 常用属性 Key
const (
	KeyError      = "error"
	KeyDuration   = "duration"
	KeyCount      = "count"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatusCode = "status_code"
	KeyComponent  = "component"
	KeyOperation  = "operation"

	// ID 生成相关
	KeyID           = "id"
	KeyEngine       = "engine"
	KeyDataCenterID = "datacenter_id"
	KeyWorkerID     = "worker_id"
)

// Err 创建错误属性。err 为 nil 时返回空属性（被 slog 忽略）。
//
//	if err != nil {
//	    logger.Error(ctx, "generate failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性，输出人类可读格式（如 "1.5ms"）。
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// StatusCode 创建 HTTP 状态码属性
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Method 创建 HTTP 方法属性
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Path 创建请求路径属性
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// ID 创建 ID 属性。int64 ID 超出 JavaScript 安全整数范围，以十进制字符串输出。
func ID(id int64) slog.Attr {
	return slog.String(KeyID, strconv.FormatInt(id, 10))
}

// Engine 创建 ID 引擎名属性
func Engine(name string) slog.Attr {
	return slog.String(KeyEngine, name)
}

// Node 创建节点属性组：datacenter_id + worker_id
func Node(dataCenterID, workerID int64) slog.Attr {
	return slog.Group("node",
		slog.Int64(KeyDataCenterID, dataCenterID),
		slog.Int64(KeyWorkerID, workerID),
	)
}
