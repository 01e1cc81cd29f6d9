package idserver

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
	"github.com/omeyang/xsnow/pkg/util/xid"
	"github.com/omeyang/xsnow/pkg/util/xjson"
	"github.com/omeyang/xsnow/pkg/util/xsnowflake"
)

// 错误码，与 HTTP 状态码一起返回，便于客户端区分同为 503 的不同原因。
const (
	CodeInvalidCount  = "invalid_count"
	CodeInvalidID     = "invalid_id"
	CodeClock         = "clock_unavailable"
	CodeOverTimeLimit = "time_limit_exceeded"
	CodeBreakerOpen   = "breaker_open"
	CodeMetricsOff    = "metrics_disabled"
	CodeRateLimited   = "rate_limited"
	CodeQuotaDown     = "quota_unavailable"
	CodeInternal      = "internal"
)

// errInvalidCount count 参数无法解析或超出 [1, max_batch]。
var errInvalidCount = errors.New("idserver: invalid count")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify 把生成器错误映射为状态码、错误码和建议的重试等待。
func (s *Server) classify(err error) (status int, code string, retryAfter time.Duration) {
	switch {
	case errors.Is(err, errInvalidCount), errors.Is(err, xsnowflake.ErrInvalidCount):
		return http.StatusBadRequest, CodeInvalidCount, 0
	case errors.Is(err, xid.ErrInvalidID):
		return http.StatusBadRequest, CodeInvalidID, 0
	case xbreaker.IsOpen(err), xbreaker.IsTooManyRequests(err):
		return http.StatusServiceUnavailable, CodeBreakerOpen, s.breakerTimeout()
	case errors.Is(err, xid.ErrClockBackwardTimeout), xsnowflake.IsClockError(err):
		return http.StatusServiceUnavailable, CodeClock, s.gen.MaxWaitDuration()
	case errors.Is(err, xsnowflake.ErrOverTimeLimit):
		// 不可恢复，但仍属服务端不可用，由运维更换 epoch 或布局
		return http.StatusServiceUnavailable, CodeOverTimeLimit, 0
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeClock, s.gen.MaxWaitDuration()
	default:
		return http.StatusInternalServerError, CodeInternal, 0
	}
}

func (s *Server) breakerTimeout() time.Duration {
	if b := s.gen.Breaker(); b != nil {
		return b.Timeout()
	}
	return 0
}

// writeError 写入错误响应。Retry-After 向上取整到秒，最小 1。
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, retryAfter := s.classify(err)
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn(r.Context(), "request failed",
			xlog.Path(r.URL.Path),
			xlog.StatusCode(status),
			xlog.Err(err),
		)
	}
	s.writeJSON(w, r, status, errorBody{Error: err.Error(), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := xjson.Encode(w, v, false); err != nil {
		s.logger.Error(r.Context(), "write response failed", xlog.Path(r.URL.Path), xlog.Err(err))
	}
}
