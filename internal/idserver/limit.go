package idserver

import (
	"net/http"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
)

// limit 包装发号 handler。count 非法时成本为 0，请求直接交给 handler 返回 400。
func (s *Server) limit(next http.Handler) http.Handler {
	return xlimit.HTTPMiddleware(s.limiter,
		xlimit.WithCostFunc(s.countCost),
		xlimit.WithDenyFunc(s.denyQuota),
	)(next)
}

func (s *Server) countCost(r *http.Request) int {
	n, err := s.parseCount(r)
	if err != nil {
		return 0
	}
	return n
}

// denyQuota 写入与其他错误一致的 JSON 错误体。限流响应头已由中间件写入。
func (s *Server) denyQuota(w http.ResponseWriter, r *http.Request, _ *xlimit.Result, err error) {
	if err != nil {
		s.logger.Warn(r.Context(), "quota check failed", xlog.Path(r.URL.Path), xlog.Err(err))
		s.writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: CodeQuotaDown})
		return
	}
	s.writeJSON(w, r, http.StatusTooManyRequests, errorBody{Error: xlimit.ErrRateLimited.Error(), Code: CodeRateLimited})
}
