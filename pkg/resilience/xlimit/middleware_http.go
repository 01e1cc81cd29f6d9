package xlimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

// HeaderClientID 默认的客户端标识头
const HeaderClientID = "X-Client-ID"

// KeyFunc 从请求提取限流 key
type KeyFunc func(r *http.Request) string

// CostFunc 计算请求消耗的令牌数
type CostFunc func(r *http.Request) int

// DenyFunc 处理被拒绝的请求。err 非 nil 表示检查本身失败（如 ErrBackendUnavailable）。
type DenyFunc func(w http.ResponseWriter, r *http.Request, res *Result, err error)

type middlewareOptions struct {
	key  KeyFunc
	cost CostFunc
	deny DenyFunc
}

// MiddlewareOption 中间件选项
type MiddlewareOption func(*middlewareOptions)

// WithKeyFunc 设置 key 提取函数
func WithKeyFunc(f KeyFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if f != nil {
			o.key = f
		}
	}
}

// WithCostFunc 设置令牌消耗函数，默认每个请求消耗 1
func WithCostFunc(f CostFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if f != nil {
			o.cost = f
		}
	}
}

// WithDenyFunc 设置拒绝处理函数，默认返回纯文本 429/503
func WithDenyFunc(f DenyFunc) MiddlewareOption {
	return func(o *middlewareOptions) {
		if f != nil {
			o.deny = f
		}
	}
}

// ClientKey 默认 key：优先 X-Client-ID，否则取对端 IP。
func ClientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderClientID)); id != "" {
		return "client:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func defaultDeny(w http.ResponseWriter, _ *http.Request, _ *Result, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, ErrRateLimited.Error(), http.StatusTooManyRequests)
}

// HTTPMiddleware 创建 HTTP 限流中间件。
//
//	limiter, _ := xlimit.NewLocal(xlimit.Quota{Limit: 1000, Window: time.Second})
//	mux.Handle("GET /v1/ids", xlimit.HTTPMiddleware(limiter)(idsHandler))
//
// 设计决策: 成本无效（ErrInvalidCost、ErrCostExceedsBurst）时直接放行，
// 由下游 handler 给出参数错误；降级为 FallbackClose 时交给 DenyFunc。
func HTTPMiddleware(l *Limiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	mo := &middlewareOptions{
		key:  ClientKey,
		cost: func(*http.Request) int { return 1 },
		deny: defaultDeny,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(mo)
		}
	}

	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.AllowN(r.Context(), mo.key(r), mo.cost(r))
			switch {
			case errors.Is(err, ErrInvalidCost), errors.Is(err, ErrCostExceedsBurst):
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrBackendUnavailable):
				mo.deny(w, r, nil, err)
			case err != nil:
				// 其他错误（ctx 取消等）不阻塞请求
				next.ServeHTTP(w, r)
			case !res.Allowed:
				res.SetHeaders(w)
				mo.deny(w, r, res, nil)
			default:
				res.SetHeaders(w)
				next.ServeHTTP(w, r)
			}
		})
	}
}
