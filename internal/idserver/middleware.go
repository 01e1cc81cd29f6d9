package idserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/observability/xmetrics"
)

// HeaderRequestID 请求 ID 头，缺失时由服务端生成并回写。
const HeaderRequestID = "X-Request-ID"

const component = "idserver"

// statusRecorder 记录 handler 写出的状态码。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// middleware 依次完成：请求 ID、上游追踪上下文提取、观测跨度、访问日志。
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := s.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := xmetrics.Start(ctx, s.observer, xmetrics.SpanOptions{
			Component: component,
			Operation: r.Method + " " + routeOf(r),
			Kind:      xmetrics.KindServer,
			Attrs:     xmetrics.HTTPRequest(r.Method, routeOf(r)),
		})

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		result := xmetrics.Result{Attrs: []xmetrics.Attr{xmetrics.HTTPStatus(rec.status)}}
		if rec.status >= http.StatusInternalServerError {
			result.Status = xmetrics.StatusError
		}
		span.End(result)

		s.logger.Info(ctx, "http request",
			xlog.Method(r.Method),
			xlog.Path(r.URL.Path),
			xlog.StatusCode(rec.status),
			xlog.Duration(time.Since(start)),
			slog.String("request_id", requestID),
		)
	})
}

// routeOf 返回低基数的路由名，避免把 ID 写进指标标签。
func routeOf(r *http.Request) string {
	if strings.HasPrefix(r.URL.Path, "/v1/ids/") {
		return "/v1/ids/{id}"
	}
	return r.URL.Path
}
