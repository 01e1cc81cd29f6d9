package idserver

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/omeyang/xsnow/internal/appconf"
	"github.com/omeyang/xsnow/pkg/observability/xlog"
	"github.com/omeyang/xsnow/pkg/observability/xmetrics"
	"github.com/omeyang/xsnow/pkg/resilience/xlimit"
	"github.com/omeyang/xsnow/pkg/util/xid"
)

// ErrInvalidMaxBatch 表示 ServerConfig.MaxBatch 非正。
var ErrInvalidMaxBatch = errors.New("idserver: max_batch must be positive")

// Server HTTP 发号服务。
type Server struct {
	gen        *xid.Generator
	cfg        appconf.ServerConfig
	logger     xlog.Logger
	observer   xmetrics.Observer
	reader     *sdkmetric.ManualReader
	propagator propagation.TextMapPropagator
	limiter    *xlimit.Limiter
	handler    http.Handler
}

// Option 服务选项。
type Option func(*Server)

// WithLogger 设置访问日志和错误日志，nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver 设置请求观测器，nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(s *Server) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithMetricsReader 启用 /debug/metrics，从 reader 读取指标快照。
func WithMetricsReader(reader *sdkmetric.ManualReader) Option {
	return func(s *Server) {
		s.reader = reader
	}
}

// WithPropagator 设置上游追踪上下文的提取方式，默认 W3C TraceContext。
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(s *Server) {
		if p != nil {
			s.propagator = p
		}
	}
}

// WithLimiter 为 GET /v1/ids 启用按客户端的 ID 配额，一次请求消耗 count 个令牌。
// nil 表示不限流。
func WithLimiter(l *xlimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// New 创建发号服务。
func New(gen *xid.Generator, cfg appconf.ServerConfig, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, xid.ErrNilGenerator
	}
	if cfg.MaxBatch <= 0 {
		return nil, ErrInvalidMaxBatch
	}

	s := &Server{
		gen:        gen,
		cfg:        cfg,
		logger:     xlog.Discard(),
		observer:   xmetrics.NoopObserver{},
		propagator: propagation.TraceContext{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /v1/ids", s.limit(http.HandlerFunc(s.handleIDs)))
	mux.HandleFunc("GET /v1/ids/{id}", s.handleDecode)
	mux.HandleFunc("GET /v1/layout", s.handleLayout)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /debug/metrics", s.handleMetrics)
	s.handler = s.middleware(mux)
	return s, nil
}

// Handler 返回带中间件的根 handler。
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPServer 按 ServerConfig 构建 *http.Server，交给 xrun.HTTPServer 托管。
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
}
