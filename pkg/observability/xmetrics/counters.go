package xmetrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// CounterSpec 描述一个由回调读取的单调计数器。
type CounterSpec struct {
	Name        string
	Description string
	// Read 在每次采集时调用，必须并发安全且返回单调不减的值。
	Read func() int64
}

// RegisterCounters 将 specs 注册为 observable counter。
//
// provider 为 nil 时使用全局 MeterProvider。attrs 附加到每个观测值上，
// 用于区分同进程内的多个实例。返回的 Registration 用于注销回调。
func RegisterCounters(provider metric.MeterProvider, attrs []Attr, specs ...CounterSpec) (metric.Registration, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(defaultInstrumentationName)

	counters := make([]metric.Int64ObservableCounter, 0, len(specs))
	observables := make([]metric.Observable, 0, len(specs))
	for _, spec := range specs {
		c, err := meter.Int64ObservableCounter(spec.Name,
			metric.WithDescription(spec.Description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCreateCounter, spec.Name, err)
		}
		counters = append(counters, c)
		observables = append(observables, c)
	}

	opt := metric.WithAttributes(attrsToOTel(attrs)...)
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for i, spec := range specs {
			o.ObserveInt64(counters[i], spec.Read(), opt)
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegisterCallback, err)
	}
	return reg, nil
}
