package idserver

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var errMetricsDisabled = errors.New("idserver: metrics reader not configured")

// MetricSnapshot 单个指标的采集结果。
type MetricSnapshot struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Unit        string       `json:"unit,omitempty"`
	Points      []PointValue `json:"points"`
}

// PointValue 一个属性组合下的取值。Sum/Gauge 填 Value，Histogram 填 Count/Sum/Buckets。
type PointValue struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      *float64          `json:"value,omitempty"`
	Count      uint64            `json:"count,omitempty"`
	Sum        float64           `json:"sum,omitempty"`
	Bounds     []float64         `json:"bounds,omitempty"`
	Buckets    []uint64          `json:"buckets,omitempty"`
}

type metricsResponse struct {
	Metrics []MetricSnapshot `json:"metrics"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: errMetricsDisabled.Error(), Code: CodeMetricsOff})
		return
	}
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(r.Context(), &rm); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, metricsResponse{Metrics: snapshot(rm)})
}

func snapshot(rm metricdata.ResourceMetrics) []MetricSnapshot {
	out := make([]MetricSnapshot, 0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out = append(out, MetricSnapshot{
				Name:        m.Name,
				Description: m.Description,
				Unit:        m.Unit,
				Points:      points(m.Data),
			})
		}
	}
	return out
}

func points(data metricdata.Aggregation) []PointValue {
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		return scalarPoints(d.DataPoints)
	case metricdata.Sum[float64]:
		return scalarPoints(d.DataPoints)
	case metricdata.Gauge[int64]:
		return scalarPoints(d.DataPoints)
	case metricdata.Gauge[float64]:
		return scalarPoints(d.DataPoints)
	case metricdata.Histogram[float64]:
		return histogramPoints(d.DataPoints)
	case metricdata.Histogram[int64]:
		return histogramPoints(d.DataPoints)
	default:
		return nil
	}
}

func scalarPoints[N int64 | float64](dps []metricdata.DataPoint[N]) []PointValue {
	out := make([]PointValue, 0, len(dps))
	for _, dp := range dps {
		v := float64(dp.Value)
		out = append(out, PointValue{Attributes: attrMap(dp.Attributes), Value: &v})
	}
	return out
}

func histogramPoints[N int64 | float64](dps []metricdata.HistogramDataPoint[N]) []PointValue {
	out := make([]PointValue, 0, len(dps))
	for _, dp := range dps {
		out = append(out, PointValue{
			Attributes: attrMap(dp.Attributes),
			Count:      dp.Count,
			Sum:        float64(dp.Sum),
			Bounds:     dp.Bounds,
			Buckets:    dp.BucketCounts,
		})
	}
	return out
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}
	m := make(map[string]string, set.Len())
	for it := set.Iter(); it.Next(); {
		kv := it.Attribute()
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}
