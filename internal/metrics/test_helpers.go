package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// GetMetricValue retrieves the current value of a gauge or counter collector, or the sample count of a histogram,
// for the given set of labels. Intended for tests in other packages.
func GetMetricValue(metric prometheus.Collector, labels map[string]string) (float64, error) {
	var m prometheus.Metric
	switch v := metric.(type) {
	case *prometheus.GaugeVec:
		g, err := v.GetMetricWith(labels)
		if err != nil {
			return 0, err
		}
		m = g
	case *prometheus.CounterVec:
		c, err := v.GetMetricWith(labels)
		if err != nil {
			return 0, err
		}
		m = c
	case *prometheus.HistogramVec:
		o, err := v.GetMetricWith(labels)
		if err != nil {
			return 0, err
		}
		m = o.(prometheus.Metric)
	case prometheus.Metric:
		m = v
	default:
		return 0, fmt.Errorf("unsupported collector %T", metric)
	}

	pb := &dto.Metric{}
	if err := m.Write(pb); err != nil {
		return 0, err
	}

	switch {
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), nil
	case pb.Counter != nil:
		return pb.Counter.GetValue(), nil
	case pb.Histogram != nil:
		return float64(pb.Histogram.GetSampleCount()), nil
	}
	return 0, nil
}
