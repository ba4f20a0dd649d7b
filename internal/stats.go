package internal

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats records daemon-wide statistics about metrics.
type Stats interface {
	NoteBucketDropped(metricID int64)
}

// PrometheusStats exports statistics as prometheus counters.
type PrometheusStats struct {
	bucketsDropped *prometheus.CounterVec
}

func NewPrometheusStats(reg prometheus.Registerer) (*PrometheusStats, error) {
	bucketsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statsd",
		Subsystem: "metric",
		Name:      "buckets_dropped_total",
		Help:      "Number of times a metric's stored data was dropped without being reported.",
	}, []string{"metric_id"})

	if err := reg.Register(bucketsDropped); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register buckets dropped counter: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("register buckets dropped counter: %w", err)
		}
		bucketsDropped = existing
	}

	return &PrometheusStats{bucketsDropped: bucketsDropped}, nil
}

func (s *PrometheusStats) NoteBucketDropped(metricID int64) {
	s.bucketsDropped.WithLabelValues(strconv.FormatInt(metricID, 10)).Inc()
}

var (
	defaultStatsOnce sync.Once
	defaultStats     Stats
)

// DefaultStats returns stats registered with the default prometheus registerer.
func DefaultStats() Stats {
	defaultStatsOnce.Do(func() {
		s, err := NewPrometheusStats(prometheus.DefaultRegisterer)
		if err != nil {
			defaultStats = nopStats{}
			return
		}
		defaultStats = s
	})
	return defaultStats
}

type nopStats struct{}

func (nopStats) NoteBucketDropped(int64) {}
