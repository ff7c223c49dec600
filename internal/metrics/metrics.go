// Package metrics 定义习惯分析相关的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Computations 统计分析计算次数
	// Labels: operation (streak, stats, analytics, trends, recovery, insights)
	Computations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifetrack",
			Subsystem: "analytics",
			Name:      "computations_total",
			Help:      "Total number of habit analytics computations",
		},
		[]string{"operation"},
	)

	// ComputationDuration 记录从加载数据到得出结果的耗时
	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lifetrack",
			Subsystem: "analytics",
			Name:      "computation_duration_seconds",
			Help:      "Duration of habit analytics computations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// WriteBacks 统计缓存计数写回结果
	// Labels: result (ok, conflict, error)
	WriteBacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lifetrack",
			Subsystem: "habits",
			Name:      "counter_writebacks_total",
			Help:      "Total number of streak counter write-backs by result",
		},
		[]string{"result"},
	)

	// InsightSkips 统计生成洞察时被跳过的习惯
	InsightSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lifetrack",
			Subsystem: "analytics",
			Name:      "insight_habits_skipped_total",
			Help:      "Habits skipped during insight aggregation because their analytics failed",
		},
	)
)

// ObserveComputation 记录一次计算及其耗时
func ObserveComputation(operation string, started time.Time) {
	Computations.WithLabelValues(operation).Inc()
	ComputationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
