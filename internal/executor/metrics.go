package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports lane activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	submittedTotal *prometheus.CounterVec
	completedTotal *prometheus.CounterVec
	queueDepth     *prometheus.GaugeVec
	taskDuration   *prometheus.HistogramVec
}

// NewMetrics creates the lane metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosts_sync",
			Subsystem: "lane",
			Name:      "tasks_submitted_total",
			Help:      "Tasks submitted to a background lane.",
		}, []string{"lane"}),
		completedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hosts_sync",
			Subsystem: "lane",
			Name:      "tasks_completed_total",
			Help:      "Tasks that finished running on a background lane.",
		}, []string{"lane"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hosts_sync",
			Subsystem: "lane",
			Name:      "queue_depth",
			Help:      "Tasks waiting on a background lane.",
		}, []string{"lane"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hosts_sync",
			Subsystem: "lane",
			Name:      "task_duration_seconds",
			Help:      "Time spent running a lane task.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lane"}),
	}

	reg.MustRegister(m.submittedTotal, m.completedTotal, m.queueDepth, m.taskDuration)

	return m
}

func (m *Metrics) completed(lane string, depth int, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.completedTotal.WithLabelValues(lane).Inc()
	m.queueDepth.WithLabelValues(lane).Set(float64(depth))
	m.taskDuration.WithLabelValues(lane).Observe(elapsed.Seconds())
}

func (m *Metrics) submitted(lane string, depth int) {
	if m == nil {
		return
	}

	m.submittedTotal.WithLabelValues(lane).Inc()
	m.queueDepth.WithLabelValues(lane).Set(float64(depth))
}
