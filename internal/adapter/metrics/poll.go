package metrics

import "github.com/prometheus/client_golang/prometheus"

// Response outcome labels.
const (
	ResultAccepted   = "accepted"
	ResultDuplicate  = "duplicate"
	ResultNotPending = "not_pending"
	ResultBadIndex   = "bad_index"
	ResultError      = "error"
)

// PollMetrics tracks the poll lifecycle.
type PollMetrics struct {
	Created        prometheus.Counter
	Responses      *prometheus.CounterVec
	Closed         prometheus.Counter
	Deleted        prometheus.Counter
	Exported       prometheus.Counter
	ArchiveErrors  prometheus.Counter
	Purged         prometheus.Counter
	UpdateDuration prometheus.Histogram
}

func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_created_total",
			Help:      "Total number of polls opened.",
		}),
		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_responses_total",
			Help:      "Total number of poll responses, by result.",
		}, []string{"result"}),
		Closed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_closed_total",
			Help:      "Total number of polls closed.",
		}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_deleted_total",
			Help:      "Total number of polls deleted.",
		}),
		Exported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_results_exported_total",
			Help:      "Total number of result exports served.",
		}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_archive_errors_total",
			Help:      "Total number of failed result archive writes.",
		}),
		Purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_purged_total",
			Help:      "Total number of expired polls removed by the cleanup ticker.",
		}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_update_duration_seconds",
			Help:      "Duration of poll store updates in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.Created, m.Responses, m.Closed, m.Deleted, m.Exported, m.ArchiveErrors, m.Purged, m.UpdateDuration)
	return m
}
