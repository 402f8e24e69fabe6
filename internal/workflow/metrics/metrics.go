package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow module.
// Tracks transition outcomes, checklist completions and action latency.
type Metrics struct {
	TransitionsCommitted *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
	RepeatSubmissions    prometheus.Counter
	ChecklistCompleted   prometheus.Counter
	SubmitDuration       prometheus.Histogram
	QueueListDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all workflow module metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "losflow_transitions_committed_total",
			Help: "Committed workflow transitions by destination status",
		}, []string{"to_status"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "losflow_transitions_rejected_total",
			Help: "Rejected workflow actions by reason code",
		}, []string{"reason"}),
		RepeatSubmissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losflow_repeat_submissions_total",
			Help: "Submissions acknowledged as already recorded",
		}),
		ChecklistCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "losflow_checklists_completed_total",
			Help: "Screening checklists that reached all checks recorded",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "losflow_submit_duration_seconds",
			Help:    "Duration of workflow submit operations (lock plus commit)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		QueueListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "losflow_queue_list_duration_seconds",
			Help:    "Duration of department queue listings",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCommitted records a committed transition into toStatus.
func (m *Metrics) IncrementCommitted(toStatus string) {
	m.TransitionsCommitted.WithLabelValues(toStatus).Inc()
}

// IncrementRejected records an action refused for the given reason code.
func (m *Metrics) IncrementRejected(reason string) {
	m.TransitionsRejected.WithLabelValues(reason).Inc()
}

// IncrementRepeatSubmission records a submission that was already on file.
func (m *Metrics) IncrementRepeatSubmission() {
	m.RepeatSubmissions.Inc()
}

// IncrementChecklistCompleted records a checklist reaching completion.
func (m *Metrics) IncrementChecklistCompleted() {
	m.ChecklistCompleted.Inc()
}

// ObserveSubmit records the duration of a submit operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSubmit(start time.Time) {
	m.SubmitDuration.Observe(time.Since(start).Seconds())
}

// ObserveQueueList records the duration of a queue listing.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQueueList(start time.Time) {
	m.QueueListDuration.Observe(time.Since(start).Seconds())
}
