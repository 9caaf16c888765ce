package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tutorchat"

// Chat holds the hub's collectors. Build it against a dedicated registry in
// tests so instances never collide.
type Chat struct {
	Connections        prometheus.Gauge
	IdentifiedUsers    prometheus.Gauge
	WaitingStudents    prometheus.Gauge
	WaitingTutors      prometheus.Gauge
	ActiveRooms        prometheus.Gauge
	Matches            prometheus.Counter
	Messages           prometheus.Counter
	TranscriptFailures prometheus.Counter
	Rejections         *prometheus.CounterVec
	Removals           *prometheus.CounterVec
	SweepDuration      prometheus.Histogram
}

func NewChat(reg prometheus.Registerer) *Chat {
	f := promauto.With(reg)
	return &Chat{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open chat transport connections.",
		}),
		IdentifiedUsers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identified_users",
			Help:      "Connections registered in the presence registry.",
		}),
		WaitingStudents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_students",
			Help:      "Students waiting for a tutor.",
		}),
		WaitingTutors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_tutors",
			Help:      "Tutors waiting for a student.",
		}),
		ActiveRooms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Open two-party rooms.",
		}),
		Matches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Tutor/student pairs matched into a room.",
		}),
		Messages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages relayed within rooms.",
		}),
		TranscriptFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_failures_total",
			Help:      "Chat messages relayed without being persisted.",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Identify attempts rejected, by reason.",
		}, []string{"reason"}),
		Removals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removals_total",
			Help:      "Connections torn down, by reason.",
		}, []string{"reason"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "liveness_sweep_duration_seconds",
			Help:      "Time spent in one liveness sweep.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}
