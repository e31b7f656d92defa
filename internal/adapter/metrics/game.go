package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics covers vote intake, reveals and the expiry sweep.
type GameMetrics struct {
	VotesTotal     *prometheus.CounterVec
	PostsCreated   prometheus.Counter
	RevealsTotal   *prometheus.CounterVec
	RevealDuration prometheus.Histogram
	LiarScores     prometheus.Histogram
	SweepRuns      *prometheus.CounterVec
	SweepFailures  prometheus.Counter
}

func NewGameMetrics(reg prometheus.Registerer) *GameMetrics {
	m := &GameMetrics{
		VotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote attempts, by result.",
		}, []string{"result"}),
		PostsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_created_total",
			Help:      "Posts that received statements.",
		}),
		RevealsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveals_total",
			Help:      "Reveal attempts, by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		RevealDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reveal_duration_seconds",
			Help:      "Time spent revealing and scoring one post.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		LiarScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "liar_score",
			Help:      "Liar score awarded per revealed post.",
			Buckets:   []float64{0, 25, 50, 100, 150, 200, 300, 450},
		}),
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Expiry sweep runs, by result.",
		}, []string{"result"}),
		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "reveal_failures_total",
			Help:      "Posts whose forced reveal failed and stay open for the next sweep.",
		}),
	}

	reg.MustRegister(m.VotesTotal, m.PostsCreated, m.RevealsTotal, m.RevealDuration, m.LiarScores, m.SweepRuns, m.SweepFailures)
	return m
}

func (m *GameMetrics) VoteResult(result string) {
	m.VotesTotal.WithLabelValues(result).Inc()
}

func (m *GameMetrics) PostCreated() {
	m.PostsCreated.Inc()
}

func (m *GameMetrics) Revealed(trigger, outcome string, liarScore int64, took time.Duration) {
	m.RevealsTotal.WithLabelValues(trigger, outcome).Inc()
	m.RevealDuration.Observe(took.Seconds())
	if outcome == "revealed" {
		m.LiarScores.Observe(float64(liarScore))
	}
}

func (m *GameMetrics) RevealFailed(trigger string) {
	m.RevealsTotal.WithLabelValues(trigger, "error").Inc()
}

func (m *GameMetrics) SweepCompleted(failures int) {
	result := "ok"
	if failures > 0 {
		result = "partial"
	}
	m.SweepRuns.WithLabelValues(result).Inc()
	m.SweepFailures.Add(float64(failures))
}

func (m *GameMetrics) SweepAborted() {
	m.SweepRuns.WithLabelValues("error").Inc()
}
