// Package metrics exposes quiz and helper counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/shieldly/internal/model"
)

// Metrics owns a private registry so several servers (and tests) can coexist
// in one process.
type Metrics struct {
	reg *prometheus.Registry

	quizzesStarted   *prometheus.CounterVec
	quizzesCompleted *prometheus.CounterVec
	answers          *prometheus.CounterVec
	badgesUnlocked   prometheus.Counter
	helperAnswers    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		quizzesStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldly_quizzes_started_total",
			Help: "Quiz sessions started, by language",
		}, []string{"language"}),
		quizzesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldly_quizzes_completed_total",
			Help: "Quiz sessions completed, by score tier",
		}, []string{"tier"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldly_answers_total",
			Help: "Scored answers, by outcome",
		}, []string{"outcome"}),
		badgesUnlocked: f.NewCounter(prometheus.CounterOpts{
			Name: "shieldly_badges_unlocked_total",
			Help: "Badges unlocked during quiz sessions",
		}),
		helperAnswers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldly_helper_answers_total",
			Help: "Safety helper replies, by source and topic",
		}, []string{"source", "topic"}),
	}
}

// TrackSessions reports count() as the number of live quiz sessions.
func (m *Metrics) TrackSessions(count func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shieldly_quiz_sessions_active",
		Help: "Quiz sessions currently held in memory",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) QuizStarted(lang string) {
	m.quizzesStarted.WithLabelValues(lang).Inc()
}

// Answered counts one scored answer as correct, incorrect or timeout.
func (m *Metrics) Answered(rec model.AnswerRecord) {
	outcome := "incorrect"
	switch {
	case rec.TimedOut:
		outcome = "timeout"
	case rec.Correct:
		outcome = "correct"
	}
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QuizCompleted(res model.Result) {
	m.quizzesCompleted.WithLabelValues(string(res.Tier)).Inc()
}

func (m *Metrics) BadgesUnlocked(n int) {
	m.badgesUnlocked.Add(float64(n))
}

func (m *Metrics) HelperAnswered(source, topic string) {
	m.helperAnswers.WithLabelValues(source, topic).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
