package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pavelanni/shieldly/internal/model"
)

func TestCounters(t *testing.T) {
	m := New()
	m.QuizStarted("en")
	m.QuizStarted("en")
	m.QuizStarted("es")
	m.Answered(model.AnswerRecord{Correct: true})
	m.Answered(model.AnswerRecord{})
	m.Answered(model.AnswerRecord{TimedOut: true})
	m.QuizCompleted(model.Result{Tier: model.TierGood})
	m.BadgesUnlocked(2)
	m.HelperAnswered("rules", "boundaries")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"started en", testutil.ToFloat64(m.quizzesStarted.WithLabelValues("en")), 2},
		{"started es", testutil.ToFloat64(m.quizzesStarted.WithLabelValues("es")), 1},
		{"correct", testutil.ToFloat64(m.answers.WithLabelValues("correct")), 1},
		{"incorrect", testutil.ToFloat64(m.answers.WithLabelValues("incorrect")), 1},
		{"timeout", testutil.ToFloat64(m.answers.WithLabelValues("timeout")), 1},
		{"completed", testutil.ToFloat64(m.quizzesCompleted.WithLabelValues("Good")), 1},
		{"badges", testutil.ToFloat64(m.badgesUnlocked), 2},
		{"helper", testutil.ToFloat64(m.helperAnswers.WithLabelValues("rules", "boundaries")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestHandlerExposesSessions(t *testing.T) {
	m := New()
	live := 3
	m.TrackSessions(func() int { return live })
	m.QuizStarted("hi")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"shieldly_quiz_sessions_active 3",
		`shieldly_quizzes_started_total{language="hi"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
