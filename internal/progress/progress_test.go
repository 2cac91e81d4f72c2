package progress

import (
	"slices"
	"testing"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

func TestMasteryFor(t *testing.T) {
	tests := []struct {
		percent int
		want    Mastery
	}{
		{100, MasteryExpert},
		{90, MasteryExpert},
		{89, MasteryProficient},
		{75, MasteryProficient},
		{74, MasteryIntermediate},
		{60, MasteryIntermediate},
		{59, MasteryBeginner},
		{40, MasteryBeginner},
		{39, MasteryNovice},
		{0, MasteryNovice},
	}
	for _, tt := range tests {
		if got := MasteryFor(tt.percent); got != tt.want {
			t.Errorf("MasteryFor(%d) = %s, want %s", tt.percent, got, tt.want)
		}
	}
}

func TestCompletion(t *testing.T) {
	tests := []struct {
		percent int
		want    int
	}{
		{100, 100},
		{80, 100},
		{79, 75},
		{60, 75},
		{59, 50},
		{0, 50},
	}
	for _, tt := range tests {
		if got := Completion(tt.percent); got != tt.want {
			t.Errorf("Completion(%d) = %d, want %d", tt.percent, got, tt.want)
		}
	}
}

func TestMessageIDs(t *testing.T) {
	for _, m := range []Mastery{MasteryNovice, MasteryBeginner, MasteryIntermediate, MasteryProficient, MasteryExpert} {
		if m.MessageID() == "" {
			t.Errorf("mastery %s has no message", m)
		}
	}
	for a := range adviceMessages {
		if a.MessageID() == "" {
			t.Errorf("advice %s has no message", a)
		}
	}
	for _, r := range []Reason{ReasonStartHere, ReasonKeepGoing, ReasonReview, ReasonTryNext} {
		if r.MessageID() == "" {
			t.Errorf("reason %s has no message", r)
		}
	}
}

func sel(i int) *int { return &i }

// answers builds n records: the first correct ones right, then timedOut
// expired ones, the rest skipped.
func answers(n, correct, timedOut int) []model.AnswerRecord {
	out := make([]model.AnswerRecord, n)
	for i := range out {
		out[i] = model.AnswerRecord{Position: i, QuestionID: int64(i + 1)}
		switch {
		case i < correct:
			out[i].Selected = sel(0)
			out[i].Correct = true
		case i < correct+timedOut:
			out[i].TimedOut = true
		}
	}
	return out
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name    string
		res     model.Result
		mastery Mastery
		advice  []Advice
	}{
		{
			name:    "perfect",
			res:     model.Result{Percent: 100, Answers: answers(4, 4, 0)},
			mastery: MasteryExpert,
			advice:  []Advice{AdviceExplore},
		},
		{
			name:    "middling",
			res:     model.Result{Percent: 70, Answers: answers(10, 7, 0)},
			mastery: MasteryIntermediate,
			advice:  []Advice{AdvicePractice},
		},
		{
			name:    "slow and weak",
			res:     model.Result{Percent: 50, Answers: answers(4, 2, 2)},
			mastery: MasteryBeginner,
			advice:  []Advice{AdviceFocusMissed, AdviceUseHints, AdviceSmallerSteps},
		},
		{
			name:    "rushed",
			res:     model.Result{Percent: 25, Answers: answers(4, 1, 0)},
			mastery: MasteryNovice,
			advice:  []Advice{AdviceReviewBasics, AdviceOneCategory, AdviceTakeTime},
		},
		{
			name:    "strong runs get no pacing advice",
			res:     model.Result{Percent: 75, Answers: answers(4, 3, 1)},
			mastery: MasteryProficient,
			advice:  []Advice{AdviceExplore},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.res)
			if a.Mastery != tt.mastery {
				t.Errorf("mastery = %s, want %s", a.Mastery, tt.mastery)
			}
			if a.Completion != Completion(tt.res.Percent) {
				t.Errorf("completion = %d", a.Completion)
			}
			if !slices.Equal(a.Advice, tt.advice) {
				t.Errorf("advice = %v, want %v", a.Advice, tt.advice)
			}
		})
	}
}

type fakeBank map[string][]model.Question

func (b fakeBank) Questions(lang string) []model.Question { return b[lang] }

func (b fakeBank) Categories(lang string) []string {
	var out []string
	for _, q := range b[lang] {
		if !slices.Contains(out, q.Category) {
			out = append(out, q.Category)
		}
	}
	return out
}

var bank = fakeBank{"en": {
	{ID: 1, Category: "Body Safety"},
	{ID: 2, Category: "Body Safety"},
	{ID: 3, Category: "Trusted Adults"},
	{ID: 4, Category: "Trusted Adults"},
	{ID: 5, Category: "Online Safety"},
}}

func answer(id int64, correct bool) model.AnswerRecord {
	return model.AnswerRecord{QuestionID: id, Selected: sel(0), Correct: correct}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, bank, "en", time.Now())
	if s.Quizzes != 0 || s.Mastery != "" || len(s.Categories) != 3 {
		t.Fatalf("summary = %+v", s)
	}
	for _, c := range s.Categories {
		if c.Status != StatusNotStarted || c.LastActivity != nil {
			t.Errorf("category %+v, want not started", c)
		}
	}
	want := []Recommendation{{Category: "Body Safety", Reason: ReasonStartHere}}
	if !slices.Equal(s.Recommendations, want) {
		t.Errorf("recommendations = %+v", s.Recommendations)
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	results := []model.StoredResult{
		// Newest first: a mixed run touching two categories.
		{
			Language:    "en",
			CompletedAt: now.Add(-time.Hour),
			Result: model.Result{Correct: 3, Total: 4, Percent: 75, Answers: []model.AnswerRecord{
				answer(1, true), answer(2, true), answer(3, true), answer(4, false),
			}},
		},
		{
			Language:    "en",
			Category:    "Trusted Adults",
			CompletedAt: now.Add(-10 * 24 * time.Hour),
			Result: model.Result{Correct: 0, Total: 2, Percent: 0, Answers: []model.AnswerRecord{
				answer(3, false), answer(4, false),
			}},
		},
		{
			// Content that is no longer in the bank.
			Language:    "en",
			Category:    "Bullying",
			CompletedAt: now.Add(-20 * 24 * time.Hour),
			Result:      model.Result{Correct: 1, Total: 2, Percent: 50},
		},
	}

	s := Summarize(results, bank, "en", now)
	if s.Quizzes != 3 || s.AveragePercent != 42 || s.Mastery != MasteryBeginner {
		t.Errorf("totals = %d quizzes, %d%%, %s", s.Quizzes, s.AveragePercent, s.Mastery)
	}

	names := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		names[i] = c.Name
	}
	if want := []string{"Body Safety", "Trusted Adults", "Online Safety", "Bullying"}; !slices.Equal(names, want) {
		t.Fatalf("categories = %v, want %v", names, want)
	}

	body, adults, online, bullying := s.Categories[0], s.Categories[1], s.Categories[2], s.Categories[3]
	if body.Status != StatusCompleted || body.Attempts != 1 || body.BestPercent != 100 || body.Completion != 100 {
		t.Errorf("body safety = %+v", body)
	}
	if adults.Status != StatusInProgress || adults.Attempts != 2 || adults.LastPercent != 50 || adults.BestPercent != 50 || adults.Completion != 50 {
		t.Errorf("trusted adults = %+v", adults)
	}
	if adults.LastActivity == nil || !adults.LastActivity.Equal(now.Add(-time.Hour)) {
		t.Errorf("trusted adults last activity = %v", adults.LastActivity)
	}
	if online.Status != StatusNotStarted || online.Attempts != 0 {
		t.Errorf("online safety = %+v", online)
	}
	if bullying.Status != StatusInProgress || bullying.LastPercent != 50 {
		t.Errorf("bullying = %+v", bullying)
	}

	if s.Completed != 1 || s.CompletionRate != 0.25 {
		t.Errorf("completed = %d rate %v", s.Completed, s.CompletionRate)
	}
	if !slices.Equal(s.Recent, []string{"Body Safety", "Trusted Adults"}) {
		t.Errorf("recent = %v", s.Recent)
	}
	if !slices.Equal(s.NeedsAttention, []string{"Bullying"}) {
		t.Errorf("needs attention = %v", s.NeedsAttention)
	}

	want := []Recommendation{
		{Category: "Trusted Adults", Reason: ReasonKeepGoing},
		{Category: "Bullying", Reason: ReasonKeepGoing},
		{Category: "Online Safety", Reason: ReasonTryNext},
	}
	if !slices.Equal(s.Recommendations, want) {
		t.Errorf("recommendations = %+v, want %+v", s.Recommendations, want)
	}
}

func TestSummarizeSuggestsReview(t *testing.T) {
	now := time.Now()
	results := []model.StoredResult{
		{Language: "en", CompletedAt: now, Result: model.Result{Percent: 50, Answers: []model.AnswerRecord{
			answer(1, true), answer(2, false),
		}}},
		{Language: "en", CompletedAt: now.Add(-time.Hour), Result: model.Result{Percent: 100, Answers: []model.AnswerRecord{
			answer(1, true), answer(2, true),
		}}},
	}
	s := Summarize(results, bank, "en", now)
	body := s.Categories[0]
	if body.Status != StatusCompleted || body.LastPercent != 50 || body.BestPercent != 100 {
		t.Fatalf("body safety = %+v", body)
	}
	if len(s.Recommendations) == 0 || s.Recommendations[0] != (Recommendation{Category: "Body Safety", Reason: ReasonReview}) {
		t.Errorf("recommendations = %+v", s.Recommendations)
	}
}
