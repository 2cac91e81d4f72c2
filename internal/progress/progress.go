// Package progress turns stored quiz results into mastery levels, per-category
// progress and study recommendations.
package progress

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// Mastery is a skill level derived from a percentage score.
type Mastery string

const (
	MasteryNovice       Mastery = "novice"
	MasteryBeginner     Mastery = "beginner"
	MasteryIntermediate Mastery = "intermediate"
	MasteryProficient   Mastery = "proficient"
	MasteryExpert       Mastery = "expert"
)

// MasteryFor maps a percentage score to a mastery level.
func MasteryFor(percent int) Mastery {
	switch {
	case percent >= 90:
		return MasteryExpert
	case percent >= 75:
		return MasteryProficient
	case percent >= 60:
		return MasteryIntermediate
	case percent >= 40:
		return MasteryBeginner
	default:
		return MasteryNovice
	}
}

// MessageID returns the catalog message for the level.
func (m Mastery) MessageID() string {
	switch m {
	case MasteryExpert:
		return "MasteryExpert"
	case MasteryProficient:
		return "MasteryProficient"
	case MasteryIntermediate:
		return "MasteryIntermediate"
	case MasteryBeginner:
		return "MasteryBeginner"
	default:
		return "MasteryNovice"
	}
}

// Completion is how far a single run moves its category towards done.
func Completion(percent int) int {
	switch {
	case percent >= 80:
		return 100
	case percent >= 60:
		return 75
	default:
		return 50
	}
}

// Advice is a study tip for the player.
type Advice string

const (
	AdviceReviewBasics Advice = "review_basics"
	AdviceOneCategory  Advice = "one_category"
	AdviceFocusMissed  Advice = "focus_missed"
	AdviceUseHints     Advice = "use_hints"
	AdvicePractice     Advice = "practice"
	AdviceExplore      Advice = "explore"
	AdviceSmallerSteps Advice = "smaller_steps"
	AdviceTakeTime     Advice = "take_time"
)

var adviceMessages = map[Advice]string{
	AdviceReviewBasics: "AdviceReviewBasics",
	AdviceOneCategory:  "AdviceOneCategory",
	AdviceFocusMissed:  "AdviceFocusMissed",
	AdviceUseHints:     "AdviceUseHints",
	AdvicePractice:     "AdvicePractice",
	AdviceExplore:      "AdviceExplore",
	AdviceSmallerSteps: "AdviceSmallerSteps",
	AdviceTakeTime:     "AdviceTakeTime",
}

// MessageID returns the catalog message for the tip.
func (a Advice) MessageID() string { return adviceMessages[a] }

// Analysis is the feedback for one completed run.
type Analysis struct {
	Mastery    Mastery  `json:"mastery"`
	Completion int      `json:"completion"`
	Advice     []Advice `json:"advice"`
}

// Analyze scores one result. Pacing advice is only given for weak runs: many
// timed-out questions suggest smaller steps, many skipped ones suggest slowing
// down.
func Analyze(res model.Result) Analysis {
	a := Analysis{
		Mastery:    MasteryFor(res.Percent),
		Completion: Completion(res.Percent),
	}
	switch {
	case res.Percent < 40:
		a.Advice = append(a.Advice, AdviceReviewBasics, AdviceOneCategory)
	case res.Percent < 60:
		a.Advice = append(a.Advice, AdviceFocusMissed, AdviceUseHints)
	case res.Percent < 75:
		a.Advice = append(a.Advice, AdvicePractice)
	default:
		a.Advice = append(a.Advice, AdviceExplore)
	}

	var timedOut, skipped int
	for _, rec := range res.Answers {
		switch {
		case rec.TimedOut:
			timedOut++
		case rec.Selected == nil:
			skipped++
		}
	}
	n := len(res.Answers)
	switch {
	case n > 0 && timedOut*2 >= n && res.Percent < 75:
		a.Advice = append(a.Advice, AdviceSmallerSteps)
	case n > 0 && skipped*2 >= n && res.Percent < 60:
		a.Advice = append(a.Advice, AdviceTakeTime)
	}
	return a
}

// Status is where a player stands in a category.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Category is the progress in one question category.
type Category struct {
	Name         string     `json:"category"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	BestPercent  int        `json:"best_percent"`
	LastPercent  int        `json:"last_percent"`
	Completion   int        `json:"completion"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// Reason says why a category is recommended.
type Reason string

const (
	ReasonStartHere Reason = "start_here"
	ReasonKeepGoing Reason = "keep_going"
	ReasonReview    Reason = "review"
	ReasonTryNext   Reason = "try_next"
)

var reasonMessages = map[Reason]string{
	ReasonStartHere: "ReasonStartHere",
	ReasonKeepGoing: "ReasonKeepGoing",
	ReasonReview:    "ReasonReview",
	ReasonTryNext:   "ReasonTryNext",
}

// MessageID returns the catalog message for the reason. The message takes the
// category as template data.
func (r Reason) MessageID() string { return reasonMessages[r] }

// Recommendation points the player at a category.
type Recommendation struct {
	Category string `json:"category"`
	Reason   Reason `json:"reason"`
}

// Summary is a profile's progress across all of its results.
type Summary struct {
	Quizzes         int              `json:"quizzes"`
	AveragePercent  int              `json:"average_percent"`
	Mastery         Mastery          `json:"mastery,omitempty"`
	Categories      []Category       `json:"categories"`
	Completed       int              `json:"completed_categories"`
	CompletionRate  float64          `json:"completion_rate"`
	Recent          []string         `json:"recent"`
	NeedsAttention  []string         `json:"needs_attention"`
	Recommendations []Recommendation `json:"recommendations"`
}

const (
	// RecentWindow is how long a category counts as recently played.
	RecentWindow = 7 * 24 * time.Hour

	maxKeepGoing = 3
	maxReview    = 2
	reviewBelow  = 70
)

// Bank supplies the categories and questions of a language.
type Bank interface {
	Categories(lang string) []string
	Questions(lang string) []model.Question
}

// Summarize builds the progress summary for results, listed newest first as
// the store returns them. Categories are listed in the bank order for lang,
// followed by categories only seen in older results. Answers are credited to
// the category of their question, so runs over all categories count towards
// each category they touched.
func Summarize(results []model.StoredResult, bank Bank, lang string, now time.Time) Summary {
	s := Summary{
		Quizzes:         len(results),
		Categories:      []Category{},
		Recent:          []string{},
		NeedsAttention:  []string{},
		Recommendations: []Recommendation{},
	}

	byName := make(map[string]*Category)
	var order []string
	add := func(name string) *Category {
		c, ok := byName[name]
		if !ok {
			c = &Category{Name: name, Status: StatusNotStarted}
			byName[name] = c
			order = append(order, name)
		}
		return c
	}
	for _, name := range bank.Categories(lang) {
		add(name)
	}
	known := len(order)

	questionCats := make(map[string]map[int64]string)
	categoryOf := func(res model.StoredResult, id int64) string {
		m, ok := questionCats[res.Language]
		if !ok {
			m = make(map[int64]string)
			for _, q := range bank.Questions(res.Language) {
				m[q.ID] = q.Category
			}
			questionCats[res.Language] = m
		}
		if c := m[id]; c != "" {
			return c
		}
		return res.Category
	}

	total := 0
	for _, res := range results {
		total += res.Percent

		type tally struct{ correct, total int }
		perCat := make(map[string]*tally)
		var cats []string
		for _, a := range res.Answers {
			name := categoryOf(res, a.QuestionID)
			if name == "" {
				continue
			}
			t, ok := perCat[name]
			if !ok {
				t = &tally{}
				perCat[name] = t
				cats = append(cats, name)
			}
			t.total++
			if a.Correct {
				t.correct++
			}
		}
		if len(res.Answers) == 0 && res.Category != "" {
			perCat[res.Category] = &tally{correct: res.Correct, total: res.Total}
			cats = append(cats, res.Category)
		}

		for _, name := range cats {
			t := perCat[name]
			if t.total == 0 {
				continue
			}
			pct := int(math.Round(float64(t.correct) * 100 / float64(t.total)))
			c := add(name)
			if c.Attempts == 0 {
				c.LastPercent = pct
				at := res.CompletedAt
				c.LastActivity = &at
			}
			c.Attempts++
			c.BestPercent = max(c.BestPercent, pct)
			c.Completion = max(c.Completion, Completion(pct))
		}
	}
	if s.Quizzes > 0 {
		s.AveragePercent = int(math.Round(float64(total) / float64(s.Quizzes)))
		s.Mastery = MasteryFor(s.AveragePercent)
	}

	// Extra categories from older content go after the bank's, by name.
	sort.Strings(order[known:])

	cutoff := now.Add(-RecentWindow)
	for _, name := range order {
		c := byName[name]
		switch {
		case c.Completion >= 100:
			c.Status = StatusCompleted
			s.Completed++
		case c.Attempts > 0:
			c.Status = StatusInProgress
		}
		if c.LastActivity != nil {
			if !c.LastActivity.Before(cutoff) {
				s.Recent = append(s.Recent, name)
			} else if c.Status != StatusCompleted {
				s.NeedsAttention = append(s.NeedsAttention, name)
			}
		}
		s.Categories = append(s.Categories, *c)
	}
	if len(s.Categories) > 0 {
		s.CompletionRate = float64(s.Completed) / float64(len(s.Categories))
	}
	s.Recommendations = recommend(s)
	return s
}

func recommend(s Summary) []Recommendation {
	recs := []Recommendation{}
	if s.Quizzes == 0 {
		if len(s.Categories) > 0 {
			recs = append(recs, Recommendation{Category: s.Categories[0].Name, Reason: ReasonStartHere})
		}
		return recs
	}

	var going, review []Category
	for _, c := range s.Categories {
		switch {
		case c.Status == StatusInProgress:
			going = append(going, c)
		case c.Status == StatusCompleted && c.LastPercent < reviewBelow:
			review = append(review, c)
		}
	}
	// Nearest to done first.
	slices.SortStableFunc(going, func(a, b Category) int {
		if a.Completion != b.Completion {
			return b.Completion - a.Completion
		}
		return b.BestPercent - a.BestPercent
	})
	for _, c := range going[:min(len(going), maxKeepGoing)] {
		recs = append(recs, Recommendation{Category: c.Name, Reason: ReasonKeepGoing})
	}
	// Weakest last score first.
	slices.SortStableFunc(review, func(a, b Category) int { return a.LastPercent - b.LastPercent })
	for _, c := range review[:min(len(review), maxReview)] {
		recs = append(recs, Recommendation{Category: c.Name, Reason: ReasonReview})
	}

	if s.Completed > 0 {
		for _, c := range s.Categories {
			if c.Status == StatusNotStarted {
				recs = append(recs, Recommendation{Category: c.Name, Reason: ReasonTryNext})
				break
			}
		}
	}
	return recs
}
