// Package quiz implements the quiz session state machine, badge tracking and
// the timer-driven driver that hosts a session.
package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/pavelanni/shieldly/internal/model"
)

var (
	// ErrNoContent is returned by Start when there are no questions to ask.
	ErrNoContent = errors.New("no questions available")
	// ErrInvalidState is returned when an operation is not valid in the current state.
	ErrInvalidState = errors.New("operation not valid in current state")
	// ErrOptionOutOfRange is returned when a selected option does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrInvalidQuestion is returned for questions that cannot be scored.
	ErrInvalidQuestion = errors.New("invalid question")
)

// State is the phase of a quiz session.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
	StateAnswerShown
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateAnswerShown:
		return "answer_shown"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DefaultTimeBudget is the number of ticks a question stays open.
const DefaultTimeBudget = 15

// Config tunes a session.
type Config struct {
	TimeBudget int         // ticks per question; DefaultTimeBudget when <= 0
	Badges     []BadgeRule // DefaultBadgeRules when nil
	Rand       *rand.Rand  // seeded from the runtime when nil
	Language   string      // language the question pool is drawn in
}

// Outcome describes what a scoring step produced.
type Outcome struct {
	Record   model.AnswerRecord
	Unlocked []model.Badge
	Complete bool
}

// Session is a single run through a filtered, shuffled question sequence.
// It is not safe for concurrent use; a Driver serializes access to it.
type Session struct {
	cfg    Config
	rng    *rand.Rand
	badges *BadgeTracker

	state     State
	category  string
	questions []model.Question
	pos       int
	remaining int
	selected  int // -1 when nothing is selected
	hintShown bool
	answers   []model.AnswerRecord
	correct   int
	epoch     uint64 // bumped on every entry into StateAwaitingAnswer
	runs      uint64 // bumped on every successful Start
}

// NewSession returns an idle session.
func NewSession(cfg Config) *Session {
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = DefaultTimeBudget
	}
	if cfg.Badges == nil {
		cfg.Badges = DefaultBadgeRules()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Session{
		cfg:      cfg,
		rng:      rng,
		badges:   NewBadgeTracker(cfg.Badges),
		selected: -1,
	}
}

// ValidateQuestion checks that a question can be asked and scored.
func ValidateQuestion(q model.Question) error {
	if len(q.Options) == 0 {
		return fmt.Errorf("question %d has no options: %w", q.ID, ErrInvalidQuestion)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question %d: correct index %d outside %d options: %w",
			q.ID, q.CorrectIndex, len(q.Options), ErrInvalidQuestion)
	}
	return nil
}

// Start filters pool by category, shuffles it and opens the first question.
// An empty category selects all questions, as does a category no question
// carries. On error the session is left unchanged.
func (s *Session) Start(pool []model.Question, category string) error {
	for _, q := range pool {
		if err := ValidateQuestion(q); err != nil {
			return err
		}
	}
	questions, resolved := FilterByCategory(pool, category)
	if len(questions) == 0 {
		return ErrNoContent
	}
	s.rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	s.category = resolved
	s.questions = questions
	s.pos = 0
	s.answers = make([]model.AnswerRecord, 0, len(questions))
	s.correct = 0
	s.badges.Reset()
	s.runs++
	s.enterAwaiting()
	return nil
}

// FilterByCategory returns a copy of the questions in category and the
// category actually applied. Matching ignores case and surrounding space.
// An empty or unknown category yields the whole pool and "".
func FilterByCategory(pool []model.Question, category string) ([]model.Question, string) {
	category = strings.TrimSpace(category)
	if category != "" {
		var out []model.Question
		for _, q := range pool {
			if strings.EqualFold(strings.TrimSpace(q.Category), category) {
				out = append(out, q)
			}
		}
		if len(out) > 0 {
			return out, strings.TrimSpace(out[0].Category)
		}
	}
	out := make([]model.Question, len(pool))
	copy(out, pool)
	return out, ""
}

// SelectOption records a tentative answer for the current question.
func (s *Session) SelectOption(index int) error {
	s.dismissFeedback()
	if s.state != StateAwaitingAnswer {
		return fmt.Errorf("select option while %s: %w", s.state, ErrInvalidState)
	}
	n := len(s.questions[s.pos].Options)
	if index < 0 || index >= n {
		return fmt.Errorf("option %d of %d: %w", index, n, ErrOptionOutOfRange)
	}
	s.selected = index
	return nil
}

// ShowHint makes the current question's hint visible and returns it.
func (s *Session) ShowHint() (string, error) {
	s.dismissFeedback()
	if s.state != StateAwaitingAnswer {
		return "", fmt.Errorf("show hint while %s: %w", s.state, ErrInvalidState)
	}
	s.hintShown = true
	return s.questions[s.pos].Hint, nil
}

// Advance scores the pending selection and moves on. No selection is scored
// as incorrect.
func (s *Session) Advance() (Outcome, error) {
	s.dismissFeedback()
	if s.state != StateAwaitingAnswer {
		return Outcome{}, fmt.Errorf("advance while %s: %w", s.state, ErrInvalidState)
	}
	return s.score(false), nil
}

// Tick consumes one unit of the current question's time budget. When the
// budget runs out the question is scored as timed out, and the outcome is
// returned with expired set.
func (s *Session) Tick() (out Outcome, expired bool) {
	s.dismissFeedback()
	if s.state != StateAwaitingAnswer {
		return Outcome{}, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return Outcome{}, false
	}
	return s.score(true), true
}

// Continue ends the feedback window after an answer.
func (s *Session) Continue() {
	s.dismissFeedback()
}

// Restart discards all session data and returns to the idle state.
func (s *Session) Restart() {
	s.state = StateIdle
	s.category = ""
	s.questions = nil
	s.pos = 0
	s.remaining = 0
	s.selected = -1
	s.hintShown = false
	s.answers = nil
	s.correct = 0
	s.badges.Reset()
}

// Result returns the final score. Only valid once the session is complete.
func (s *Session) Result() (model.Result, error) {
	if s.state != StateComplete {
		return model.Result{}, fmt.Errorf("result while %s: %w", s.state, ErrInvalidState)
	}
	return ComputeResult(s.answers, s.badges.Unlocked()), nil
}

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Language returns the language the session was created for. It survives
// Restart.
func (s *Session) Language() string { return s.cfg.Language }

// Category returns the category filter in effect ("" for all).
func (s *Session) Category() string { return s.category }

// Len returns the number of questions in the session.
func (s *Session) Len() int { return len(s.questions) }

// Position returns the 0-based index of the current question.
func (s *Session) Position() int { return s.pos }

// Remaining returns the ticks left for the current question.
func (s *Session) Remaining() int { return s.remaining }

// Correct returns the running correct-answer count.
func (s *Session) Correct() int { return s.correct }

// Epoch identifies the currently open question. It changes every time a
// question is opened.
func (s *Session) Epoch() uint64 { return s.epoch }

// Answers returns a copy of the answer records so far.
func (s *Session) Answers() []model.AnswerRecord {
	out := make([]model.AnswerRecord, len(s.answers))
	copy(out, s.answers)
	return out
}

// Badges returns the badges unlocked in this session.
func (s *Session) Badges() []model.Badge { return s.badges.Unlocked() }

func (s *Session) score(timedOut bool) Outcome {
	q := s.questions[s.pos]
	rec := model.AnswerRecord{QuestionID: q.ID, Position: s.pos, TimedOut: timedOut}
	if !timedOut && s.selected >= 0 {
		sel := s.selected
		rec.Selected = &sel
		rec.Correct = sel == q.CorrectIndex
	}
	s.answers = append(s.answers, rec)

	out := Outcome{Record: rec}
	if rec.Correct {
		s.correct++
		out.Unlocked = s.badges.Observe(s.correct)
	}

	s.selected = -1
	s.hintShown = false
	s.pos++
	if s.pos >= len(s.questions) {
		s.state = StateComplete
		s.remaining = 0
		out.Complete = true
		return out
	}
	s.state = StateAnswerShown
	s.remaining = s.cfg.TimeBudget
	return out
}

func (s *Session) dismissFeedback() {
	if s.state == StateAnswerShown {
		s.enterAwaiting()
	}
}

func (s *Session) enterAwaiting() {
	s.state = StateAwaitingAnswer
	s.remaining = s.cfg.TimeBudget
	s.selected = -1
	s.hintShown = false
	s.epoch++
}
