package quiz

import "github.com/pavelanni/shieldly/internal/model"

// QuestionView is the player-facing part of a question. The correct index is
// withheld.
type QuestionView struct {
	ID       int64    `json:"id"`
	Prompt   string   `json:"question"`
	Options  []string `json:"options"`
	Category string   `json:"category,omitempty"`
	Audio    string   `json:"audio,omitempty"`
	HasHint  bool     `json:"has_hint"`
}

// Feedback describes the most recently scored answer.
type Feedback struct {
	Answer      model.AnswerRecord `json:"answer"`
	Explanation string             `json:"explanation,omitempty"`
}

// Snapshot is a read-only copy of a session's visible state.
type Snapshot struct {
	State      State         `json:"state"`
	Language   string        `json:"language,omitempty"`
	Category   string        `json:"category"`
	Position   int           `json:"position"`
	Total      int           `json:"total"`
	TimeLeft   int           `json:"time_left"`
	TimeBudget int           `json:"time_budget"`
	Question   *QuestionView `json:"question,omitempty"`
	Selected   *int          `json:"selected,omitempty"`
	Hint       string        `json:"hint,omitempty"`
	Feedback   *Feedback     `json:"feedback,omitempty"`
	Correct    int           `json:"correct"`
	Badges     []model.Badge `json:"badges"`
}

// Snapshot captures the session's visible state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:      s.state,
		Language:   s.Language(),
		Category:   s.category,
		Position:   s.pos,
		Total:      len(s.questions),
		TimeLeft:   s.remaining,
		TimeBudget: s.cfg.TimeBudget,
		Correct:    s.Correct(),
		Badges:     s.badges.Unlocked(),
	}
	if (s.state == StateAwaitingAnswer || s.state == StateAnswerShown) && s.pos < len(s.questions) {
		q := s.questions[s.pos]
		snap.Question = &QuestionView{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  append([]string(nil), q.Options...),
			Category: q.Category,
			Audio:    q.Audio,
			HasHint:  q.Hint != "",
		}
		if s.selected >= 0 {
			sel := s.selected
			snap.Selected = &sel
		}
		if s.hintShown {
			snap.Hint = q.Hint
		}
	}
	if (s.state == StateAnswerShown || s.state == StateComplete) && len(s.answers) > 0 {
		last := s.answers[len(s.answers)-1]
		snap.Feedback = &Feedback{
			Answer:      last,
			Explanation: s.questions[last.Position].Explanation,
		}
	}
	return snap
}
