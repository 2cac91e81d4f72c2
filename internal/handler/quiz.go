package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
)

type startRequest struct {
	Category  string `json:"category"`
	ProfileID *int64 `json:"profile_id"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

type restartRequest struct {
	Category string `json:"category"`
}

type resultResponse struct {
	model.Result
	Summary    string     `json:"summary"`
	TierLabel  string     `json:"tier_label"`
	BadgeNames []string   `json:"badge_names"`
	Analysis   adviceView `json:"analysis"`
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	profile, status, msg := h.quizProfile(r, req.ProfileID)
	if status != 0 {
		writeError(w, status, errorCode(status), msg)
		return
	}

	lang := h.bank.Resolve(model.LanguageFromContext(r.Context()))
	sess := quiz.NewSession(quiz.Config{
		TimeBudget: h.config.TimeBudget,
		Badges:     h.badges,
		Language:   lang,
	})
	if err := sess.Start(h.bank.Questions(lang), req.Category); err != nil {
		h.writeQuizError(w, r, err)
		return
	}

	id := quiz.NewSessionID()
	d := quiz.NewDriver(sess, quiz.DriverConfig{
		TickInterval:   h.config.TickInterval,
		FeedbackWindow: h.config.FeedbackWindow,
		Clock:          h.clock,
		Hooks:          h.persistHooks(id, sess, profile),
	})
	h.quizzes.Put(id, d)
	h.metrics.QuizStarted(lang)

	snap, err := d.Snapshot(r.Context())
	if err != nil {
		h.writeQuizError(w, r, err)
		return
	}
	slog.Info("quiz started", "quiz", id, "lang", lang, "category", snap.Category, "questions", snap.Total)
	w.Header().Set("Location", h.path("/api/quiz/"+id))
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"language": lang,
		"snapshot": snap,
	})
}

// quizProfile resolves the profile a quiz is played under. A PIN-protected
// profile can only be used by its own logged-in session.
func (h *Handler) quizProfile(r *http.Request, requested *int64) (*model.Profile, int, string) {
	current := model.ProfileFromContext(r.Context())
	if requested == nil {
		return current, 0, ""
	}
	if current != nil && current.ID == *requested {
		return current, 0, ""
	}
	p, err := h.store.GetProfile(*requested)
	if err != nil {
		slog.Error("failed to load profile", "id", *requested, "error", err)
		return nil, http.StatusInternalServerError, "internal error"
	}
	if p == nil {
		return nil, http.StatusNotFound, "unknown profile"
	}
	if p.HasPIN() {
		return nil, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginRequired")
	}
	return p, 0, ""
}

// persistHooks stores the result and any newly unlocked badges when the
// session completes. Without a profile the result is stored anonymously.
func (h *Handler) persistHooks(id string, sess *quiz.Session, profile *model.Profile) quiz.Hooks {
	var profileID *int64
	if profile != nil {
		pid := profile.ID
		profileID = &pid
	}
	return quiz.Hooks{
		OnAnswer: func(rec model.AnswerRecord) {
			h.metrics.Answered(rec)
			slog.Debug("quiz answer", "quiz", id, "position", rec.Position,
				"correct", rec.Correct, "timed_out", rec.TimedOut)
		},
		OnBadges: func(badges []model.Badge) {
			h.metrics.BadgesUnlocked(len(badges))
			if profileID == nil {
				return
			}
			if _, err := h.store.UnlockBadges(*profileID, badges); err != nil {
				slog.Error("failed to save badges", "quiz", id, "profile", *profileID, "error", err)
			}
		},
		OnComplete: func(res model.Result) {
			h.metrics.QuizCompleted(res)
			_, err := h.store.SaveResult(model.StoredResult{
				ProfileID:   profileID,
				SessionKey:  id,
				Language:    sess.Language(),
				Category:    sess.Category(),
				CompletedAt: time.Now(),
				Result:      res,
			})
			if err != nil {
				slog.Error("failed to save result", "quiz", id, "error", err)
			}
		},
	}
}

func (h *Handler) driver(w http.ResponseWriter, r *http.Request) (*quiz.Driver, bool) {
	d, ok := h.quizzes.Get(chi.URLParam(r, "quizID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown quiz session")
		return nil, false
	}
	return d, true
}

// apply runs fn on the session and answers with the resulting snapshot.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(*quiz.Session) error) {
	d, ok := h.driver(w, r)
	if !ok {
		return
	}
	var snap quiz.Snapshot
	err := d.Do(r.Context(), func(s *quiz.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		h.writeQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleQuizState(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(*quiz.Session) error { return nil })
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "index is required")
		return
	}
	h.apply(w, r, func(s *quiz.Session) error { return s.SelectOption(*req.Index) })
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(s *quiz.Session) error {
		_, err := s.ShowHint()
		return err
	})
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(s *quiz.Session) error {
		_, err := s.Advance()
		return err
	})
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	// The pool stays in the language the quiz was started in, whatever the
	// language of this request.
	h.apply(w, r, func(s *quiz.Session) error {
		pool := h.bank.Questions(s.Language())
		if len(pool) == 0 {
			return quiz.ErrNoContent
		}
		s.Restart()
		return s.Start(pool, req.Category)
	})
}

func (h *Handler) handleQuizResult(w http.ResponseWriter, r *http.Request) {
	d, ok := h.driver(w, r)
	if !ok {
		return
	}
	var res model.Result
	err := d.Do(r.Context(), func(s *quiz.Session) error {
		var err error
		res, err = s.Result()
		return err
	})
	if err != nil {
		h.writeQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.describeResult(r.Context(), res))
}

func (h *Handler) describeResult(ctx context.Context, res model.Result) resultResponse {
	names := make([]string, len(res.Badges))
	for i, b := range res.Badges {
		names[i] = appI18n.BadgeName(ctx, b)
	}
	return resultResponse{
		Result:     res,
		Summary:    appI18n.Td(ctx, "ScoreSummary", map[string]any{"Correct": res.Correct, "Total": res.Total}),
		TierLabel:  appI18n.T(ctx, appI18n.TierMessageID(res.Tier)),
		BadgeNames: names,
		Analysis:   describeAnalysis(ctx, res),
	}
}

func (h *Handler) handleEndQuiz(w http.ResponseWriter, r *http.Request) {
	if !h.quizzes.Remove(chi.URLParam(r, "quizID")) {
		writeError(w, http.StatusNotFound, "not_found", "unknown quiz session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeQuizError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := quizError(r.Context(), err)
	writeError(w, status, code, msg)
}

// quizError maps a session or driver error to a status, code and message.
func quizError(ctx context.Context, err error) (int, string, string) {
	switch {
	case errors.Is(err, quiz.ErrNoContent):
		return http.StatusUnprocessableEntity, "no_content", appI18n.T(ctx, "NoQuestions")
	case errors.Is(err, quiz.ErrOptionOutOfRange):
		return http.StatusBadRequest, "option_out_of_range", err.Error()
	case errors.Is(err, quiz.ErrInvalidState):
		return http.StatusConflict, "invalid_state", err.Error()
	case errors.Is(err, quiz.ErrClosed):
		return http.StatusNotFound, "not_found", "quiz session closed"
	case errors.Is(err, quiz.ErrInvalidQuestion):
		slog.Error("invalid question content", "error", err)
		return http.StatusInternalServerError, "invalid_content", err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout", err.Error()
	default:
		slog.Error("quiz operation failed", "error", err)
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
