package handler

import (
	"context"
	"log/slog"
	"net/http"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/progress"
)

type adviceView struct {
	progress.Analysis
	MasteryLabel string   `json:"mastery_label"`
	Tips         []string `json:"tips"`
}

type recommendationView struct {
	progress.Recommendation
	Message string `json:"message"`
}

type progressView struct {
	progress.Summary
	MasteryLabel    string               `json:"mastery_label,omitempty"`
	Recommendations []recommendationView `json:"recommendations"`
}

func describeAnalysis(ctx context.Context, res model.Result) adviceView {
	a := progress.Analyze(res)
	tips := make([]string, len(a.Advice))
	for i, adv := range a.Advice {
		tips[i] = appI18n.T(ctx, adv.MessageID())
	}
	return adviceView{
		Analysis:     a,
		MasteryLabel: appI18n.T(ctx, a.Mastery.MessageID()),
		Tips:         tips,
	}
}

func describeProgress(ctx context.Context, s progress.Summary) progressView {
	v := progressView{
		Summary:         s,
		Recommendations: make([]recommendationView, len(s.Recommendations)),
	}
	if s.Mastery != "" {
		v.MasteryLabel = appI18n.T(ctx, s.Mastery.MessageID())
	}
	for i, rec := range s.Recommendations {
		v.Recommendations[i] = recommendationView{
			Recommendation: rec,
			Message:        appI18n.Td(ctx, rec.Reason.MessageID(), map[string]any{"Category": rec.Category}),
		}
	}
	return v
}

func (h *Handler) handleProfileProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profileOr404(w, r)
	if !ok {
		return
	}
	results, err := h.store.ListResults(&p.ID)
	if err != nil {
		slog.Error("failed to list results", "profile", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	lang := h.bank.Resolve(model.LanguageFromContext(r.Context()))
	summary := progress.Summarize(results, h.bank, lang, h.clock.Now())
	writeJSON(w, http.StatusOK, describeProgress(r.Context(), summary))
}
