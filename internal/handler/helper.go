package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
)

const helperTimeout = 20 * time.Second

type helperRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleHelper(w http.ResponseWriter, r *http.Request) {
	var req helperRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", appI18n.T(r.Context(), "HelperEmpty"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), helperTimeout)
	defer cancel()

	lang := model.LanguageFromContext(ctx)
	reply := h.helper.Answer(ctx, lang, req.Message)
	h.metrics.HelperAnswered(string(reply.Source), string(reply.Topic))
	slog.Info("helper answered", "lang", lang, "topic", reply.Topic, "source", reply.Source)
	writeJSON(w, http.StatusOK, reply)
}
