package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/journal"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/store"
)

const maxEntryLength = 5000

type journalRequest struct {
	Mood      model.Mood `json:"mood"`
	Content   string     `json:"content"`
	Sensitive bool       `json:"is_sensitive"`
}

type journalView struct {
	model.JournalEntry
	Locked bool `json:"locked"`
}

// view opens sealed content. Entries that cannot be opened with the current
// key show a placeholder instead.
func (h *Handler) view(ctx context.Context, e model.JournalEntry) journalView {
	v := journalView{JournalEntry: e}
	if !e.Sensitive {
		return v
	}
	if h.sealer == nil {
		v.Content = appI18n.T(ctx, "SealedPlaceholder")
		v.Locked = true
		return v
	}
	text, err := h.sealer.Open(e.Sealed)
	if err != nil {
		if !errors.Is(err, journal.ErrSealed) {
			slog.Error("failed to open journal entry", "id", e.ID, "error", err)
		}
		v.Content = appI18n.T(ctx, "SealedPlaceholder")
		v.Locked = true
		return v
	}
	v.Content = text
	return v
}

// fill validates req and stores its body into e, sealing it when sensitive.
func (h *Handler) fill(e *model.JournalEntry, req journalRequest) (int, string) {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return http.StatusBadRequest, "content is required"
	}
	if len(req.Content) > maxEntryLength {
		return http.StatusBadRequest, "content too long"
	}
	if !req.Mood.Valid() {
		return http.StatusBadRequest, "unknown mood"
	}
	e.Mood = req.Mood
	e.Sensitive = req.Sensitive
	if !req.Sensitive {
		e.Content = req.Content
		e.Sealed = nil
		return 0, ""
	}
	if h.sealer == nil {
		return http.StatusBadRequest, "sensitive entries are not enabled"
	}
	box, err := h.sealer.Seal(req.Content)
	if err != nil {
		slog.Error("failed to seal journal entry", "error", err)
		return http.StatusInternalServerError, "internal error"
	}
	e.Content = ""
	e.Sealed = box
	return 0, ""
}

func (h *Handler) handleListJournal(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	mood := model.Mood(r.URL.Query().Get("mood"))
	// No mood lists every entry.
	if mood != "" && !mood.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown mood")
		return
	}
	entries, err := h.store.ListJournalEntries(p.ID, mood)
	if err != nil {
		slog.Error("failed to list journal", "profile", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]journalView, len(entries))
	for i, e := range entries {
		out[i] = h.view(r.Context(), e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCreateJournal(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	var req journalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	e := model.JournalEntry{ProfileID: p.ID}
	if status, msg := h.fill(&e, req); status != 0 {
		writeError(w, status, errorCode(status), msg)
		return
	}
	id, err := h.store.CreateJournalEntry(e)
	if err != nil {
		slog.Error("failed to create journal entry", "profile", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeEntry(w, r, p.ID, id, http.StatusCreated)
}

func (h *Handler) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	id, err := idParam(r, "entryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid entry ID")
		return
	}
	h.writeEntry(w, r, p.ID, id, http.StatusOK)
}

func (h *Handler) writeEntry(w http.ResponseWriter, r *http.Request, profileID, id int64, status int) {
	e, err := h.store.GetJournalEntry(profileID, id)
	if err != nil {
		slog.Error("failed to get journal entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown journal entry")
		return
	}
	writeJSON(w, status, h.view(r.Context(), *e))
}

func (h *Handler) handleUpdateJournal(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	id, err := idParam(r, "entryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid entry ID")
		return
	}
	var req journalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	e := model.JournalEntry{ID: id, ProfileID: p.ID}
	if status, msg := h.fill(&e, req); status != 0 {
		writeError(w, status, errorCode(status), msg)
		return
	}
	if err := h.store.UpdateJournalEntry(e); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "unknown journal entry")
			return
		}
		slog.Error("failed to update journal entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.writeEntry(w, r, p.ID, id, http.StatusOK)
}

func (h *Handler) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	id, err := idParam(r, "entryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid entry ID")
		return
	}
	if err := h.store.DeleteJournalEntry(p.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "unknown journal entry")
			return
		}
		slog.Error("failed to delete journal entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moodCount struct {
	Mood  model.Mood `json:"mood"`
	Count int        `json:"count"`
}

func (h *Handler) handleMoodSummary(w http.ResponseWriter, r *http.Request) {
	p := model.ProfileFromContext(r.Context())
	summary, err := h.store.MoodSummary(p.ID)
	if err != nil {
		slog.Error("failed to summarize moods", "profile", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]moodCount, len(model.Moods))
	for i, m := range model.Moods {
		out[i] = moodCount{Mood: m, Count: summary[m]}
	}
	writeJSON(w, http.StatusOK, out)
}
