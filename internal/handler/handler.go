package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/shieldly/internal/content"
	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/journal"
	"github.com/pavelanni/shieldly/internal/llm"
	"github.com/pavelanni/shieldly/internal/metrics"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
	"github.com/pavelanni/shieldly/internal/store"
)

// Deps are the collaborators a Handler needs.
type Deps struct {
	Store   *store.Store
	Content *content.Bank
	Catalog *appI18n.Catalog
	Sealer  *journal.Sealer // nil disables sensitive journal entries
	Quizzes *quiz.Manager   // a fresh manager when nil
	Badges  []quiz.BadgeRule
	Clock   quiz.Clock       // RealClock when nil
	Helper  *llm.Helper      // rules-only when nil
	Metrics *metrics.Metrics // a private registry when nil

	// AdminToken guards content uploads. Uploads are disabled when empty.
	AdminToken string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	bank       *content.Bank
	catalog    *appI18n.Catalog
	sealer     *journal.Sealer
	quizzes    *quiz.Manager
	badges     []quiz.BadgeRule
	clock      quiz.Clock
	helper     *llm.Helper
	metrics    *metrics.Metrics
	adminToken string
	config     model.QuizConfig
}

// New creates a new Handler.
func New(d Deps, cfg model.QuizConfig) (*Handler, error) {
	if d.Store == nil || d.Content == nil || d.Catalog == nil {
		return nil, errors.New("handler: store, content and catalog are required")
	}
	if d.Quizzes == nil {
		d.Quizzes = quiz.NewManager()
	}
	if d.Clock == nil {
		d.Clock = quiz.RealClock()
	}
	if d.Helper == nil {
		d.Helper = llm.NewHelper(nil)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	d.Metrics.TrackSessions(d.Quizzes.Len)
	return &Handler{
		store:      d.Store,
		bank:       d.Content,
		catalog:    d.Catalog,
		sealer:     d.Sealer,
		quizzes:    d.Quizzes,
		badges:     d.Badges,
		clock:      d.Clock,
		helper:     d.Helper,
		metrics:    d.Metrics,
		adminToken: d.AdminToken,
		config:     cfg,
	}, nil
}

// Quizzes returns the live session manager.
func (h *Handler) Quizzes() *quiz.Manager { return h.quizzes }

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.catalog.Middleware)
	r.Use(h.loadProfile)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/languages", h.handleLanguages)
		r.Get("/categories", h.handleCategories)
		r.Get("/results", h.handleResults)
		r.Get("/results/{resultID}", h.handleGetResult)

		r.Post("/quiz", h.handleStartQuiz)
		r.Route("/quiz/{quizID}", func(r chi.Router) {
			r.Get("/", h.handleQuizState)
			r.Delete("/", h.handleEndQuiz)
			r.Post("/select", h.handleSelect)
			r.Post("/hint", h.handleHint)
			r.Post("/advance", h.handleAdvance)
			r.Post("/restart", h.handleRestart)
			r.Get("/result", h.handleQuizResult)
			r.Get("/live", h.handleLive)
		})

		r.Post("/profiles", h.handleCreateProfile)
		r.Get("/profiles", h.handleListProfiles)
		r.Route("/profiles/{profileID}", func(r chi.Router) {
			r.Post("/login", h.handleLogin)
			r.Get("/badges", h.handleProfileBadges)
			r.Get("/progress", h.handleProfileProgress)
			r.Get("/avatar", h.handleGetAvatar)
			r.With(h.requireProfile).Put("/avatar", h.handleSetAvatar)
			r.With(h.requireProfile).Put("/language", h.handleSetLanguage)
			r.With(h.requireProfile).Put("/pin", h.handleSetPIN)
		})
		r.Post("/logout", h.handleLogout)

		r.Post("/helper", h.handleHelper)

		r.Route("/journal", func(r chi.Router) {
			r.Use(h.requireProfile)
			r.Get("/", h.handleListJournal)
			r.Post("/", h.handleCreateJournal)
			r.Get("/moods", h.handleMoodSummary)
			r.Get("/{entryID}", h.handleGetJournal)
			r.Put("/{entryID}", h.handleUpdateJournal)
			r.Delete("/{entryID}", h.handleDeleteJournal)
		})

		if h.adminToken != "" {
			r.With(h.requireAdmin).Post("/content", h.handleUploadContent)
		}
	})
}

// path prefixes p with the configured base path. Routes are mounted under
// the same prefix by the caller.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.quizzes.Len(),
	})
}

func (h *Handler) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current":  model.LanguageFromContext(r.Context()),
		"ui":       h.catalog.Languages(),
		"content":  h.bank.Languages(),
		"fallback": h.bank.Fallback(),
	})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	lang := h.bank.Resolve(model.LanguageFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"language":   lang,
		"all":        appI18n.T(r.Context(), "AllCategories"),
		"categories": h.bank.Categories(lang),
		"count":      appI18n.Tp(r.Context(), "QuestionsAvailable", len(h.bank.Questions(lang))),
	})
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	var profileID *int64
	if raw := r.URL.Query().Get("profile_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid profile_id")
			return
		}
		profileID = &id
	}
	results, err := h.store.ListResults(profileID)
	if err != nil {
		slog.Error("failed to list results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if results == nil {
		results = []model.StoredResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "resultID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid result id")
		return
	}
	res, err := h.store.GetResult(id)
	if err != nil {
		slog.Error("failed to load result", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if res == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown result")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "login_required"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		return "internal"
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
