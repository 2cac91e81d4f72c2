package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
)

const (
	sessionCookieName = "session"
	adminTokenHeader  = "X-Admin-Token"
)

type loginRequest struct {
	PIN string `json:"pin"`
}

// loadProfile puts the logged-in profile, if any, into the request context.
func (h *Handler) loadProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if authSess == nil {
			next.ServeHTTP(w, r)
			return
		}

		profile, err := h.store.GetProfile(authSess.ProfileID)
		if err != nil || profile == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := model.ContextWithProfile(r.Context(), profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireProfile rejects requests without a logged-in profile.
func (h *Handler) requireProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if model.ProfileFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "login_required", appI18n.T(r.Context(), "LoginRequired"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin checks the admin token header.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(adminTokenHeader)
		if len(token) != len(h.adminToken) || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			slog.Warn("admin token mismatch", "remote", r.RemoteAddr)
			writeError(w, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sameProfile reports whether the logged-in profile owns the {profileID} route.
func sameProfile(r *http.Request) (int64, bool) {
	id, err := idParam(r, "profileID")
	if err != nil {
		return 0, false
	}
	p := model.ProfileFromContext(r.Context())
	return id, p != nil && p.ID == id
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid profile ID")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	profile, err := h.store.GetProfile(id)
	if err != nil {
		slog.Error("failed to get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown profile")
		return
	}
	if profile.HasPIN() {
		if err := bcrypt.CompareHashAndPassword([]byte(profile.PINHash), []byte(req.PIN)); err != nil {
			writeError(w, http.StatusUnauthorized, "wrong_pin", appI18n.T(r.Context(), "WrongPIN"))
			return
		}
	}

	token, err := h.store.CreateAuthSession(profile.ID, h.config.LoginTTL)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})

	lang, err := h.store.GetPreferredLanguage(profile.ID)
	if err != nil {
		slog.Warn("failed to read preferred language", "profile", profile.ID, "error", err)
	}
	if lang != "" {
		h.setLangCookie(w, lang)
	}
	slog.Info("profile logged in", "profile", profile.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"profile":  profile,
		"language": lang,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setLangCookie(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     appI18n.LangCookie,
		Value:    lang,
		Path:     h.cookiePath(),
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
}
