package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
)

const maxUploadBytes = 10 << 20

type createProfileRequest struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

type languageRequest struct {
	Language string `json:"language"`
}

func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 8 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	p := model.Profile{Name: req.Name}
	if req.PIN != "" {
		if !validPIN(req.PIN) {
			writeError(w, http.StatusBadRequest, "bad_request", "pin must be 4 to 8 digits")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("failed to hash pin", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
		p.PINHash = string(hash)
	}

	id, err := h.store.CreateProfile(p)
	if err != nil {
		writeError(w, http.StatusConflict, "conflict", "profile name already taken")
		return
	}
	created, err := h.store.GetProfile(id)
	if err != nil || created == nil {
		slog.Error("failed to reload profile", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type profileView struct {
	model.Profile
	HasPIN bool `json:"has_pin"`
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles()
	if err != nil {
		slog.Error("failed to list profiles", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	out := make([]profileView, len(profiles))
	for i, p := range profiles {
		out[i] = profileView{Profile: p, HasPIN: p.HasPIN()}
	}
	writeJSON(w, http.StatusOK, out)
}

// profileOr404 loads the {profileID} profile, answering 404 when it is missing.
func (h *Handler) profileOr404(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	id, err := idParam(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid profile ID")
		return nil, false
	}
	p, err := h.store.GetProfile(id)
	if err != nil {
		slog.Error("failed to get profile", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return nil, false
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown profile")
		return nil, false
	}
	return p, true
}

func (h *Handler) handleProfileBadges(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profileOr404(w, r)
	if !ok {
		return
	}
	badges, err := h.store.ListBadges(p.ID)
	if err != nil {
		slog.Error("failed to list badges", "profile", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *Handler) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profileOr404(w, r)
	if !ok {
		return
	}
	a, err := h.store.GetAvatar(p.ID)
	if err != nil {
		slog.Warn("failed to read avatar, using default", "profile", p.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"avatar": a,
		"options": map[string][]string{
			"style":     model.AvatarStyles,
			"hair":      model.AvatarHair,
			"skin_tone": model.AvatarSkinTones,
		},
	})
}

type setPINRequest struct {
	Current string `json:"current_pin"`
	PIN     string `json:"pin"` // empty removes the PIN
}

// handleSetPIN changes or removes the logged-in profile's PIN. The current
// PIN must be repeated when one is set.
func (h *Handler) handleSetPIN(w http.ResponseWriter, r *http.Request) {
	id, ok := sameProfile(r)
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "not your profile")
		return
	}
	var req setPINRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.PIN != "" && !validPIN(req.PIN) {
		writeError(w, http.StatusBadRequest, "bad_request", "pin must be 4 to 8 digits")
		return
	}

	profile := model.ProfileFromContext(r.Context())
	if profile.HasPIN() {
		if err := bcrypt.CompareHashAndPassword([]byte(profile.PINHash), []byte(req.Current)); err != nil {
			writeError(w, http.StatusUnauthorized, "wrong_pin", appI18n.T(r.Context(), "WrongPIN"))
			return
		}
	}

	var hash []byte
	if req.PIN != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost); err != nil {
			slog.Error("failed to hash pin", "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
	}
	if err := h.store.SetProfilePIN(id, string(hash)); err != nil {
		slog.Error("failed to save pin", "profile", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	slog.Info("profile pin changed", "profile", id, "has_pin", req.PIN != "")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := sameProfile(r)
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "not your profile")
		return
	}
	var a model.Avatar
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !slices.Contains(model.AvatarStyles, a.Style) ||
		!slices.Contains(model.AvatarHair, a.Hair) ||
		!slices.Contains(model.AvatarSkinTones, a.SkinTone) {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown avatar option")
		return
	}
	if err := h.store.SetAvatar(id, a); err != nil {
		slog.Error("failed to save avatar", "profile", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := sameProfile(r)
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", "not your profile")
		return
	}
	var req languageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	lang := h.catalog.Match(req.Language)
	if err := h.store.SetPreferredLanguage(id, lang); err != nil {
		slog.Error("failed to save language", "profile", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	h.setLangCookie(w, lang)
	writeJSON(w, http.StatusOK, map[string]string{"language": lang})
}

// handleUploadContent adds a question file named like quizzes_<lang>.json to
// the live bank. Re-uploading identical content is a no-op.
func (h *Handler) handleUploadContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "file too large")
		return
	}

	file, header, err := r.FormFile("questions_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to read file")
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])
	hashKey := "content:" + header.Filename

	storedHash, err := h.store.GetValue(hashKey)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if storedHash == hash {
		writeJSON(w, http.StatusOK, map[string]any{"file": header.Filename, "duplicate": true, "count": 0})
		return
	}

	lang, n, err := h.bank.LoadBytes(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_content", err.Error())
		return
	}
	if err := h.store.SetValue(hashKey, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("uploaded questions", "filename", header.Filename, "lang", lang, "count", n)
	writeJSON(w, http.StatusCreated, map[string]any{
		"file":     header.Filename,
		"language": lang,
		"count":    n,
	})
}
