package api

import (
	"errors"
	"fmt"
	"net/http"

	"exoplanet-ai/internal/auth"
	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/storage"

	"github.com/google/uuid"
)

const defaultTheme = "dark"

type sessionResponse struct {
	statusBody
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
	Username     string `json:"username"`
}

// SettingsRequest is the payload of POST /settings.
type SettingsRequest struct {
	UserID   string `json:"user_id"`
	Language string `json:"language" validate:"omitempty,oneof=en ru"`
	Theme    string `json:"theme" validate:"omitempty,oneof=dark light"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if err := decodeJSON(w, r, &reg); err != nil {
		writeError(w, err)
		return
	}

	user, sess, err := s.auth.Register(reg)
	if errors.Is(err, common.ErrConflict) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Email already registered"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		statusBody:   ok("User registered successfully"),
		UserID:       user.ID,
		SessionToken: sess.Token,
		Username:     user.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	user, sess, err := s.auth.Login(creds)
	if errors.Is(err, common.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid email or password"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		statusBody:   ok("Login successful"),
		UserID:       user.ID,
		SessionToken: sess.Token,
		Username:     user.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(auth.TokenFromRequest(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Logout successful"))
}

// handleUserID hands out an anonymous id with default settings.
func (s *Server) handleUserID(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	id := uuid.NewString()
	err := s.store.PutSettings(storage.Settings{
		UserID:    id,
		Language:  s.cfg.DefaultLanguage,
		Theme:     defaultTheme,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": id})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := common.CheckStruct(s.validate, req, "invalid settings"); err != nil {
		writeError(w, err)
		return
	}

	userID := req.UserID
	if userID == "" {
		if c := s.identify(r); c.account != nil {
			userID = c.account.ID
		}
	}
	if userID == "" {
		writeError(w, common.NewValidationError("user_id or a session is required", "user_id"))
		return
	}

	now := s.now().UTC()
	st, err := s.store.GetSettings(userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		st = storage.Settings{UserID: userID, Language: s.cfg.DefaultLanguage, Theme: defaultTheme, CreatedAt: now}
	case err != nil:
		writeError(w, err)
		return
	}
	if req.Language != "" {
		st.Language = req.Language
	}
	if req.Theme != "" {
		st.Theme = req.Theme
	}
	st.UpdatedAt = now

	if err := s.store.PutSettings(st); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok("Settings saved successfully"))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	c := s.identify(r)
	lang := string(s.language(r, c))
	if c.account == nil {
		writeJSON(w, http.StatusOK, auth.GuestProfile(s.now(), lang))
		return
	}
	writeJSON(w, http.StatusOK, auth.UserProfile(*c.account, lang))
}

// FeedbackRequest is the payload of POST /help.
type FeedbackRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
	UserID  string `json:"user_id,omitempty"`
}

type feedbackResponse struct {
	statusBody
	ReceivedData FeedbackRequest `json:"received_data"`
}

type feedbackStats struct {
	Total  int                `json:"total_feedback"`
	Latest []storage.Feedback `json:"latest_feedback"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := common.CheckStruct(s.validate, req, "invalid feedback"); err != nil {
		writeError(w, err)
		return
	}

	f := storage.Feedback{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		UserID:    req.UserID,
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
	}
	if err := s.store.AddFeedback(f); err != nil {
		writeError(w, fmt.Errorf("store feedback: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{
		statusBody:   ok("Thank you for your feedback!"),
		ReceivedData: req,
	})
}

func (s *Server) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	total, latest, err := s.store.FeedbackStats(common.FeedbackPreview)
	if err != nil {
		writeError(w, err)
		return
	}
	if latest == nil {
		latest = []storage.Feedback{}
	}
	writeJSON(w, http.StatusOK, feedbackStats{Total: total, Latest: latest})
}
