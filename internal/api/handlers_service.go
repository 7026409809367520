package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"spinify/internal/database"
	"spinify/internal/repository"
	"spinify/internal/service"
)

// handleIssueNonce serves GET /api/v1/nonce/{user_id}. The login bot
// calls it after verifying the user so the panel can later exchange the
// nonce for the user's identity during session bind.
func (s *HTTPServer) handleIssueNonce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/v1/nonce/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx := r.Context()
	if _, err := s.users.Register(ctx, userID, ""); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	nonce, err := s.nonces.Issue(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"nonce":       nonce,
		"ttl_seconds": int(s.nonces.TTL().Seconds()),
	})
}

func (s *HTTPServer) handleSessionBind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Nonce         string `json:"nonce"`
		APIID         int    `json:"api_id"`
		APIHash       string `json:"api_hash"`
		SessionString string `json:"session_string"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	userID, err := s.nonces.Claim(ctx, body.Nonce)
	if errors.Is(err, repository.ErrNonceNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid or expired nonce")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	err = s.sess.Bind(ctx, userID, body.APIID, body.APIHash, body.SessionString)
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user_id": userID})
}

func (s *HTTPServer) handleSessionRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.sess.Revoke(r.Context(), body.UserID)
	switch {
	case errors.Is(err, database.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleUserByID routes /api/v1/users/{id} and its sub-resources.
func (s *HTTPServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	parts := strings.SplitN(rest, "/", 2)

	userID, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "plan":
			s.handleSetPlan(w, r, userID)
		case "joined":
			s.handleSetJoined(w, r, userID)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetUser(w, r, userID)
	case http.MethodDelete:
		s.handleDeleteUser(w, r, userID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request, userID int64) {
	ctx := r.Context()
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, database.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hasSession, err := s.sess.HasSession(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     user.UserID,
		"username":    user.Username.String,
		"interval":    user.IntervalMinutes,
		"plan":        user.Plan,
		"joined":      user.JoinedOK,
		"has_ad":      user.HasAd(),
		"has_session": hasSession,
		"group_cap":   s.users.GroupCap(user),
	})
}

func (s *HTTPServer) handleDeleteUser(w http.ResponseWriter, r *http.Request, userID int64) {
	err := s.users.DeleteUser(r.Context(), userID)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSetPlan(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.users.SetPlan(r.Context(), userID, body.Plan)
	switch {
	case errors.Is(err, service.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "plan": body.Plan})
}

func (s *HTTPServer) handleSetJoined(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Joined bool `json:"joined"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.users.SetJoined(r.Context(), userID, body.Joined)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleListGroupsByID serves GET /api/v1/groups/{user_id} for service
// consumers (the forward worker needs a user's target list).
func (s *HTTPServer) handleListGroupsByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, err := parseID(strings.TrimPrefix(r.URL.Path, "/api/v1/groups/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	groups, err := s.groups.ListGroups(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	links := make([]string, 0, len(groups))
	for _, g := range groups {
		links = append(links, g.GroupLink)
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "groups": links})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	totals, err := s.stats.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, statsBlock{Users: totals.Users, Sessions: totals.Sessions, Groups: totals.Groups})
}

func (s *HTTPServer) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	data, filename, err := s.export.ExportUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id")
	}
	return id, nil
}
