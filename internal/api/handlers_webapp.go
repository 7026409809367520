package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"spinify/internal/database"
	"spinify/internal/service"
)

// syncResponse is the single payload the WebApp needs to render the panel.
type syncResponse struct {
	OK         bool       `json:"ok"`
	UserID     int64      `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	Ad         string     `json:"ad"`
	Interval   int        `json:"interval"`
	Plan       string     `json:"plan"`
	Joined     bool       `json:"joined"`
	HasSession bool       `json:"has_session"`
	GroupCap   int        `json:"group_cap"`
	Groups     []string   `json:"groups"`
	Stats      statsBlock `json:"stats"`
}

type statsBlock struct {
	Users    int64 `json:"users"`
	Sessions int64 `json:"sessions"`
	Groups   int64 `json:"groups"`
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	groups, err := s.groups.ListGroups(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hasSession, err := s.sess.HasSession(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	totals, err := s.stats.GetStats(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	links := make([]string, 0, len(groups))
	for _, g := range groups {
		links = append(links, g.GroupLink)
	}

	writeJSON(w, http.StatusOK, syncResponse{
		OK:         true,
		UserID:     user.UserID,
		Username:   user.Username.String,
		Ad:         user.AdMessage.String,
		Interval:   user.IntervalMinutes,
		Plan:       user.Plan,
		Joined:     user.JoinedOK,
		HasSession: hasSession,
		GroupCap:   s.users.GroupCap(user),
		Groups:     links,
		Stats: statsBlock{
			Users:    totals.Users,
			Sessions: totals.Sessions,
			Groups:   totals.Groups,
		},
	})
}

func (s *HTTPServer) handleSaveAd(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.users.SetAdMessage(r.Context(), userID, strings.TrimSpace(body.Text)); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleSetInterval(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.users.SetInterval(r.Context(), userID, body.Minutes)
	switch {
	case errors.Is(err, service.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "minutes": body.Minutes})
}

func (s *HTTPServer) handleAddGroup(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Group string `json:"group"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	link, evicted, err := s.groups.AddGroup(r.Context(), userID, body.Group)
	switch {
	case errors.Is(err, service.ErrInvalidGroupLink):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, database.ErrDuplicateGroup):
		writeError(w, http.StatusConflict, "group already added")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"ok": true, "link": link}
	if len(evicted) > 0 {
		resp["evicted"] = evicted
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleAddGroupsBulk(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Groups []string `json:"groups"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Groups) == 0 {
		writeError(w, http.StatusBadRequest, "groups is required")
		return
	}

	result, err := s.groups.AddGroups(r.Context(), userID, body.Groups)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

func (s *HTTPServer) handleRemoveGroup(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Group string `json:"group"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.groups.RemoveGroup(r.Context(), userID, body.Group)
	switch {
	case errors.Is(err, service.ErrInvalidGroupLink):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, database.ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "group not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleClearGroups(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.groups.ClearGroups(r.Context(), userID); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
