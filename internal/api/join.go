// ABOUTME: Invite redemption endpoint that turns a code into a member and a session
// ABOUTME: Also the session introspection and leave endpoints

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
)

type joinRequest struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	decodeBody(r, &req)

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	displayName := strings.TrimSpace(req.DisplayName)

	if code == "" {
		s.sendJSONError(w, http.StatusBadRequest, "code is required")
		return
	}
	if displayName == "" {
		s.sendJSONError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	member, err := s.store.RedeemInvite(r.Context(), code, displayName)
	switch {
	case errors.Is(err, store.ErrInviteNotFound):
		s.sendJSONError(w, http.StatusBadRequest, "invalid invite code")
		s.recordMutation("member", "conflict")
		return
	case errors.Is(err, store.ErrInviteUsed):
		s.sendJSONError(w, http.StatusBadRequest, "invite code already used")
		s.recordMutation("member", "conflict")
		return
	case errors.Is(err, store.ErrInviteExpired):
		s.sendJSONError(w, http.StatusBadRequest, "invite code expired")
		s.recordMutation("member", "conflict")
		return
	case err != nil:
		s.logger.Error("failed to redeem invite", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := s.sessions.Issue(w, member.ID, member.GroupID); err != nil {
		s.logger.Error("failed to issue session", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.recordMutation("member", "success")
	s.sendJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"memberId": member.ID,
		"groupId":  member.GroupID,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	member, err := s.store.GetMember(r.Context(), sess.GroupID, sess.MemberID)
	if errors.Is(err, store.ErrNotFound) {
		// Session outlived the member row
		s.sessions.Clear(w)
		s.sendJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if err != nil {
		s.logger.Error("failed to load member", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{
		"memberId":    member.ID,
		"groupId":     member.GroupID,
		"displayName": member.DisplayName,
		"role":        member.Role,
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.sessions.Clear(w)
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true})
}
