// ABOUTME: Chat thread and message endpoints
// ABOUTME: All lookups carry the session's group scope; misses are uniform 404s

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
)

type threadJSON struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toThreadJSON(t *store.ChatThread) threadJSON {
	return threadJSON{
		ID:        t.ID,
		Title:     t.Title,
		Status:    t.Status,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type messageJSON struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"threadId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageJSON(m *store.ChatMessage) messageJSON {
	return messageJSON{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		AuthorID:  m.AuthorMemberID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func (s *Server) handleThreadList(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	threads, err := s.store.ListThreads(r.Context(), sess.GroupID)
	if err != nil {
		s.logger.Error("failed to list threads", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]threadJSON, 0, len(threads))
	for _, t := range threads {
		out = append(out, toThreadJSON(t))
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"threads": out})
}

func (s *Server) handleThreadGet(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("threadId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	thread, err := s.store.GetThread(r.Context(), sess.GroupID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get thread", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"thread": toThreadJSON(thread)})
}

type threadCreateRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleThreadCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req threadCreateRequest
	decodeBody(r, &req)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := time.Now()
	thread := &store.ChatThread{
		GroupID:   sess.GroupID,
		Title:     title,
		CreatedBy: sess.MemberID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateThread(r.Context(), thread); err != nil {
		s.logger.Error("failed to create thread", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("thread", "error")
		return
	}

	s.recordMutation("thread", "success")
	s.views.Invalidate(views.Key(sess.GroupID, "threads"))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "thread": toThreadJSON(thread)})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleThreadStatus(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("threadId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req statusRequest
	decodeBody(r, &req)
	if !store.ValidThreadStatus(req.Status) {
		s.sendJSONError(w, http.StatusBadRequest, "status must be OPEN or CLOSED")
		return
	}

	thread, err := s.store.UpdateThreadStatus(r.Context(), sess.GroupID, id, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update thread status", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("thread", "error")
		return
	}

	s.recordMutation("thread", "success")
	s.views.Invalidate(views.Key(sess.GroupID, "threads"), views.Key(sess.GroupID, fmt.Sprintf("thread/%d", id)))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "thread": toThreadJSON(thread)})
}

func (s *Server) handleMessageList(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("threadId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	// Thread must exist within the caller's group before listing
	if _, err := s.store.GetThread(r.Context(), sess.GroupID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusNotFound, "not found")
			return
		}
		s.logger.Error("failed to get thread", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	msgs, err := s.store.ListThreadMessages(r.Context(), sess.GroupID, id)
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageJSON(m))
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"messages": out})
}

type messageCreateRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleMessageCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("threadId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req messageCreateRequest
	decodeBody(r, &req)
	if strings.TrimSpace(req.Body) == "" {
		s.sendJSONError(w, http.StatusBadRequest, "body is required")
		return
	}

	thread, err := s.store.GetThread(r.Context(), sess.GroupID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get thread", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if thread.Status == store.ThreadStatusClosed {
		s.sendJSONError(w, http.StatusBadRequest, "thread is closed")
		return
	}

	msg := &store.ChatMessage{
		ThreadID:       id,
		GroupID:        sess.GroupID,
		AuthorMemberID: sess.MemberID,
		Body:           req.Body,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateMessage(r.Context(), msg); err != nil {
		s.logger.Error("failed to create message", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("message", "error")
		return
	}

	s.recordMutation("message", "success")
	s.views.Invalidate(views.Key(sess.GroupID, "threads"), views.Key(sess.GroupID, fmt.Sprintf("thread/%d", id)))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "message": toMessageJSON(msg)})
}
