// ABOUTME: Todo item endpoints
// ABOUTME: Status transitions are unrestricted within the enumerated set

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
)

type todoJSON struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toTodoJSON(t *store.TodoItem) todoJSON {
	return todoJSON{
		ID:        t.ID,
		Title:     t.Title,
		Status:    t.Status,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (s *Server) handleTodoList(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	todos, err := s.store.ListTodos(r.Context(), sess.GroupID)
	if err != nil {
		s.logger.Error("failed to list todos", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]todoJSON, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodoJSON(t))
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"todos": out})
}

func (s *Server) handleTodoGet(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("todoId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	todo, err := s.store.GetTodo(r.Context(), sess.GroupID, id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get todo", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"todo": toTodoJSON(todo)})
}

type todoCreateRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleTodoCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req todoCreateRequest
	decodeBody(r, &req)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := time.Now()
	todo := &store.TodoItem{
		GroupID:   sess.GroupID,
		Title:     title,
		CreatedBy: sess.MemberID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTodo(r.Context(), todo); err != nil {
		s.logger.Error("failed to create todo", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("todo", "error")
		return
	}

	s.recordMutation("todo", "success")
	s.views.Invalidate(views.Key(sess.GroupID, "todos"))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "todo": toTodoJSON(todo)})
}

func (s *Server) handleTodoStatus(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("todoId"))
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req statusRequest
	decodeBody(r, &req)
	if !store.ValidTodoStatus(req.Status) {
		s.sendJSONError(w, http.StatusBadRequest, "status must be TODO, IN_PROGRESS, or DONE")
		return
	}

	todo, err := s.store.UpdateTodoStatus(r.Context(), sess.GroupID, id, req.Status)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update todo status", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("todo", "error")
		return
	}

	s.recordMutation("todo", "success")
	s.views.Invalidate(views.Key(sess.GroupID, "todos"))
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "todo": toTodoJSON(todo)})
}
