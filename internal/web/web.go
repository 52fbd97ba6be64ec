// ABOUTME: Server-rendered HTML pages for threads and todos
// ABOUTME: Renders through the view cache so mutations invalidate stale pages

package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
	"github.com/hearth-dev/hearth/internal/views"
)

// Web serves the HTML pages. Pages are gated by the same session cookie as
// the API and cached per group in the view cache.
type Web struct {
	store    store.Store
	sessions *session.Codec
	views    *views.Cache
	logger   *slog.Logger
}

// New creates the web page handler.
func New(st store.Store, sessions *session.Codec, vc *views.Cache, logger *slog.Logger) *Web {
	if logger == nil {
		logger = slog.Default()
	}
	return &Web{
		store:    st,
		sessions: sessions,
		views:    vc,
		logger:   logger.With("component", "web"),
	}
}

// RegisterRoutes registers the page routes on the given mux.
func (h *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /threads", h.requireSession(h.handleThreadsPage))
	mux.HandleFunc("GET /threads/{threadId}", h.requireSession(h.handleThreadPage))
	mux.HandleFunc("GET /todos", h.requireSession(h.handleTodosPage))
}

type pageHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (h *Web) requireSession(next pageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.sessions.Resolve(r)
		if !ok {
			http.Error(w, "join the group to view this page", http.StatusUnauthorized)
			return
		}
		next(w, r, sess)
	}
}

// serveCached writes the cached rendering of a view if present, otherwise
// renders it, stores it, and writes it.
func (h *Web) serveCached(w http.ResponseWriter, key string, render func() (string, error)) {
	if html, ok := h.views.Get(key); ok {
		writeHTML(w, html)
		return
	}

	html, err := render()
	if err != nil {
		h.logger.Error("failed to render page", "view", key, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.views.Put(key, html)
	writeHTML(w, html)
}

func writeHTML(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

type threadsPageData struct {
	Title   string
	Threads []*store.ChatThread
}

func (h *Web) handleThreadsPage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.serveCached(w, views.Key(sess.GroupID, "threads"), func() (string, error) {
		threads, err := h.store.ListThreads(r.Context(), sess.GroupID)
		if err != nil {
			return "", err
		}
		return renderPage("threads.html", threadsPageData{Title: "Threads", Threads: threads})
	})
}

type messageItem struct {
	Author    string
	CreatedAt string
	Body      template.HTML
}

type threadPageData struct {
	Title    string
	Thread   *store.ChatThread
	Messages []messageItem
}

func (h *Web) handleThreadPage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, ok := parseID(r.PathValue("threadId"))
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	thread, err := h.store.GetThread(r.Context(), sess.GroupID, id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("failed to get thread", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.serveCached(w, views.Key(sess.GroupID, fmt.Sprintf("thread/%d", id)), func() (string, error) {
		msgs, err := h.store.ListThreadMessages(r.Context(), sess.GroupID, id)
		if err != nil {
			return "", err
		}
		names, err := h.memberNames(r, sess.GroupID)
		if err != nil {
			return "", err
		}

		items := make([]messageItem, 0, len(msgs))
		for _, m := range msgs {
			items = append(items, messageItem{
				Author:    names[m.AuthorMemberID],
				CreatedAt: m.CreatedAt.Format("2006-01-02 15:04"),
				Body:      renderMarkdown(m.Body, h.logger),
			})
		}
		return renderPage("thread.html", threadPageData{Title: thread.Title, Thread: thread, Messages: items})
	})
}

type todosPageData struct {
	Title string
	Todos []*store.TodoItem
}

func (h *Web) handleTodosPage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	h.serveCached(w, views.Key(sess.GroupID, "todos"), func() (string, error) {
		todos, err := h.store.ListTodos(r.Context(), sess.GroupID)
		if err != nil {
			return "", err
		}
		return renderPage("todos.html", todosPageData{Title: "Todos", Todos: todos})
	})
}

func (h *Web) memberNames(r *http.Request, groupID string) (map[string]string, error) {
	members, err := h.store.ListMembers(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}
	return names, nil
}

// renderMarkdown converts a message body to sanitized-enough HTML. goldmark
// escapes raw HTML by default, so message authors cannot inject markup.
func renderMarkdown(body string, logger *slog.Logger) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		logger.Error("failed to convert markdown", "error", err)
		return template.HTML("<p>failed to render message</p>")
	}
	return template.HTML(buf.String())
}

func renderPage(page string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+page)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
