// ABOUTME: Ledger entry endpoints plus invite issuance for an existing group
// ABOUTME: Ledger dates are plain YYYY-MM-DD strings, amounts are integer cents

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hearth-dev/hearth/internal/session"
	"github.com/hearth-dev/hearth/internal/store"
)

type ledgerJSON struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	AmountCents int64     `json:"amountCents"`
	EntryDate   string    `json:"entryDate"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toLedgerJSON(l *store.Ledger) ledgerJSON {
	return ledgerJSON{
		ID:          l.ID,
		Title:       l.Title,
		AmountCents: l.AmountCents,
		EntryDate:   l.EntryDate,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   l.CreatedAt,
	}
}

func (s *Server) handleLedgerList(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ledgers, err := s.store.ListLedgers(r.Context(), sess.GroupID)
	if err != nil {
		s.logger.Error("failed to list ledgers", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]ledgerJSON, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, toLedgerJSON(l))
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"ledgers": out})
}

type ledgerCreateRequest struct {
	Title       string `json:"title"`
	AmountCents int64  `json:"amountCents"`
	EntryDate   string `json:"entryDate"`
}

func (s *Server) handleLedgerCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req ledgerCreateRequest
	decodeBody(r, &req)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.sendJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	if _, err := time.Parse("2006-01-02", req.EntryDate); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "entryDate must be YYYY-MM-DD")
		return
	}

	ledger := &store.Ledger{
		GroupID:     sess.GroupID,
		Title:       title,
		AmountCents: req.AmountCents,
		EntryDate:   req.EntryDate,
		CreatedBy:   sess.MemberID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateLedger(r.Context(), ledger); err != nil {
		s.logger.Error("failed to create ledger", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("ledger", "error")
		return
	}

	s.recordMutation("ledger", "success")
	s.sendJSON(w, http.StatusOK, map[string]any{"success": true, "ledger": toLedgerJSON(ledger)})
}

type inviteCreateRequest struct {
	Role      string `json:"role"`
	ExpiresIn string `json:"expiresIn"` // Go duration string, optional
}

// handleInviteCreate issues a new single-use invite code for the caller's group.
func (s *Server) handleInviteCreate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req inviteCreateRequest
	decodeBody(r, &req)

	var expiresAt *time.Time
	if req.ExpiresIn != "" {
		dur, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || dur <= 0 {
			s.sendJSONError(w, http.StatusBadRequest, "expiresIn must be a positive duration")
			return
		}
		t := time.Now().Add(dur)
		expiresAt = &t
	}

	invite := &store.InviteCode{
		ID:        uuid.NewString(),
		GroupID:   sess.GroupID,
		Code:      newInviteCode(),
		Role:      strings.TrimSpace(req.Role),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateInvite(r.Context(), invite); err != nil {
		s.logger.Error("failed to create invite", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		s.recordMutation("invite", "error")
		return
	}

	s.recordMutation("invite", "success")
	resp := map[string]any{"success": true, "code": invite.Code}
	if expiresAt != nil {
		resp["expiresAt"] = expiresAt
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// newInviteCode generates an 8-character uppercase code from a UUID's entropy.
func newInviteCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:8]
}
