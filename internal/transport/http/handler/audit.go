package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/addr-verify-api/internal/domain"
)

const defaultAuditLimit = 50

type auditLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// AuditHandler exposes the recent audit trail to the dashboard.
type AuditHandler struct {
	store auditLister
}

func NewAuditHandler(store auditLister) *AuditHandler { return &AuditHandler{store: store} }

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = defaultAuditLimit
	}
	entries, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Entries []domain.AuditEntry `json:"entries"`
	}{Entries: entries})
}
