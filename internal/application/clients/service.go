package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/addr-verify-api/internal/domain"
	"github.com/addr-verify-api/internal/pkg/id"
	"github.com/addr-verify-api/internal/pkg/validate"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type clientStore interface {
	Get(ctx context.Context, id int64) (*domain.ClientRecord, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error)
	Page(ctx context.Context, page, limit int, status, search string) ([]domain.ClientRecord, int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountUpdatedSince(ctx context.Context, status string, since time.Time) (int, error)
}

type auditStore interface {
	Put(ctx context.Context, e *domain.AuditEntry) error
}

type verificationSender interface {
	SendVerification(rec *domain.ClientRecord) error
}

// ListResult is one page of the admin dashboard listing.
type ListResult struct {
	Clients []domain.ClientRecord `json:"clients"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}

type Service interface {
	List(ctx context.Context, page, limit int, status, search string) (*ListResult, error)
	Get(ctx context.Context, id int64) (*domain.ClientRecord, error)
	Update(ctx context.Context, id int64, actor string, req domain.UpdateClientRequest) (*domain.ClientRecord, error)
	UpdateTemplateGroup(ctx context.Context, id int64, actor, group string) (*domain.ClientRecord, error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
	ResendVerification(ctx context.Context, id int64) (*domain.ClientRecord, error)
}

type service struct {
	repo     clientStore
	audit    auditStore
	notifier verificationSender
}

type ServiceDeps struct {
	ClientRepo clientStore
	AuditRepo  auditStore
	Notifier   verificationSender
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ClientRepo, audit: deps.AuditRepo, notifier: deps.Notifier}
}

func (s *service) List(ctx context.Context, page, limit int, status, search string) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if status != "" && !validStatus(status) {
		return nil, fmt.Errorf("status filter %q: %w", status, domain.ErrBadRequest)
	}

	records, total, err := s.repo.Page(ctx, page, limit, status, search)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return &ListResult{Clients: records, Total: total, Page: page, Limit: limit}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*domain.ClientRecord, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) Update(ctx context.Context, clientID int64, actor string, req domain.UpdateClientRequest) (*domain.ClientRecord, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	updated, err := s.repo.Update(ctx, clientID, map[string]interface{}{
		"first_name":   validate.Sanitize(req.FirstName),
		"last_name":    validate.Sanitize(req.LastName),
		"phone_number": validate.Sanitize(req.PhoneNumber),
		"alt_number":   validate.SanitizePtr(req.AltNumber),
		"address":      validate.Sanitize(req.Address),
	})
	if err != nil {
		return nil, fmt.Errorf("update client %d: %w", clientID, err)
	}

	s.writeAudit(ctx, clientID, actor, "admin edited client record")
	return updated, nil
}

func (s *service) UpdateTemplateGroup(ctx context.Context, clientID int64, actor, group string) (*domain.ClientRecord, error) {
	var value *string
	if g := validate.Sanitize(group); g != "" {
		value = &g
	}
	updated, err := s.repo.Update(ctx, clientID, map[string]interface{}{"template_group": value})
	if err != nil {
		return nil, fmt.Errorf("update template group for client %d: %w", clientID, err)
	}

	s.writeAudit(ctx, clientID, actor, fmt.Sprintf("admin set template group to %q", group))
	return updated, nil
}

func (s *service) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}

	counts := map[string]*int{
		domain.StatusConfirmed: &stats.Confirmed,
		domain.StatusUpdated:   &stats.Updated,
		domain.StatusPending:   &stats.Pending,
	}
	for status, dst := range counts {
		n, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s clients: %w", status, err)
		}
		*dst = n
	}
	stats.TotalClients = stats.Confirmed + stats.Updated + stats.Pending

	if stats.TotalClients > 0 {
		stats.ConfirmationRate = (stats.Confirmed + stats.Updated) * 100 / stats.TotalClients
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	today, err := s.repo.CountUpdatedSince(ctx, domain.StatusUpdated, midnight)
	if err != nil {
		return nil, fmt.Errorf("count today's updates: %w", err)
	}
	stats.TodayUpdates = today

	recent, err := s.repo.CountUpdatedSince(ctx, domain.StatusUpdated, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count recent updates: %w", err)
	}
	stats.RecentUpdateCount = recent

	return stats, nil
}

func (s *service) ResendVerification(ctx context.Context, clientID int64) (*domain.ClientRecord, error) {
	rec, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if rec.VerificationToken == nil || *rec.VerificationToken == "" {
		return nil, fmt.Errorf("client %d has no verification token: %w", clientID, domain.ErrConflict)
	}
	if err := s.notifier.SendVerification(rec); err != nil {
		return nil, fmt.Errorf("resend verification email: %w", err)
	}
	return rec, nil
}

func validStatus(status string) bool {
	switch status {
	case "all", domain.StatusPending, domain.StatusUpdated, domain.StatusConfirmed:
		return true
	}
	return false
}

func (s *service) writeAudit(ctx context.Context, clientID int64, actor, detail string) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		EntryID:   id.New(),
		Action:    domain.AuditAdminEdit,
		ClientID:  clientID,
		Actor:     actor,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Put(ctx, entry); err != nil {
		slog.Warn("failed to write admin audit entry", "client_id", clientID, "err", err)
	}
}
