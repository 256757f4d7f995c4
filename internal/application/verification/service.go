package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/addr-verify-api/internal/domain"
	"github.com/addr-verify-api/internal/pkg/id"
	"github.com/addr-verify-api/internal/pkg/validate"
)

type clientStore interface {
	GetByToken(ctx context.Context, token string) (*domain.ClientRecord, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error)
}

type auditStore interface {
	Put(ctx context.Context, e *domain.AuditEntry) error
}

type alertSender interface {
	SendAdminAlert(rec *domain.ClientRecord, changes []domain.FieldChange) error
}

type Service interface {
	// Lookup resolves a verification token to its record. Expired tokens are
	// still accepted: expiry is only enforced by the next bulk reset
	// replacing the token outright.
	Lookup(ctx context.Context, token string) (*domain.ClientRecord, error)
	// Confirm applies a client's submission. An identical submission moves
	// the record to confirmed; any differing field moves it to updated and
	// triggers exactly one admin alert.
	Confirm(ctx context.Context, token string, req domain.UpdateClientRequest) (*domain.ClientRecord, bool, error)
}

type service struct {
	repo     clientStore
	audit    auditStore
	notifier alertSender
}

type ServiceDeps struct {
	ClientRepo clientStore
	AuditRepo  auditStore
	Notifier   alertSender
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.ClientRepo, audit: deps.AuditRepo, notifier: deps.Notifier}
}

func (s *service) Lookup(ctx context.Context, token string) (*domain.ClientRecord, error) {
	if token == "" {
		return nil, fmt.Errorf("empty verification token: %w", domain.ErrNotFound)
	}
	return s.repo.GetByToken(ctx, token)
}

func (s *service) Confirm(ctx context.Context, token string, req domain.UpdateClientRequest) (*domain.ClientRecord, bool, error) {
	rec, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, false, err
	}

	if err := validate.Struct(req); err != nil {
		return nil, false, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	req = sanitizeRequest(req)

	changes := diffFields(rec, req)
	target := domain.StatusConfirmed
	if len(changes) > 0 {
		target = domain.StatusUpdated
	}
	next, err := domain.Transition(rec.Status, target)
	if err != nil {
		return nil, false, err
	}

	updated, err := s.repo.Update(ctx, rec.ID, map[string]interface{}{
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"phone_number": req.PhoneNumber,
		"alt_number":   req.AltNumber,
		"address":      req.Address,
		"status":       next,
	})
	if err != nil {
		return nil, false, fmt.Errorf("persist confirmation: %w", err)
	}

	if len(changes) > 0 {
		if err := s.notifier.SendAdminAlert(updated, changes); err != nil {
			return nil, false, err
		}
	}

	s.writeAudit(ctx, updated, changes)
	return updated, len(changes) > 0, nil
}

func sanitizeRequest(req domain.UpdateClientRequest) domain.UpdateClientRequest {
	req.FirstName = validate.Sanitize(req.FirstName)
	req.LastName = validate.Sanitize(req.LastName)
	req.PhoneNumber = validate.Sanitize(req.PhoneNumber)
	req.AltNumber = validate.SanitizePtr(req.AltNumber)
	req.Address = validate.Sanitize(req.Address)
	return req
}

// diffFields compares the submission against the stored record field by
// field, treating nil, missing and empty string as the same value.
func diffFields(rec *domain.ClientRecord, req domain.UpdateClientRequest) []domain.FieldChange {
	stored := rec.RecordFields()
	submitted := req.Fields()

	fields := make([]string, 0, len(submitted))
	for f := range submitted {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var changes []domain.FieldChange
	for _, f := range fields {
		if stored[f] != submitted[f] {
			changes = append(changes, domain.FieldChange{Field: f, Old: stored[f], New: submitted[f]})
		}
	}
	return changes
}

func (s *service) writeAudit(ctx context.Context, rec *domain.ClientRecord, changes []domain.FieldChange) {
	if s.audit == nil {
		return
	}
	action := domain.AuditClientConfirm
	detail := "client confirmed stored details"
	if len(changes) > 0 {
		action = domain.AuditClientUpdate
		detail = fmt.Sprintf("client corrected %d field(s)", len(changes))
	}
	entry := &domain.AuditEntry{
		EntryID:   id.New(),
		Action:    action,
		ClientID:  rec.ID,
		Actor:     rec.Email,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Put(ctx, entry); err != nil {
		slog.Warn("failed to write confirmation audit entry", "client_id", rec.ID, "err", err)
	}
}
