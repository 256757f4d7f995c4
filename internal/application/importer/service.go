package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/addr-verify-api/internal/domain"
	"github.com/addr-verify-api/internal/pkg/id"
	pkgtoken "github.com/addr-verify-api/internal/pkg/token"
	"github.com/addr-verify-api/internal/pkg/validate"
)

// resetBatchSize is the number of records rewritten per bulk-reset batch.
const resetBatchSize = 100

type clientStore interface {
	NextID(ctx context.Context) (int64, error)
	Put(ctx context.Context, c *domain.ClientRecord) error
	GetByEmail(ctx context.Context, email string) (*domain.ClientRecord, error)
	GetByClientNumber(ctx context.Context, clientNumber string) (*domain.ClientRecord, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error)
	ScanAll(ctx context.Context) ([]domain.ClientRecord, error)
	BatchUpsert(ctx context.Context, records []domain.ClientRecord) error
}

type auditStore interface {
	Put(ctx context.Context, e *domain.AuditEntry) error
}

type verificationSender interface {
	SendVerification(rec *domain.ClientRecord) error
}

// ProgressPublisher receives per-row completion percentages. Implementations
// must tolerate unknown subscriber ids by dropping the event.
type ProgressPublisher interface {
	Publish(subscriberID string, percent float64)
}

type Service interface {
	// Run executes the full import pipeline for one uploaded file: parse,
	// reconcile every row, then (when at least one row succeeded) reset all
	// records to pending and email each one its fresh verification link.
	Run(ctx context.Context, filePath, originalName, subscriberID string) (*domain.ImportSummary, error)
	// ResetAllToPending rewrites every record to pending with a fresh token,
	// in batches. Returns the records actually written before any failure.
	ResetAllToPending(ctx context.Context) (int, []domain.ClientRecord, error)
}

type service struct {
	repo     clientStore
	audit    auditStore
	notifier verificationSender
	progress ProgressPublisher
}

type ServiceDeps struct {
	ClientRepo clientStore
	AuditRepo  auditStore
	Notifier   verificationSender
	Progress   ProgressPublisher
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.ClientRepo,
		audit:    deps.AuditRepo,
		notifier: deps.Notifier,
		progress: deps.Progress,
	}
}

func (s *service) Run(ctx context.Context, filePath, originalName, subscriberID string) (*domain.ImportSummary, error) {
	candidates, err := Parse(filePath, originalName)
	if err != nil {
		return nil, err
	}

	summary := &domain.ImportSummary{Outcomes: make([]domain.ImportOutcome, 0, len(candidates))}
	total := len(candidates)
	for i := range candidates {
		outcome := s.reconcileRow(ctx, &candidates[i])
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Status == domain.OutcomeError {
			summary.Failed++
		} else {
			summary.Successful++
		}

		if subscriberID != "" && s.progress != nil {
			s.progress.Publish(subscriberID, float64(i+1)/float64(total)*100)
		}
	}

	if summary.Successful > 0 {
		s.resetAndNotify(ctx, summary)
	}

	s.writeAudit(ctx, summary, originalName)
	return summary, nil
}

// reconcileRow decides create vs. update for one candidate. Row-level
// failures of any kind are folded into an error outcome; they never abort
// the batch.
func (s *service) reconcileRow(ctx context.Context, raw *domain.CandidateRecord) domain.ImportOutcome {
	cand := domain.CandidateRecord{
		ClientNumber:  validate.Sanitize(raw.ClientNumber),
		FirstName:     validate.Sanitize(raw.FirstName),
		LastName:      validate.Sanitize(raw.LastName),
		PhoneNumber:   validate.Sanitize(raw.PhoneNumber),
		AltNumber:     validate.SanitizePtr(raw.AltNumber),
		Address:       validate.Sanitize(raw.Address),
		Email:         validate.Sanitize(raw.Email),
		TemplateGroup: validate.SanitizePtr(raw.TemplateGroup),
	}

	if !validate.Email(cand.Email) {
		return errorOutcome(raw, domain.ErrInvalidEmail.Error())
	}

	existing, err := s.repo.GetByEmail(ctx, cand.Email)
	if err != nil && errors.Is(err, domain.ErrNotFound) && cand.ClientNumber != "" {
		existing, err = s.repo.GetByClientNumber(ctx, cand.ClientNumber)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return errorOutcome(raw, fmt.Sprintf("lookup failed: %v", err))
	}

	if existing != nil {
		updated, err := s.repo.Update(ctx, existing.ID, map[string]interface{}{
			"client_number":  cand.ClientNumber,
			"first_name":     cand.FirstName,
			"last_name":      cand.LastName,
			"phone_number":   cand.PhoneNumber,
			"alt_number":     cand.AltNumber,
			"address":        cand.Address,
			"email":          cand.Email,
			"template_group": cand.TemplateGroup,
			"has_changes":    true,
		})
		if err != nil {
			return errorOutcome(raw, fmt.Sprintf("update failed: %v", err))
		}
		return domain.ImportOutcome{Status: domain.OutcomeUpdated, Client: updated}
	}

	newID, err := s.repo.NextID(ctx)
	if err != nil {
		return errorOutcome(raw, fmt.Sprintf("create failed: %v", err))
	}
	tok, err := pkgtoken.New()
	if err != nil {
		return errorOutcome(raw, fmt.Sprintf("create failed: %v", err))
	}
	expiry := pkgtoken.Expiry()
	now := time.Now().UTC()
	rec := &domain.ClientRecord{
		ID:                newID,
		ClientNumber:      cand.ClientNumber,
		FirstName:         cand.FirstName,
		LastName:          cand.LastName,
		PhoneNumber:       cand.PhoneNumber,
		AltNumber:         cand.AltNumber,
		Address:           cand.Address,
		Email:             cand.Email,
		Status:            domain.StatusPending,
		VerificationToken: &tok,
		TokenExpiry:       &expiry,
		TemplateGroup:     cand.TemplateGroup,
		LastUpdated:       now,
		CreatedAt:         now,
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return errorOutcome(raw, fmt.Sprintf("create failed: %v", err))
	}
	return domain.ImportOutcome{Status: domain.OutcomeCreated, Client: rec}
}

// resetAndNotify runs the post-import phases. Phase failures degrade the
// summary instead of failing the import that already happened.
func (s *service) resetAndNotify(ctx context.Context, summary *domain.ImportSummary) {
	count, refreshed, err := s.ResetAllToPending(ctx)
	if err != nil {
		slog.Error("bulk reset after import failed", "written", count, "err", err)
		summary.BulkReset = &domain.BulkResetResult{UpdatedCount: count}
		summary.BulkResetError = err.Error()
		return
	}

	result := &domain.BulkResetResult{UpdatedCount: count}
	for i := range refreshed {
		if err := s.notifier.SendVerification(&refreshed[i]); err != nil {
			result.EmailsFailed++
			result.EmailFailures = append(result.EmailFailures, domain.EmailFailure{
				Email: refreshed[i].Email,
				Error: err.Error(),
			})
			slog.Warn("verification email failed", "email", refreshed[i].Email, "err", err)
			continue
		}
		result.EmailsSent++
	}
	summary.BulkReset = result
}

func (s *service) ResetAllToPending(ctx context.Context) (int, []domain.ClientRecord, error) {
	records, err := s.repo.ScanAll(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("load records for reset: %w", err)
	}
	if len(records) == 0 {
		return 0, nil, nil
	}

	now := time.Now().UTC()
	for i := range records {
		next, err := domain.Transition(records[i].Status, domain.StatusPending)
		if err != nil {
			return 0, nil, err
		}
		tok, err := pkgtoken.New()
		if err != nil {
			return 0, nil, err
		}
		expiry := pkgtoken.Expiry()
		records[i].Status = next
		records[i].VerificationToken = &tok
		records[i].TokenExpiry = &expiry
		records[i].LastUpdated = now
	}

	written := 0
	for start := 0; start < len(records); start += resetBatchSize {
		end := start + resetBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.repo.BatchUpsert(ctx, records[start:end]); err != nil {
			// Earlier batches stay written; the caller reports the partial count.
			return written, records[:written], fmt.Errorf("bulk reset batch at %d: %w", start, err)
		}
		written = end
	}
	return written, records, nil
}

func (s *service) writeAudit(ctx context.Context, summary *domain.ImportSummary, originalName string) {
	if s.audit == nil {
		return
	}
	detail := fmt.Sprintf("file=%s created+updated=%d errors=%d", originalName, summary.Successful, summary.Failed)
	if summary.BulkReset != nil {
		detail += fmt.Sprintf(" reset=%d emails_sent=%d emails_failed=%d",
			summary.BulkReset.UpdatedCount, summary.BulkReset.EmailsSent, summary.BulkReset.EmailsFailed)
	}
	entry := &domain.AuditEntry{
		EntryID:   id.New(),
		Action:    domain.AuditImportRun,
		Actor:     "import",
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.audit.Put(ctx, entry); err != nil {
		slog.Warn("failed to write import audit entry", "err", err)
	}
}

func errorOutcome(row *domain.CandidateRecord, msg string) domain.ImportOutcome {
	rowCopy := *row
	return domain.ImportOutcome{Status: domain.OutcomeError, Row: &rowCopy, Error: msg}
}
