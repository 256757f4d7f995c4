package http

import (
	"context"
	"io"
	"time"

	"github.com/addr-verify-api/internal/domain"
)

// ClientRepository is the minimal interface the router requires from the client store.
type ClientRepository interface {
	NextID(ctx context.Context) (int64, error)
	Put(ctx context.Context, rec *domain.ClientRecord) error
	Get(ctx context.Context, id int64) (*domain.ClientRecord, error)
	GetByEmail(ctx context.Context, email string) (*domain.ClientRecord, error)
	GetByClientNumber(ctx context.Context, clientNumber string) (*domain.ClientRecord, error)
	GetByToken(ctx context.Context, token string) (*domain.ClientRecord, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error)
	BatchUpsert(ctx context.Context, recs []domain.ClientRecord) error
	ScanAll(ctx context.Context) ([]domain.ClientRecord, error)
	Page(ctx context.Context, page, limit int, status, search string) ([]domain.ClientRecord, int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountUpdatedSince(ctx context.Context, status string, since time.Time) (int, error)
}

// AdminRepository is the minimal interface the router requires from the admin store.
type AdminRepository interface {
	Put(ctx context.Context, a *domain.Admin) error
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	Count(ctx context.Context) (int, error)
}

// AuditRepository is the minimal interface the router requires from the audit store.
type AuditRepository interface {
	Put(ctx context.Context, e *domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// ObjectArchive is the minimal interface the router requires from an object storage backend.
type ObjectArchive interface {
	Store(ctx context.Context, importID, filename string, r io.Reader) (string, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}
