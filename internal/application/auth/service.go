package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/addr-verify-api/internal/domain"
	"github.com/addr-verify-api/internal/pkg/id"
	"github.com/addr-verify-api/internal/pkg/validate"
)

type adminStore interface {
	Put(ctx context.Context, a *domain.Admin) error
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	Count(ctx context.Context) (int, error)
}

type tokenSigner interface {
	Sign(adminID, email string) (string, error)
}

type Service interface {
	// Setup creates the first admin account. It refuses once any admin
	// exists so the endpoint cannot be used to add accounts later.
	Setup(ctx context.Context, req domain.CreateAdminRequest) (*domain.Admin, error)
	Login(ctx context.Context, req domain.LoginRequest) (bearer string, admin *domain.Admin, err error)
	Me(ctx context.Context, email string) (*domain.Admin, error)
}

type service struct {
	repo   adminStore
	signer tokenSigner
}

func NewService(repo adminStore, signer tokenSigner) Service {
	return &service{repo: repo, signer: signer}
}

func (s *service) Setup(ctx context.Context, req domain.CreateAdminRequest) (*domain.Admin, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("admin account already exists: %w", domain.ErrForbidden)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := domain.NewAdmin(id.New(), normalizeEmail(req.Email), string(hash))
	if err := s.repo.Put(ctx, admin); err != nil {
		return nil, fmt.Errorf("store admin: %w", err)
	}

	slog.Info("initial admin account created", "email", admin.Email)
	return admin, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.Admin, error) {
	if err := validate.Struct(req); err != nil {
		return "", nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}

	admin, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	bearer, err := s.signer.Sign(admin.AdminID, admin.Email)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return bearer, admin, nil
}

func (s *service) Me(ctx context.Context, email string) (*domain.Admin, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
