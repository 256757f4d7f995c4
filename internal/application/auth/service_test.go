package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/addr-verify-api/internal/domain"
)

// --- mocks ---

type mockAdminStore struct{ mock.Mock }

func (m *mockAdminStore) Put(ctx context.Context, a *domain.Admin) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAdminStore) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	args := m.Called(ctx, email)
	if a, _ := args.Get(0).(*domain.Admin); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAdminStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(adminID, email string) (string, error) {
	args := m.Called(adminID, email)
	return args.String(0), args.Error(1)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Setup ---

func TestSetup_CreatesFirstAdmin(t *testing.T) {
	repo := new(mockAdminStore)
	repo.On("Count", mock.Anything).Return(0, nil)
	repo.On("Put", mock.Anything, mock.MatchedBy(func(a *domain.Admin) bool {
		return a.Email == "admin@example.com" && a.PasswordHash != "s3cret-pass" && a.AdminID != ""
	})).Return(nil)

	svc := NewService(repo, new(mockSigner))
	admin, err := svc.Setup(context.Background(), domain.CreateAdminRequest{
		Email:    "Admin@Example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", admin.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("s3cret-pass")))
	repo.AssertExpectations(t)
}

func TestSetup_RefusesSecondAdmin(t *testing.T) {
	repo := new(mockAdminStore)
	repo.On("Count", mock.Anything).Return(1, nil)

	svc := NewService(repo, new(mockSigner))
	_, err := svc.Setup(context.Background(), domain.CreateAdminRequest{
		Email:    "other@example.com",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestSetup_RejectsShortPassword(t *testing.T) {
	repo := new(mockAdminStore)
	svc := NewService(repo, new(mockSigner))
	_, err := svc.Setup(context.Background(), domain.CreateAdminRequest{
		Email:    "admin@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "Count", mock.Anything)
}

// --- Login ---

func TestLogin_Succeeds(t *testing.T) {
	admin := &domain.Admin{AdminID: "adm-1", Email: "admin@example.com", PasswordHash: hashed(t, "s3cret-pass")}
	repo := new(mockAdminStore)
	signer := new(mockSigner)
	repo.On("GetByEmail", mock.Anything, "admin@example.com").Return(admin, nil)
	signer.On("Sign", "adm-1", "admin@example.com").Return("jwt-token", nil)

	svc := NewService(repo, signer)
	bearer, got, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", bearer)
	assert.Equal(t, admin, got)
}

func TestLogin_WrongPassword(t *testing.T) {
	admin := &domain.Admin{AdminID: "adm-1", Email: "admin@example.com", PasswordHash: hashed(t, "s3cret-pass")}
	repo := new(mockAdminStore)
	signer := new(mockSigner)
	repo.On("GetByEmail", mock.Anything, "admin@example.com").Return(admin, nil)

	svc := NewService(repo, signer)
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	signer.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(mockAdminStore)
	repo.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	svc := NewService(repo, new(mockSigner))
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
