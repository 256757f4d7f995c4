package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/addr-verify-api/internal/domain"
)

// --- mocks ---

type mockClientStore struct{ mock.Mock }

func (m *mockClientStore) Get(ctx context.Context, id int64) (*domain.ClientRecord, error) {
	args := m.Called(ctx, id)
	if rec, _ := args.Get(0).(*domain.ClientRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientStore) Update(ctx context.Context, id int64, updates map[string]interface{}) (*domain.ClientRecord, error) {
	args := m.Called(ctx, id, updates)
	if rec, _ := args.Get(0).(*domain.ClientRecord); rec != nil {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientStore) Page(ctx context.Context, page, limit int, status, search string) ([]domain.ClientRecord, int, error) {
	args := m.Called(ctx, page, limit, status, search)
	recs, _ := args.Get(0).([]domain.ClientRecord)
	return recs, args.Int(1), args.Error(2)
}

func (m *mockClientStore) CountByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *mockClientStore) CountUpdatedSince(ctx context.Context, status string, since time.Time) (int, error) {
	args := m.Called(ctx, status, since)
	return args.Int(0), args.Error(1)
}

type mockAuditStore struct{ mock.Mock }

func (m *mockAuditStore) Put(ctx context.Context, e *domain.AuditEntry) error {
	return m.Called(ctx, e).Error(0)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) SendVerification(rec *domain.ClientRecord) error {
	return m.Called(rec).Error(0)
}

func newTestService(repo *mockClientStore, audit *mockAuditStore, sender *mockSender) Service {
	deps := ServiceDeps{ClientRepo: repo, Notifier: sender}
	if audit != nil {
		deps.AuditRepo = audit
	}
	return NewService(deps)
}

// --- List ---

func TestList_DefaultsAndClamping(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("Page", mock.Anything, 1, defaultPageSize, "", "").Return([]domain.ClientRecord{}, 0, nil).Once()
	repo.On("Page", mock.Anything, 2, maxPageSize, "", "").Return([]domain.ClientRecord{}, 0, nil).Once()

	svc := newTestService(repo, nil, new(mockSender))

	res, err := svc.List(context.Background(), 0, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, defaultPageSize, res.Limit)

	res, err = svc.List(context.Background(), 2, 500, "", "")
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, res.Limit)
	repo.AssertExpectations(t)
}

func TestList_RejectsUnknownStatusFilter(t *testing.T) {
	repo := new(mockClientStore)
	svc := newTestService(repo, nil, new(mockSender))

	_, err := svc.List(context.Background(), 1, 10, "archived", "")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "Page", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestList_PassesFilters(t *testing.T) {
	repo := new(mockClientStore)
	recs := []domain.ClientRecord{{ID: 1, FirstName: "Ana"}}
	repo.On("Page", mock.Anything, 1, 10, domain.StatusPending, "ana").Return(recs, 1, nil)

	svc := newTestService(repo, nil, new(mockSender))
	res, err := svc.List(context.Background(), 1, 10, domain.StatusPending, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, recs, res.Clients)
}

func TestList_AcceptsAllStatusFilter(t *testing.T) {
	repo := new(mockClientStore)
	recs := []domain.ClientRecord{{ID: 1}, {ID: 2}}
	repo.On("Page", mock.Anything, 1, 10, "all", "").Return(recs, 2, nil)

	svc := newTestService(repo, nil, new(mockSender))
	res, err := svc.List(context.Background(), 1, 10, "all", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	repo.AssertExpectations(t)
}

// --- Update ---

func TestUpdate_SanitizesAndAudits(t *testing.T) {
	repo := new(mockClientStore)
	audit := new(mockAuditStore)
	empty := " "

	req := domain.UpdateClientRequest{
		FirstName: "  Ana  ",
		LastName:  "Silva",
		Address:   "Rua 1",
		AltNumber: &empty,
	}
	repo.On("Update", mock.Anything, int64(5), mock.MatchedBy(func(u map[string]interface{}) bool {
		alt, ok := u["alt_number"].(*string)
		return u["first_name"] == "Ana" && ok && alt == nil
	})).Return(&domain.ClientRecord{ID: 5}, nil)
	audit.On("Put", mock.Anything, mock.MatchedBy(func(e *domain.AuditEntry) bool {
		return e.Action == domain.AuditAdminEdit && e.ClientID == 5 && e.Actor == "admin@example.com"
	})).Return(nil)

	svc := newTestService(repo, audit, new(mockSender))
	_, err := svc.Update(context.Background(), 5, "admin@example.com", req)
	require.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestUpdate_RejectsInvalidRequest(t *testing.T) {
	repo := new(mockClientStore)
	svc := newTestService(repo, nil, new(mockSender))

	_, err := svc.Update(context.Background(), 5, "admin@example.com", domain.UpdateClientRequest{FirstName: "Ana"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- UpdateTemplateGroup ---

func TestUpdateTemplateGroup_EmptyClearsGroup(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("Update", mock.Anything, int64(5), mock.MatchedBy(func(u map[string]interface{}) bool {
		v, ok := u["template_group"].(*string)
		return ok && v == nil
	})).Return(&domain.ClientRecord{ID: 5}, nil)

	svc := newTestService(repo, nil, new(mockSender))
	_, err := svc.UpdateTemplateGroup(context.Background(), 5, "admin@example.com", "")
	require.NoError(t, err)
}

func TestUpdateTemplateGroup_SetsGroup(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("Update", mock.Anything, int64(5), mock.MatchedBy(func(u map[string]interface{}) bool {
		v, ok := u["template_group"].(*string)
		return ok && v != nil && *v == "BigClients"
	})).Return(&domain.ClientRecord{ID: 5}, nil)

	svc := newTestService(repo, nil, new(mockSender))
	_, err := svc.UpdateTemplateGroup(context.Background(), 5, "admin@example.com", "BigClients")
	require.NoError(t, err)
}

// --- Stats ---

func TestStats_Math(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("CountByStatus", mock.Anything, domain.StatusConfirmed).Return(30, nil)
	repo.On("CountByStatus", mock.Anything, domain.StatusUpdated).Return(20, nil)
	repo.On("CountByStatus", mock.Anything, domain.StatusPending).Return(50, nil)
	repo.On("CountUpdatedSince", mock.Anything, domain.StatusUpdated, mock.Anything).Return(4, nil).Once()
	repo.On("CountUpdatedSince", mock.Anything, domain.StatusUpdated, mock.Anything).Return(9, nil).Once()

	svc := newTestService(repo, nil, new(mockSender))
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 100, stats.TotalClients)
	assert.Equal(t, 30, stats.Confirmed)
	assert.Equal(t, 20, stats.Updated)
	assert.Equal(t, 50, stats.Pending)
	assert.Equal(t, 50, stats.ConfirmationRate)
	assert.Equal(t, 4, stats.TodayUpdates)
	assert.Equal(t, 9, stats.RecentUpdateCount)
}

func TestStats_EmptyTable(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("CountByStatus", mock.Anything, mock.Anything).Return(0, nil)
	repo.On("CountUpdatedSince", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)

	svc := newTestService(repo, nil, new(mockSender))
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalClients)
	assert.Zero(t, stats.ConfirmationRate)
}

// --- ResendVerification ---

func TestResendVerification_Sends(t *testing.T) {
	tok := "abc123"
	rec := &domain.ClientRecord{ID: 5, Email: "ana@example.com", VerificationToken: &tok}
	repo := new(mockClientStore)
	sender := new(mockSender)
	repo.On("Get", mock.Anything, int64(5)).Return(rec, nil)
	sender.On("SendVerification", rec).Return(nil).Once()

	svc := newTestService(repo, nil, sender)
	got, err := svc.ResendVerification(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	sender.AssertExpectations(t)
}

func TestResendVerification_NoToken(t *testing.T) {
	rec := &domain.ClientRecord{ID: 5, Email: "ana@example.com"}
	repo := new(mockClientStore)
	sender := new(mockSender)
	repo.On("Get", mock.Anything, int64(5)).Return(rec, nil)

	svc := newTestService(repo, nil, sender)
	_, err := svc.ResendVerification(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrConflict)
	sender.AssertNotCalled(t, "SendVerification", mock.Anything)
}
