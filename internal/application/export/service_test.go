package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/addr-verify-api/internal/domain"
)

type mockClientStore struct{ mock.Mock }

func (m *mockClientStore) ScanAll(ctx context.Context) ([]domain.ClientRecord, error) {
	args := m.Called(ctx)
	if recs, _ := args.Get(0).([]domain.ClientRecord); recs != nil {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func sampleRecords() []domain.ClientRecord {
	alt := "555-0101"
	group := "BigClients"
	return []domain.ClientRecord{
		{
			ID: 1, ClientNumber: "C-001", FirstName: "Ana", LastName: "Silva",
			PhoneNumber: "555-0100", AltNumber: &alt, Address: "Rua das Flores 1",
			Email: "ana@example.com", TemplateGroup: &group,
		},
		{
			ID: 2, ClientNumber: "C-002", FirstName: "Bruno", LastName: "Costa",
			PhoneNumber: "555-0200", Address: "Av. Central 99",
			Email: "bruno@example.com",
		},
	}
}

var wantHeader = []string{
	"Client Number", "First Name", "Last Name", "Email",
	"Phone Number", "Alt Number", "Address", "Template Group",
}

func TestExport_CSV(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("ScanAll", mock.Anything).Return(sampleRecords(), nil)

	svc := NewService(repo)
	file, err := svc.Export(context.Background(), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "clients.csv", file.Filename)

	rows, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, wantHeader, rows[0])
	assert.Equal(t, []string{"C-001", "Ana", "Silva", "ana@example.com", "555-0100", "555-0101", "Rua das Flores 1", "BigClients"}, rows[1])
	assert.Equal(t, []string{"C-002", "Bruno", "Costa", "bruno@example.com", "555-0200", "", "Av. Central 99", ""}, rows[2])
}

func TestExport_XLSX(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("ScanAll", mock.Anything).Return(sampleRecords(), nil)

	svc := NewService(repo)
	file, err := svc.Export(context.Background(), FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)
	assert.Equal(t, "clients.xlsx", file.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{sheetName}, wb.GetSheetList())
	rows, err := wb.GetRows(sheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, wantHeader, rows[0])
	assert.Equal(t, "C-001", rows[1][0])
	assert.Equal(t, "bruno@example.com", rows[2][3])
}

func TestExport_EmptyTable(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("ScanAll", mock.Anything).Return([]domain.ClientRecord{}, nil)

	svc := NewService(repo)
	file, err := svc.Export(context.Background(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, wantHeader, rows[0])
}

func TestExport_UnknownFormat(t *testing.T) {
	svc := NewService(new(mockClientStore))
	_, err := svc.Export(context.Background(), "pdf")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestExport_StoreFailure(t *testing.T) {
	repo := new(mockClientStore)
	repo.On("ScanAll", mock.Anything).Return(nil, errors.New("scan failed"))

	svc := NewService(repo)
	_, err := svc.Export(context.Background(), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}
