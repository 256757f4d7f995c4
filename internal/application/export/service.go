package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/addr-verify-api/internal/domain"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	sheetName = "Clients"
)

var columns = []struct {
	header string
	value  func(*domain.ClientRecord) string
}{
	{"Client Number", func(r *domain.ClientRecord) string { return r.ClientNumber }},
	{"First Name", func(r *domain.ClientRecord) string { return r.FirstName }},
	{"Last Name", func(r *domain.ClientRecord) string { return r.LastName }},
	{"Email", func(r *domain.ClientRecord) string { return r.Email }},
	{"Phone Number", func(r *domain.ClientRecord) string { return r.PhoneNumber }},
	{"Alt Number", func(r *domain.ClientRecord) string { return deref(r.AltNumber) }},
	{"Address", func(r *domain.ClientRecord) string { return r.Address }},
	{"Template Group", func(r *domain.ClientRecord) string { return deref(r.TemplateGroup) }},
}

type clientStore interface {
	ScanAll(ctx context.Context) ([]domain.ClientRecord, error)
}

// File is a rendered export ready to stream to the caller.
type File struct {
	Content     []byte
	ContentType string
	Filename    string
}

type Service interface {
	Export(ctx context.Context, format string) (*File, error)
}

type service struct {
	repo clientStore
}

func NewService(repo clientStore) Service {
	return &service{repo: repo}
}

func (s *service) Export(ctx context.Context, format string) (*File, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("export format %q: %w", format, domain.ErrUnsupportedFormat)
	}

	records, err := s.repo.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load clients for export: %w", err)
	}

	if format == FormatCSV {
		content, err := renderCSV(records)
		if err != nil {
			return nil, err
		}
		return &File{Content: content, ContentType: "text/csv", Filename: "clients.csv"}, nil
	}

	content, err := renderXLSX(records)
	if err != nil {
		return nil, err
	}
	return &File{
		Content:     content,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Filename:    "clients.xlsx",
	}, nil
}

func renderCSV(records []domain.ClientRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.header
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = c.value(&records[i])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(records []domain.ClientRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, c := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, c.header); err != nil {
			return nil, fmt.Errorf("write header cell: %w", err)
		}
	}

	for r := range records {
		for i, c := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, c.value(&records[r])); err != nil {
				return nil, fmt.Errorf("write row cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
