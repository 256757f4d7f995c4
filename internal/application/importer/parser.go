package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/addr-verify-api/internal/domain"
)

// candidateFields are the canonical column names, in export order.
var candidateFields = []string{
	"client_number",
	"first_name",
	"last_name",
	"phone_number",
	"alt_number",
	"address",
	"email",
	"template_group",
}

// Parse reads an uploaded client list into normalized candidate records.
// The declared original filename decides the format by extension; anything
// outside .csv/.xlsx/.xls is rejected before any parsing starts. The source
// file is only read, never modified — the caller owns its lifecycle.
func Parse(path, originalName string) ([]domain.CandidateRecord, error) {
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".csv":
		return parseCSV(path)
	case ".xlsx", ".xls":
		return parseSheet(path)
	default:
		return nil, fmt.Errorf("%q: %w", filepath.Ext(originalName), domain.ErrUnsupportedFormat)
	}
}

// parseCSV streams rows with the first row as header. Known column names map
// case-sensitively to record fields; cells are trimmed and empty cells pass
// through as empty strings. A row whose header matched nothing still yields a
// record of empty defaults — no row is dropped.
func parseCSV(path string) ([]domain.CandidateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	var records []domain.CandidateRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		cell := func(field string) string {
			i, ok := colIdx[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		records = append(records, candidateFrom(cell))
	}
	return records, nil
}

// sheetHeaderVariants returns the accepted spellings for one canonical field,
// in priority order: exact, PascalCase, UPPER_SNAKE, squashed lowercase.
func sheetHeaderVariants(field string) []string {
	parts := strings.Split(field, "_")
	pascal := make([]string, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		pascal[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return []string{
		field,
		strings.Join(pascal, ""),
		strings.ToUpper(field),
		strings.ReplaceAll(field, "_", ""),
	}
}

// parseSheet loads the first sheet of a workbook into memory. Each field
// resolves through the header-spelling cascade; the first matching, present
// column wins.
func parseSheet(path string) ([]domain.CandidateRecord, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		colIdx[strings.TrimSpace(name)] = i
	}

	resolve := make(map[string]int, len(candidateFields))
	for _, field := range candidateFields {
		for _, variant := range sheetHeaderVariants(field) {
			if i, ok := colIdx[variant]; ok {
				resolve[field] = i
				break
			}
		}
	}

	var records []domain.CandidateRecord
	for _, row := range rows[1:] {
		cell := func(field string) string {
			i, ok := resolve[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		records = append(records, candidateFrom(cell))
	}
	return records, nil
}

func candidateFrom(cell func(string) string) domain.CandidateRecord {
	return domain.CandidateRecord{
		ClientNumber:  cell("client_number"),
		FirstName:     cell("first_name"),
		LastName:      cell("last_name"),
		PhoneNumber:   cell("phone_number"),
		AltNumber:     optional(cell("alt_number")),
		Address:       cell("address"),
		Email:         cell("email"),
		TemplateGroup: optional(cell("template_group")),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
