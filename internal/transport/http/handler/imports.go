package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/addr-verify-api/internal/application/importer"
	"github.com/addr-verify-api/internal/pkg/id"
)

// maxImportSize caps uploaded spreadsheets at 10 MiB.
const maxImportSize = 10 << 20

// ImportArchive stores a copy of the raw upload for later inspection.
type ImportArchive interface {
	Store(ctx context.Context, importID, filename string, r io.Reader) (string, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}

// OpsAlerter notifies operators about completed import runs.
type OpsAlerter interface {
	Publish(ctx context.Context, subject, message string) error
}

// ImportHandler handles spreadsheet uploads.
type ImportHandler struct {
	svc     importer.Service
	archive ImportArchive
	alerts  OpsAlerter
}

func NewImportHandler(svc importer.Service, archive ImportArchive, alerts OpsAlerter) *ImportHandler {
	return &ImportHandler{svc: svc, archive: archive, alerts: alerts}
}

func (h *ImportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "file is too large or the form is malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "form field 'file' is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".csv", ".xlsx", ".xls":
	default:
		writeError(w, http.StatusBadRequest, "unsupported file format, expected .csv, .xlsx or .xls")
		return
	}

	tmp, err := os.CreateTemp("", "import-*"+ext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}
	if err := tmp.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to buffer upload")
		return
	}

	importID := id.New()
	h.archiveUpload(r.Context(), importID, header.Filename, tmpPath)

	summary, err := h.svc.Run(r.Context(), tmpPath, header.Filename, r.FormValue("socket_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.alertOps(r.Context(), importID, summary.Successful, summary.Failed)
	writeJSON(w, http.StatusOK, summary)
}

// Download streams a previously archived import file back to the admin.
func (h *ImportHandler) Download(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, "import archiving is not configured")
		return
	}

	importID := chi.URLParam(r, "importID")
	filename := chi.URLParam(r, "filename")
	if importID == "" || filename == "" ||
		strings.ContainsAny(importID, "/\\") || strings.ContainsAny(filename, "/\\") ||
		importID == ".." || filename == ".." {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}

	key := fmt.Sprintf("imports/%s/%s", importID, filename)
	body, err := h.archive.Fetch(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "archived import file not found")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("failed to stream archived import", "key", key, "err", err)
	}
}

// archiveUpload keeps a copy of the raw file in object storage. Failures
// are logged and do not block the import.
func (h *ImportHandler) archiveUpload(ctx context.Context, importID, filename, path string) {
	if h.archive == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("failed to reopen upload for archiving", "import_id", importID, "err", err)
		return
	}
	defer f.Close()

	loc, err := h.archive.Store(ctx, importID, filename, f)
	if err != nil {
		slog.Warn("failed to archive upload", "import_id", importID, "err", err)
		return
	}
	slog.Info("archived import file", "import_id", importID, "location", loc)
}

func (h *ImportHandler) alertOps(ctx context.Context, importID string, successful, failed int) {
	if h.alerts == nil {
		return
	}
	msg := fmt.Sprintf("import %s finished: %d rows imported, %d rows failed", importID, successful, failed)
	if err := h.alerts.Publish(ctx, "Client import completed", msg); err != nil {
		slog.Warn("failed to publish import alert", "import_id", importID, "err", err)
	}
}
