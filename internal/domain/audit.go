package domain

import "time"

// Audit actions recorded by the pipeline and the dashboard.
const (
	AuditImportRun     = "import_run"
	AuditClientConfirm = "client_confirm"
	AuditClientUpdate  = "client_update"
	AuditAdminEdit     = "admin_edit"
)

// AuditEntry is one row of the append-only audit trail.
// PK: entry_id (ULID, sortable by creation time).
type AuditEntry struct {
	EntryID   string    `json:"id" dynamodbav:"entry_id"`
	Action    string    `json:"action" dynamodbav:"action"`
	ClientID  int64     `json:"client_id,omitempty" dynamodbav:"client_id"`
	Actor     string    `json:"actor" dynamodbav:"actor"`
	Detail    string    `json:"detail" dynamodbav:"detail"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}
