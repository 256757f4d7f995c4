package domain

// Import outcome classifications, one per processed input row.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeError   = "error"
)

// CandidateRecord is one normalized row from an uploaded client list, before
// reconciliation. The parser always leaves the verification token blank; the
// reconciliation engine issues a real one before persisting.
type CandidateRecord struct {
	ClientNumber  string  `json:"client_number"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	PhoneNumber   string  `json:"phone_number"`
	AltNumber     *string `json:"alt_number"`
	Address       string  `json:"address"`
	Email         string  `json:"email"`
	TemplateGroup *string `json:"template_group"`
}

// ImportOutcome classifies one processed row. Client is set for created and
// updated rows; Row and Error are set for failed ones.
type ImportOutcome struct {
	Status string           `json:"status"`
	Client *ClientRecord    `json:"client,omitempty"`
	Row    *CandidateRecord `json:"row,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// EmailFailure records one verification email that could not be delivered.
type EmailFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// BulkResetResult reports the post-import reset of all records to pending.
type BulkResetResult struct {
	UpdatedCount  int            `json:"updated_count"`
	EmailsSent    int            `json:"emails_sent"`
	EmailsFailed  int            `json:"emails_failed"`
	EmailFailures []EmailFailure `json:"email_errors,omitempty"`
}

// ImportSummary is the aggregated report for one import run.
// BulkReset is nil when no row succeeded. When the reset phase aborts partway,
// BulkResetError carries the failure message and BulkReset still reports how
// many records were reset before the abort (a degraded success, never a
// silent one).
type ImportSummary struct {
	Outcomes       []ImportOutcome  `json:"results"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
	BulkReset      *BulkResetResult `json:"bulk_update,omitempty"`
	BulkResetError string           `json:"bulk_update_error,omitempty"`
}
