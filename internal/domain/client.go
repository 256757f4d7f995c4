package domain

import (
	"fmt"
	"time"
)

// Verification lifecycle statuses for a client record.
const (
	StatusPending   = "pending"
	StatusUpdated   = "updated"
	StatusConfirmed = "confirmed"
)

// legalTransitions is the single source of truth for the verification state
// machine. pending moves to confirmed or updated when the client submits the
// form; updated and confirmed only re-enter pending through a bulk reset.
var legalTransitions = map[string][]string{
	StatusPending:   {StatusPending, StatusConfirmed, StatusUpdated},
	StatusUpdated:   {StatusPending},
	StatusConfirmed: {StatusPending},
}

// CanTransition reports whether moving a record from one status to another is legal.
func CanTransition(from, to string) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change against the state machine.
// All status-changing call sites route through this instead of writing the string directly.
func Transition(from, to string) (string, error) {
	if !CanTransition(from, to) {
		return "", fmt.Errorf("cannot move from %q to %q: %w", from, to, ErrIllegalTransition)
	}
	return to, nil
}

// ClientRecord is a client's address-verification entry.
// Email and client number are each globally unique (enforced by GSI lookups
// before create). A non-nil verification token always carries a later expiry
// at issuance time; expiry is stored but not checked on lookup, so a token
// stays usable until the next bulk reset replaces it.
type ClientRecord struct {
	ID                int64      `json:"id" dynamodbav:"id"`
	ClientNumber      string     `json:"client_number" dynamodbav:"client_number"`
	FirstName         string     `json:"first_name" dynamodbav:"first_name"`
	LastName          string     `json:"last_name" dynamodbav:"last_name"`
	PhoneNumber       string     `json:"phone_number" dynamodbav:"phone_number"`
	AltNumber         *string    `json:"alt_number" dynamodbav:"alt_number"`
	Address           string     `json:"address" dynamodbav:"address"`
	Email             string     `json:"email" dynamodbav:"email"`
	Status            string     `json:"status" dynamodbav:"status"`
	VerificationToken *string    `json:"verification_token,omitempty" dynamodbav:"verification_token"`
	TokenExpiry       *time.Time `json:"token_expiry,omitempty" dynamodbav:"token_expiry"`
	TemplateGroup     *string    `json:"template_group" dynamodbav:"template_group"`
	HasChanges        bool       `json:"has_changes" dynamodbav:"has_changes"`
	LastUpdated       time.Time  `json:"last_updated" dynamodbav:"last_updated"`
	CreatedAt         time.Time  `json:"created_at" dynamodbav:"created_at"`
}

// FullName joins first and last name for display and alerts.
func (c *ClientRecord) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// UpdateClientRequest carries the fields a client may correct on the public
// verification form, and an admin may edit from the dashboard.
type UpdateClientRequest struct {
	FirstName   string  `json:"first_name" validate:"required"`
	LastName    string  `json:"last_name" validate:"required"`
	PhoneNumber string  `json:"phone_number"`
	AltNumber   *string `json:"alt_number"`
	Address     string  `json:"address" validate:"required"`
}

// Fields returns the request as a field-name map, used for diffing a
// submission against the stored record.
func (r UpdateClientRequest) Fields() map[string]string {
	alt := ""
	if r.AltNumber != nil {
		alt = *r.AltNumber
	}
	return map[string]string{
		"first_name":   r.FirstName,
		"last_name":    r.LastName,
		"phone_number": r.PhoneNumber,
		"alt_number":   alt,
		"address":      r.Address,
	}
}

// RecordFields returns the stored record's editable fields as a map with the
// same keys as UpdateClientRequest.Fields.
func (c *ClientRecord) RecordFields() map[string]string {
	alt := ""
	if c.AltNumber != nil {
		alt = *c.AltNumber
	}
	return map[string]string{
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"phone_number": c.PhoneNumber,
		"alt_number":   alt,
		"address":      c.Address,
	}
}

// FieldChange records one differing field between a stored record and a submission.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// DashboardStats summarizes the record set for the admin dashboard.
type DashboardStats struct {
	TotalClients      int `json:"total_clients"`
	Confirmed         int `json:"confirmed"`
	Updated           int `json:"updated"`
	Pending           int `json:"pending"`
	ConfirmationRate  int `json:"confirmation_rate"`
	TodayUpdates      int `json:"today_updates"`
	RecentUpdateCount int `json:"recent_update_count"`
}
