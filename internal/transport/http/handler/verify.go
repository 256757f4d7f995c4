package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/addr-verify-api/internal/application/verification"
	"github.com/addr-verify-api/internal/domain"
)

// VerifyHandler handles the public token-based verification endpoints.
type VerifyHandler struct {
	svc verification.Service
}

func NewVerifyHandler(svc verification.Service) *VerifyHandler { return &VerifyHandler{svc: svc} }

// publicClient is the record view exposed to the verification page. The
// token and internal bookkeeping fields are not part of it.
type publicClient struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber string  `json:"phone_number"`
	AltNumber   *string `json:"alt_number,omitempty"`
	Address     string  `json:"address"`
	Email       string  `json:"email"`
	Status      string  `json:"status"`
}

func toPublicClient(rec *domain.ClientRecord) *publicClient {
	return &publicClient{
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		PhoneNumber: rec.PhoneNumber,
		AltNumber:   rec.AltNumber,
		Address:     rec.Address,
		Email:       rec.Email,
		Status:      rec.Status,
	}
}

func (h *VerifyHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Lookup(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicClient(rec))
}

func (h *VerifyHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, changed, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "token"), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	msg := "address confirmed"
	if changed {
		msg = "address updated"
	}
	writeJSON(w, http.StatusOK, struct {
		Message string        `json:"message"`
		Client  *publicClient `json:"client"`
	}{Message: msg, Client: toPublicClient(rec)})
}
