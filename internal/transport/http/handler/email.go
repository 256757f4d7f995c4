package handler

import (
	"net/http"
)

type mailChecker interface {
	Verify() error
}

// EmailHandler exposes the SMTP configuration check.
type EmailHandler struct {
	notifier mailChecker
}

func NewEmailHandler(notifier mailChecker) *EmailHandler { return &EmailHandler{notifier: notifier} }

func (h *EmailHandler) Test(w http.ResponseWriter, _ *http.Request) {
	if err := h.notifier.Verify(); err != nil {
		writeError(w, http.StatusBadGateway, "email configuration check failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email configuration ok"})
}
