package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartpath-ai-go/internal/auth"
	"github.com/smartpath-ai-go/internal/i18n"
	"github.com/smartpath-ai-go/internal/services/ai"
	"github.com/smartpath-ai-go/internal/services/notes"
	"github.com/smartpath-ai-go/internal/services/tests"
)

// Severity levels attached to response messages
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Response is the envelope for every API reply
type Response struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	Severity string      `json:"severity,omitempty"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handler) respondData(w http.ResponseWriter, data interface{}) {
	h.respond(w, http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handler) respondMessage(w http.ResponseWriter, data interface{}, lang, messageID string) {
	h.respond(w, http.StatusOK, Response{
		Success:  true,
		Data:     data,
		Message:  h.localizer.Get(lang, messageID, nil),
		Severity: SeveritySuccess,
	})
}

// respondError maps service errors onto HTTP statuses and localized
// user-facing messages.
func (h *Handler) respondError(w http.ResponseWriter, lang string, err error) {
	status := http.StatusInternalServerError
	messageID := i18n.MsgNetworkError
	severity := SeverityError

	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		status = http.StatusUnauthorized
		messageID = i18n.MsgInvalidPin
	case errors.Is(err, auth.ErrLockedOut):
		status = http.StatusLocked
		messageID = i18n.MsgLockedOut
	case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, auth.ErrNoSession):
		status = http.StatusUnauthorized
		messageID = i18n.MsgSessionExpired
	case errors.Is(err, ai.ErrRateLimited), errors.Is(err, tests.ErrDailyTestCap):
		status = http.StatusTooManyRequests
		messageID = i18n.MsgRateLimitExceeded
		severity = SeverityWarning
	case errors.Is(err, ai.ErrValidation):
		status = http.StatusBadRequest
		messageID = i18n.MsgValidationError
	case errors.Is(err, ai.ErrUpstream):
		status = http.StatusBadGateway
		messageID = i18n.MsgAIError
	case errors.Is(err, tests.ErrTestNotFound), errors.Is(err, notes.ErrNoteNotFound):
		status = http.StatusNotFound
		messageID = i18n.MsgNotFound
	}

	h.logger.WithError(err).WithField("status", status).Warn("Request failed")

	h.respond(w, status, Response{
		Success:  false,
		Message:  h.localizer.Get(lang, messageID, nil),
		Severity: severity,
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respond(w, http.StatusBadRequest, Response{
			Success:  false,
			Message:  h.localizer.Get(requestLanguage(r), i18n.MsgValidationError, nil),
			Severity: SeverityError,
		})
		return false
	}
	return true
}
