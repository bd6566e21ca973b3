package handlers

import (
	"context"
	"net/http"

	"github.com/smartpath-ai-go/internal/models"
	"github.com/smartpath-ai-go/pkg/logger"
)

// SessionTokenHeader carries the session ID on authenticated requests
const SessionTokenHeader = "X-Session-Token"

type contextKey string

const sessionContextKey contextKey = "session"

// requireSession validates the session token, records activity, and
// stores the session on the request context.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionTokenHeader)

		session, err := h.guard.Validate(r.Context(), token)
		if err != nil {
			h.respondError(w, requestLanguage(r), err)
			return
		}

		h.guard.Touch(r.Context(), session.ID)
		logger.WithSession(h.logger, session.ID, string(session.Role)).
			WithField("path", r.URL.Path).Debug("Authenticated request")

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin additionally rejects non-admin sessions
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireSession(func(w http.ResponseWriter, r *http.Request) {
		session := sessionFrom(r)
		if session.Role != models.RoleAdmin {
			h.respond(w, http.StatusForbidden, Response{
				Success:  false,
				Message:  "admin access required",
				Severity: SeverityError,
			})
			return
		}
		next(w, r)
	})
}

func sessionFrom(r *http.Request) *models.Session {
	session, _ := r.Context().Value(sessionContextKey).(*models.Session)
	return session
}

// userKeyFrom derives the progress/quota key for the request. Quotas
// and progress follow the role, not the session, so they survive
// logouts and expiries.
func userKeyFrom(r *http.Request) string {
	return string(sessionFrom(r).Role)
}

// requestLanguage picks the response language from the Accept-Language
// header, defaulting to English.
func requestLanguage(r *http.Request) string {
	lang := r.Header.Get("Accept-Language")
	if len(lang) >= 2 && lang[:2] == "hi" {
		return "hi"
	}
	return "en"
}

// loggingMiddleware logs each request at debug level
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.logger.WithField("method", r.Method).WithField("path", r.URL.Path).Debug("Request")
		next.ServeHTTP(w, r)
	})
}
