package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/smartpath-ai-go/internal/config"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, fmt.Sprintf("%s.json", lang))
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome           = "welcome"
	MsgInvalidPin        = "invalid_pin"
	MsgLockedOut         = "locked_out"
	MsgSessionExpired    = "session_expired"
	MsgSessionWarning    = "session_warning"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgNetworkError      = "network_error"
	MsgAIError           = "ai_error"
	MsgValidationError   = "validation_error"
	MsgQuestionSolved    = "question_solved"
	MsgNoteGenerated     = "note_generated"
	MsgQuizGenerated     = "quiz_generated"
	MsgTestCompleted     = "test_completed"
	MsgProgressUpdated   = "progress_updated"
	MsgSettingsSaved     = "settings_saved"
	MsgLoggedOut         = "logged_out"
	MsgNotFound          = "not_found"
)
