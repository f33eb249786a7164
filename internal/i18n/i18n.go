package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/models"
)

//go:embed locales/*.json
var builtin embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage models.Language
	localizers      map[models.Language]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := builtin.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list built-in messages: %w", err)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(builtin, "locales/"+f.Name()); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", f.Name(), err)
		}
	}

	// Operator overrides
	if cfg.Directory != "" {
		paths, err := filepath.Glob(filepath.Join(cfg.Directory, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list language files: %w", err)
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if _, err := bundle.LoadMessageFile(p); err != nil {
				return nil, fmt.Errorf("failed to load language file %s: %w", p, err)
			}
		}
	}

	defaultLanguage := models.English
	if cfg.DefaultLanguage != "" {
		l, err := models.ParseLanguage(cfg.DefaultLanguage)
		if err != nil {
			return nil, err
		}
		defaultLanguage = l
	}

	localizers := make(map[models.Language]*i18n.Localizer)
	for _, lang := range models.SupportedLanguages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang.Tag().String(), defaultLanguage.Tag().String())
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message. A "Count" entry in data selects the plural form.
func (l *Localizer) Get(lang models.Language, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	lc := &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	}
	if count, ok := data["Count"]; ok {
		lc.PluralCount = count
	}

	msg, err := localizer.Localize(lc)
	if err != nil && msg == "" {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome        = "welcome"
	MsgHelp           = "help"
	MsgSettings       = "settings"
	MsgSettingsSaved  = "settings_saved"
	MsgProcessing     = "processing"
	MsgUnknownCommand = "unknown_command"
	MsgCleared        = "conversation_cleared"

	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgChatFailed        = "chat_failed"
	MsgQuestionTooLong   = "question_too_long"

	MsgLanguageInvalid = "language_invalid"
	MsgFontSizeInvalid = "font_size_invalid"

	MsgVoiceListening    = "voice_listening"
	MsgVoiceCaptured     = "voice_captured"
	MsgVoiceFailed       = "voice_failed"
	MsgVoiceUnsupported  = "voice_unsupported"
	MsgSpeechFailed      = "speech_failed"
	MsgSpeechUnsupported = "speech_unsupported"

	MsgUploadSucceeded = "upload_succeeded"
	MsgUploadFailed    = "upload_failed"
	MsgUploadPDFOnly   = "upload_pdf_only"
	MsgUploadHint      = "upload_hint"
	MsgDocumentList    = "document_list"
	MsgNoDocuments     = "no_documents"
	MsgDocumentRemoved = "document_removed"
	MsgDocumentUnknown = "document_unknown"

	MsgExportSucceeded = "export_succeeded"
	MsgExportFailed    = "export_failed"
	MsgExportEmpty     = "export_empty"

	MsgStepsHeading    = "steps_heading"
	MsgSourcesHeading  = "sources_heading"
	MsgExportTitle     = "export_title"
	MsgSenderUser      = "sender_user"
	MsgSenderAssistant = "sender_assistant"
)
