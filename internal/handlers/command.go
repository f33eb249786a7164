package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/services/export"
)

// CommandHandler handles bot commands and inline keyboard callbacks
type CommandHandler struct {
	base
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(sessions *Sessions) *CommandHandler {
	return &CommandHandler{base: newBase(sessions)}
}

// HandleCommand processes bot commands
func (h *CommandHandler) HandleCommand(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	chatID := message.Chat.ID
	cs := h.sessions.Get(chatID)
	args := strings.TrimSpace(message.CommandArguments())

	h.deps.Logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"command": message.Command(),
	}).Debug("Handling command")

	switch message.Command() {
	case "start":
		_, err := h.send(chatID, h.text(cs, i18n.MsgWelcome, nil), false, mainKeyboard())
		return err
	case "help":
		_, err := h.send(chatID, h.text(cs, i18n.MsgHelp, nil), false, nil)
		return err
	case "settings":
		text, kb := h.settingsView(cs)
		_, err := h.send(chatID, text, false, kb)
		return err
	case "language":
		return h.handleLanguage(cs, args)
	case "voice":
		return h.handleSwitch(cs, args, func(s models.Settings, v *bool) models.SettingsPatch {
			return models.SettingsPatch{VoiceEnabled: orToggle(v, s.VoiceEnabled)}
		})
	case "simple":
		return h.handleSwitch(cs, args, func(s models.Settings, v *bool) models.SettingsPatch {
			return models.SettingsPatch{SimplifiedAnswers: orToggle(v, s.SimplifiedAnswers)}
		})
	case "steps":
		return h.handleSwitch(cs, args, func(s models.Settings, v *bool) models.SettingsPatch {
			return models.SettingsPatch{StepByStepSolutions: orToggle(v, s.StepByStepSolutions)}
		})
	case "sources":
		return h.handleSwitch(cs, args, func(s models.Settings, v *bool) models.SettingsPatch {
			return models.SettingsPatch{ShowSources: orToggle(v, s.ShowSources)}
		})
	case "font":
		return h.handleFont(cs, args)
	case "pdfs":
		return h.showDocuments(cs, 0)
	case "toggle":
		return h.handleToggle(cs, args, 0)
	case "remove":
		return h.handleRemove(cs, args, 0)
	case "export":
		return h.handleExport(ctx, cs)
	case "listen":
		// Outcome is reported through the flow's notices
		_ = cs.Flow.Listen(ctx, cs.Voice)
		return nil
	case "read":
		return h.handleRead(cs, "")
	case "clear":
		h.sessions.Reset(chatID)
		cs = h.sessions.Get(chatID)
		_, err := h.send(chatID, h.text(cs, i18n.MsgCleared, nil), false, nil)
		return err
	default:
		_, err := h.send(chatID, h.text(cs, i18n.MsgUnknownCommand, nil), false, nil)
		return err
	}
}

// HandleCallbackQuery processes inline keyboard presses. Data has the form
// "action:argument".
func (h *CommandHandler) HandleCallbackQuery(ctx context.Context, update *tgbotapi.Update) error {
	query := update.CallbackQuery
	if query.Message == nil {
		return nil
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	cs := h.sessions.Get(chatID)

	if _, err := h.deps.Bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		h.deps.Logger.WithError(err).Debug("Failed to answer callback query")
	}

	action, arg, _ := strings.Cut(query.Data, ":")
	switch action {
	case cbSetting:
		s := cs.Session().Settings.Get()
		var patch models.SettingsPatch
		switch arg {
		case "voice":
			patch.VoiceEnabled = orToggle(nil, s.VoiceEnabled)
		case "simple":
			patch.SimplifiedAnswers = orToggle(nil, s.SimplifiedAnswers)
		case "steps":
			patch.StepByStepSolutions = orToggle(nil, s.StepByStepSolutions)
		case "sources":
			patch.ShowSources = orToggle(nil, s.ShowSources)
		default:
			return fmt.Errorf("unknown setting %q", arg)
		}
		cs.Session().Settings.Update(patch)
		return h.refreshSettings(cs, messageID)
	case cbFont:
		size, err := models.ParseFontSize(arg)
		if err != nil {
			return err
		}
		cs.Session().Settings.Update(models.SettingsPatch{FontSize: &size})
		return h.refreshSettings(cs, messageID)
	case cbLanguage:
		lang, err := models.ParseLanguage(arg)
		if err != nil {
			return err
		}
		cs.Session().Settings.Update(models.SettingsPatch{Language: &lang})
		return h.refreshSettings(cs, messageID)
	case cbToggle:
		return h.handleToggle(cs, arg, messageID)
	case cbRemove:
		return h.handleRemove(cs, arg, messageID)
	case cbRead:
		return h.handleRead(cs, arg)
	case cbMenu:
		switch arg {
		case "settings":
			text, kb := h.settingsView(cs)
			_, err := h.send(chatID, text, false, kb)
			return err
		case "language":
			return h.edit(chatID, messageID, "🌐 "+string(cs.Language()), false, ptr(languageKeyboard(cs.Language())))
		case "pdfs":
			return h.showDocuments(cs, 0)
		case "export":
			return h.handleExport(ctx, cs)
		}
	}

	h.deps.Logger.WithField("data", query.Data).Warn("Unknown callback query")
	return nil
}

func (h *CommandHandler) refreshSettings(cs *ChatSession, messageID int) error {
	text, kb := h.settingsView(cs)
	return h.edit(cs.ChatID, messageID, text, false, &kb)
}

func (h *CommandHandler) handleLanguage(cs *ChatSession, arg string) error {
	if arg == "" {
		_, err := h.send(cs.ChatID, "🌐 "+string(cs.Language()), false, languageKeyboard(cs.Language()))
		return err
	}

	lang, err := models.ParseLanguage(arg)
	if err != nil {
		names := make([]string, len(models.SupportedLanguages))
		for i, l := range models.SupportedLanguages {
			names[i] = string(l)
		}
		_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgLanguageInvalid, map[string]interface{}{
			"Languages": strings.Join(names, ", "),
		}), false, nil)
		return err
	}

	cs.Session().Settings.Update(models.SettingsPatch{Language: &lang})
	_, err = h.send(cs.ChatID, h.text(cs, i18n.MsgSettingsSaved, nil), false, nil)
	return err
}

// handleSwitch applies an on/off command; no argument flips the setting
func (h *CommandHandler) handleSwitch(cs *ChatSession, arg string, patch func(models.Settings, *bool) models.SettingsPatch) error {
	var value *bool
	if arg != "" {
		v, ok := parseSwitch(arg)
		if !ok {
			_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgHelp, nil), false, nil)
			return err
		}
		value = &v
	}

	settings := cs.Session().Settings
	settings.Update(patch(settings.Get(), value))
	text, kb := h.settingsView(cs)
	_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgSettingsSaved, nil)+"\n\n"+text, false, kb)
	return err
}

func (h *CommandHandler) handleFont(cs *ChatSession, arg string) error {
	size, err := models.ParseFontSize(arg)
	if err != nil {
		_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgFontSizeInvalid, nil), false, nil)
		return err
	}
	cs.Session().Settings.Update(models.SettingsPatch{FontSize: &size})
	_, err = h.send(cs.ChatID, h.text(cs, i18n.MsgSettingsSaved, nil), false, nil)
	return err
}

// handleToggle flips a document's active flag. A non-zero messageID is the
// document list to refresh in place.
func (h *CommandHandler) handleToggle(cs *ChatSession, id string, messageID int) error {
	pdfs := cs.Session().PDFs
	if id == "" || !documentKnown(cs, id) {
		_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgDocumentUnknown, map[string]interface{}{"ID": id}), false, nil)
		return err
	}
	pdfs.ToggleActive(id)
	return h.showDocuments(cs, messageID)
}

func (h *CommandHandler) handleRemove(cs *ChatSession, id string, messageID int) error {
	var name string
	for _, doc := range cs.Session().PDFs.Documents() {
		if doc.ID == id {
			name = doc.Name
		}
	}
	if id == "" || name == "" {
		_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgDocumentUnknown, map[string]interface{}{"ID": id}), false, nil)
		return err
	}

	cs.Session().PDFs.Remove(id)
	if _, err := h.send(cs.ChatID, h.text(cs, i18n.MsgDocumentRemoved, map[string]interface{}{"Name": name}), false, nil); err != nil {
		return err
	}
	if messageID != 0 {
		return h.showDocuments(cs, messageID)
	}
	return nil
}

func (h *CommandHandler) showDocuments(cs *ChatSession, messageID int) error {
	text, kb := h.documentsView(cs)
	if messageID != 0 {
		return h.edit(cs.ChatID, messageID, text, true, kb)
	}
	var markup interface{}
	if kb != nil {
		markup = kb
	}
	_, err := h.send(cs.ChatID, text, true, markup)
	return err
}

// handleExport asks the collaborator to export and, on success, also sends
// the transcript as a text file
func (h *CommandHandler) handleExport(ctx context.Context, cs *ChatSession) error {
	resp, err := cs.Flow.Export(ctx)
	if h.deps.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		h.deps.Metrics.RecordExport(status)
	}
	if err != nil {
		// Notices were already sent
		h.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Debug("Export did not complete")
		return nil
	}

	now := time.Now()
	lang := cs.Language()
	tr := h.deps.Localizer
	labels := export.Labels{
		Title:     tr.Get(lang, i18n.MsgExportTitle, nil),
		User:      tr.Get(lang, i18n.MsgSenderUser, nil),
		Assistant: tr.Get(lang, i18n.MsgSenderAssistant, nil),
		Steps:     tr.Get(lang, i18n.MsgStepsHeading, nil),
		Sources:   tr.Get(lang, i18n.MsgSourcesHeading, nil),
	}
	transcript := export.Transcript(cs.Session().Conversation.Messages(), labels, now)

	doc := tgbotapi.NewDocument(cs.ChatID, tgbotapi.FileBytes{
		Name:  export.FileName(now),
		Bytes: []byte(transcript),
	})
	doc.Caption = resp.ID
	if _, err := h.deps.Bot.Send(doc); err != nil {
		h.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Error("Failed to send transcript")
		return err
	}
	return nil
}

// handleRead speaks the message with the given id, or the latest answer
func (h *CommandHandler) handleRead(cs *ChatSession, id string) error {
	var msg models.Message
	var ok bool
	if id != "" {
		msg, ok = findMessage(cs, id)
	} else {
		msg, ok = cs.Session().Conversation.LastFrom(models.RoleAssistant)
	}
	if !ok {
		return nil
	}
	if err := cs.Flow.ReadAloud(cs.Voice, msg); err != nil {
		h.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Debug("Read aloud did not start")
	}
	return nil
}

func documentKnown(cs *ChatSession, id string) bool {
	for _, doc := range cs.Session().PDFs.Documents() {
		if doc.ID == id {
			return true
		}
	}
	return false
}

// parseSwitch accepts on/off style arguments
func parseSwitch(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes", "true", "1", "enable":
		return true, true
	case "off", "no", "false", "0", "disable":
		return false, true
	}
	return false, false
}

func orToggle(v *bool, current bool) *bool {
	if v != nil {
		return v
	}
	flipped := !current
	return &flipped
}

func ptr[T any](v T) *T {
	return &v
}
