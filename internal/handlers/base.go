package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/render"
)

// base carries what the command and message handlers share
type base struct {
	deps     Deps
	sessions *Sessions
}

func newBase(sessions *Sessions) base {
	return base{deps: sessions.deps, sessions: sessions}
}

func (b *base) text(cs *ChatSession, id string, data map[string]interface{}) string {
	return b.deps.Localizer.Get(cs.Language(), id, data)
}

// send delivers text; html selects Telegram HTML parse mode
func (b *base) send(chatID int64, text string, html bool, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.deps.Bot.Send(msg)
	if err != nil {
		b.deps.Logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
	return sent, err
}

// edit replaces an existing message's text and keyboard
func (b *base) edit(chatID int64, messageID int, text string, html bool, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if html {
		edit.ParseMode = tgbotapi.ModeHTML
	}
	edit.ReplyMarkup = markup
	if _, err := b.deps.Bot.Send(edit); err != nil {
		b.deps.Logger.WithError(err).WithField("chat_id", chatID).Error("Failed to edit message")
		return err
	}
	return nil
}

func (b *base) remove(chatID int64, messageID int) {
	if _, err := b.deps.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.deps.Logger.WithError(err).WithField("chat_id", chatID).Debug("Failed to delete message")
	}
}

func (b *base) documentsView(cs *ChatSession) (string, *tgbotapi.InlineKeyboardMarkup) {
	pdfs := cs.Session().PDFs
	docs := pdfs.Documents()
	return render.Documents(b.deps.Localizer, cs.Language(), docs, pdfs.IsActive), documentsKeyboard(docs, pdfs.IsActive)
}

func (b *base) settingsView(cs *ChatSession) (string, tgbotapi.InlineKeyboardMarkup) {
	s := cs.Session().Settings.Get()
	return render.Settings(b.deps.Localizer, s), settingsKeyboard(s)
}

func findMessage(cs *ChatSession, id string) (models.Message, bool) {
	for _, m := range cs.Session().Conversation.Messages() {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}
