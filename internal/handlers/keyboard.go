package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/studyspark-go/internal/models"
)

// Callback data prefixes
const (
	cbSetting  = "set"
	cbLanguage = "lang"
	cbFont     = "font"
	cbToggle   = "toggle"
	cbRemove   = "remove"
	cbMenu     = "menu"
	cbRead     = "read"
)

func mark(v bool) string {
	if v {
		return "✅"
	}
	return "⬜"
}

func mainKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", cbMenu+":settings"),
			tgbotapi.NewInlineKeyboardButtonData("📚 PDFs", cbMenu+":pdfs"),
			tgbotapi.NewInlineKeyboardButtonData("📤 Export", cbMenu+":export"),
		),
	)
}

func settingsKeyboard(s models.Settings) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(s.VoiceEnabled)+" Voice", cbSetting+":voice"),
			tgbotapi.NewInlineKeyboardButtonData(mark(s.SimplifiedAnswers)+" Simplified", cbSetting+":simple"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(s.StepByStepSolutions)+" Steps", cbSetting+":steps"),
			tgbotapi.NewInlineKeyboardButtonData(mark(s.ShowSources)+" Sources", cbSetting+":sources"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fontLabel(s.FontSize, models.FontSmall), cbFont+":small"),
			tgbotapi.NewInlineKeyboardButtonData(fontLabel(s.FontSize, models.FontMedium), cbFont+":medium"),
			tgbotapi.NewInlineKeyboardButtonData(fontLabel(s.FontSize, models.FontLarge), cbFont+":large"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 "+string(s.Language), cbMenu+":language"),
		),
	)
}

func fontLabel(current, size models.FontSize) string {
	label := "A"
	switch size {
	case models.FontMedium:
		label = "A+"
	case models.FontLarge:
		label = "A++"
	}
	if current == size {
		return "• " + label + " •"
	}
	return label
}

func languageKeyboard(current models.Language) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, lang := range models.SupportedLanguages {
		label := string(lang)
		if lang == current {
			label = "✓ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbLanguage+":"+string(lang)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func documentsKeyboard(docs []models.PDFDocument, isActive func(id string) bool) *tgbotapi.InlineKeyboardMarkup {
	if len(docs) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(isActive(doc.ID))+" "+truncate(doc.Name, 40), cbToggle+":"+doc.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbRemove+":"+doc.ID),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// answerKeyboard offers read-aloud when the chat can speak
func answerKeyboard(cs *ChatSession, msg models.Message) *tgbotapi.InlineKeyboardMarkup {
	if !msg.IsAssistant() || !cs.Voice.CanSpeak() {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔊", fmt.Sprintf("%s:%s", cbRead, msg.ID)),
		),
	)
	return &markup
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
