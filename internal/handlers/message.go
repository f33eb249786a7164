package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/flow"
	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/middleware"
)

// MessageHandler handles questions, PDF uploads and voice notes
type MessageHandler struct {
	base
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(sessions *Sessions) *MessageHandler {
	return &MessageHandler{base: newBase(sessions)}
}

// HandleMessage processes a non-command message
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	message := update.Message
	if message == nil {
		return nil
	}
	cs := h.sessions.Get(message.Chat.ID)

	switch {
	case message.Document != nil:
		h.record("document")
		return h.handleDocument(ctx, cs, message)
	case message.Voice != nil || message.Audio != nil:
		h.record("voice")
		// Telegram voice notes are not transcribed here; the flow reports it
		_ = cs.Flow.Listen(ctx, cs.Voice)
		return nil
	case strings.TrimSpace(message.Text) != "":
		h.record("text")
		return h.handleQuestion(ctx, cs, message)
	}
	return nil
}

func (h *MessageHandler) record(kind string) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordMessageReceived(kind)
	}
}

func (h *MessageHandler) handleQuestion(ctx context.Context, cs *ChatSession, message *tgbotapi.Message) error {
	logger := h.deps.Logger.WithFields(logrus.Fields{
		"chat_id": cs.ChatID,
		"user_id": userID(message),
	})

	if h.deps.Limiter != nil && !h.deps.Limiter.Allow(sessionKey(cs.ChatID)) {
		if h.deps.Metrics != nil {
			h.deps.Metrics.RecordRateLimitExceeded("telegram")
		}
		logger.Warn("Rate limit exceeded")
		_, err := h.send(cs.ChatID, h.text(cs, i18n.MsgRateLimitExceeded, nil), false, nil)
		return err
	}

	if err := middleware.ValidateQuestion(message.Text); err != nil {
		logger.WithError(err).Warn("Invalid question")
		text := h.text(cs, i18n.MsgQuestionTooLong, map[string]interface{}{"Max": middleware.MaxQuestionLength})
		_, err := h.send(cs.ChatID, text, false, nil)
		return err
	}

	// A question sent while one is in flight is dropped without a reply
	if cs.Flow.State() == flow.StateSubmitting {
		logger.Debug("Ignoring question while awaiting a reply")
		return nil
	}

	placeholder, err := h.send(cs.ChatID, h.text(cs, i18n.MsgProcessing, nil), false, nil)
	if err != nil {
		return err
	}

	go h.processQuestion(ctx, cs, message.Text, placeholder.MessageID)
	return nil
}

// processQuestion submits text and swaps the placeholder for the answer
func (h *MessageHandler) processQuestion(ctx context.Context, cs *ChatSession, text string, placeholder int) {
	reply, err := cs.Flow.Submit(ctx, text)
	if err != nil {
		// Failure notices come from the flow
		h.remove(cs.ChatID, placeholder)
		if !errors.Is(err, flow.ErrRejected) {
			h.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Warn("Question failed")
		}
		return
	}
	h.sessions.sendAnswer(cs, placeholder, *reply)
}

func (h *MessageHandler) handleDocument(ctx context.Context, cs *ChatSession, message *tgbotapi.Message) error {
	doc := message.Document
	maxSize := h.deps.Config.Uploads.MaxFileSize

	file := flow.UploadFile{
		Name:        doc.FileName,
		ContentType: doc.MimeType,
		Open: func() (io.ReadCloser, error) {
			if maxSize > 0 && int64(doc.FileSize) > maxSize {
				return nil, fmt.Errorf("file is %d bytes, limit is %d", doc.FileSize, maxSize)
			}
			url, err := h.deps.Bot.GetFileDirectURL(doc.FileID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve file: %w", err)
			}
			return h.deps.Download(ctx, url)
		},
	}

	go h.processUpload(ctx, cs, file)
	return nil
}

func (h *MessageHandler) processUpload(ctx context.Context, cs *ChatSession, file flow.UploadFile) {
	result, err := cs.Flow.UploadBatch(ctx, []flow.UploadFile{file})
	if h.deps.Metrics != nil {
		for range result.Uploaded {
			h.deps.Metrics.RecordUpload("success")
		}
		for range result.Failed {
			h.deps.Metrics.RecordUpload("error")
		}
		for range result.Skipped {
			h.deps.Metrics.RecordUpload("skipped")
		}
	}
	if err != nil {
		h.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Debug("Upload did not complete")
	}
}

func userID(message *tgbotapi.Message) int64 {
	if message.From == nil {
		return 0
	}
	return message.From.ID
}
