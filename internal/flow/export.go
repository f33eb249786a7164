package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
)

// ErrNothingToExport is returned when the conversation is empty
var ErrNothingToExport = errors.New("no messages to export")

// Export sends the whole conversation to the export collaborator
func (f *Flow) Export(ctx context.Context) (*models.ExportResponse, error) {
	messages := f.session.Conversation.Messages()
	if len(messages) == 0 {
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgExportEmpty})
		return nil, ErrNothingToExport
	}
	if f.exports == nil {
		return nil, errors.New("exports are not configured")
	}

	resp, err := f.exports.Export(ctx, messages)
	if err == nil && (resp == nil || !resp.Success) {
		err = errors.New("export was not successful")
	}
	if err != nil {
		f.logger.WithError(err).WithField("messages", len(messages)).Error("Failed to export conversation")
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgExportFailed})
		return resp, fmt.Errorf("export failed: %w", err)
	}

	f.notifier.Notify(Notice{Level: LevelSuccess, ID: i18n.MsgExportSucceeded})
	return resp, nil
}
