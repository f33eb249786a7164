// Package render turns session state into Telegram HTML.
package render

import (
	"fmt"
	"strings"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/pkg/markdown"
)

// Translator localizes message ids
type Translator interface {
	Get(lang models.Language, id string, data map[string]interface{}) string
}

// Visible returns the parts of msg the settings allow to be shown. Steps and
// sources are suppressed locally even when the collaborator sent them.
func Visible(msg models.Message, settings models.Settings) models.Message {
	out := msg.Clone()
	if !settings.StepByStepSolutions {
		out.Steps = nil
	}
	if !settings.ShowSources {
		out.Sources = nil
	}
	return out
}

// Message renders one log entry. Assistant content is treated as markdown;
// user content is shown verbatim.
func Message(tr Translator, msg models.Message, settings models.Settings) string {
	msg = Visible(msg, settings)
	lang := settings.Language

	var b strings.Builder
	if msg.IsAssistant() {
		b.WriteString(markdown.ToTelegramHTML(msg.Content))
	} else {
		b.WriteString(markdown.Escape(msg.Content))
	}

	gap := "\n"
	if settings.FontSize == models.FontLarge {
		gap = "\n\n"
	}

	if len(msg.Steps) > 0 {
		fmt.Fprintf(&b, "\n\n<b>%s</b>\n", markdown.Escape(tr.Get(lang, i18n.MsgStepsHeading, nil)))
		for i, step := range msg.Steps {
			if i > 0 {
				b.WriteString(gap)
			}
			fmt.Fprintf(&b, "%d. %s", i+1, markdown.Escape(step))
		}
	}

	if len(msg.Sources) > 0 {
		fmt.Fprintf(&b, "\n\n<b>%s</b>\n", markdown.Escape(tr.Get(lang, i18n.MsgSourcesHeading, nil)))
		for i, src := range msg.Sources {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(Source(src, settings.FontSize != models.FontSmall))
		}
	}

	return strings.TrimSpace(b.String())
}

// Source renders a citation; placeholder urls are not linked
func Source(src models.Source, withDescription bool) string {
	title := markdown.Escape(src.Title)
	line := "• " + title
	if isLink(src.URL) {
		line = fmt.Sprintf(`• <a href="%s">%s</a>`, markdown.Escape(src.URL), title)
	}
	if withDescription && src.Description != "" {
		line += " <i>" + markdown.Escape(src.Description) + "</i>"
	}
	return line
}

func isLink(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Documents lists uploaded study materials, marking the active ones
func Documents(tr Translator, lang models.Language, docs []models.PDFDocument, isActive func(id string) bool) string {
	if len(docs) == 0 {
		return tr.Get(lang, i18n.MsgNoDocuments, nil)
	}

	active := 0
	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		mark := "○"
		if isActive(doc.ID) {
			mark = "●"
			active++
		}
		lines = append(lines, fmt.Sprintf("%s <b>%s</b> (%s) <code>%s</code>",
			mark, markdown.Escape(doc.Name), Size(doc.Size), markdown.Escape(doc.ID)))
	}

	header := tr.Get(lang, i18n.MsgDocumentList, map[string]interface{}{"Active": active})
	return markdown.Escape(header) + "\n" + strings.Join(lines, "\n")
}

// Settings renders the settings summary
func Settings(tr Translator, s models.Settings) string {
	return tr.Get(s.Language, i18n.MsgSettings, map[string]interface{}{
		"Language":   string(s.Language),
		"Voice":      onOff(s.VoiceEnabled),
		"Simplified": onOff(s.SimplifiedAnswers),
		"Steps":      onOff(s.StepByStepSolutions),
		"Sources":    onOff(s.ShowSources),
		"FontSize":   string(s.FontSize),
	})
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// Size formats a byte count for people
func Size(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
