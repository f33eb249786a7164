package voice

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/models"
)

// Bridge gates recognition and synthesis by the session's voice setting
type Bridge struct {
	Recognizer  *Recognizer
	Synthesizer *Synthesizer
	settings    func() models.Settings
}

// NewBridge builds a bridge over the host engines; either engine may be nil
func NewBridge(rec RecognitionEngine, syn SynthesisEngine, settings func() models.Settings, logger *logrus.Logger) *Bridge {
	return &Bridge{
		Recognizer:  NewRecognizer(rec, logger),
		Synthesizer: NewSynthesizer(syn, logger),
		settings:    settings,
	}
}

func (b *Bridge) enabled() bool {
	return b.settings == nil || b.settings().VoiceEnabled
}

// CanListen reports whether a voice-input affordance should be offered
func (b *Bridge) CanListen() bool {
	return b.enabled() && b.Recognizer.Available()
}

// CanSpeak reports whether a read-aloud affordance should be offered
func (b *Bridge) CanSpeak() bool {
	return b.enabled() && b.Synthesizer.Available()
}

// Listen starts recognition in the session language
func (b *Bridge) Listen(ctx context.Context) error {
	if !b.enabled() {
		return ErrDisabled
	}
	return b.Recognizer.Listen(ctx, b.locale())
}

// ToggleListening starts listening when idle and stops when listening
func (b *Bridge) ToggleListening(ctx context.Context) error {
	if b.Recognizer.State() == StateActive {
		b.Recognizer.Stop()
		return nil
	}
	return b.Listen(ctx)
}

// Speak reads text aloud in the session language
func (b *Bridge) Speak(text string) error {
	if !b.enabled() {
		return ErrDisabled
	}
	return b.Synthesizer.Speak(text, b.locale())
}

// Close releases both capabilities
func (b *Bridge) Close() {
	b.Recognizer.Cancel()
	b.Synthesizer.Stop()
}

func (b *Bridge) locale() string {
	if b.settings == nil {
		return models.English.SpeechLocale()
	}
	return b.settings().Language.SpeechLocale()
}
