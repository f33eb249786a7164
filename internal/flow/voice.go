package flow

import (
	"context"
	"errors"
	"time"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/voice"
)

// AttachVoice routes the bridge's recognition events into this flow
func (f *Flow) AttachVoice(b *voice.Bridge) {
	b.Recognizer.OnResult(f.HandleTranscript)
	b.Recognizer.OnError(func(err error) {
		f.logger.WithError(err).Debug("Voice input failed")
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgVoiceFailed})
	})
	b.Synthesizer.OnDone(func(err error) {
		if err != nil {
			f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgSpeechFailed})
		}
	})
}

// Listen starts voice input. An unavailable recognizer is reported once per
// flow; a disabled one is silently ignored.
func (f *Flow) Listen(ctx context.Context, b *voice.Bridge) error {
	err := b.Listen(ctx)
	switch {
	case err == nil:
		f.notifier.Notify(Notice{Level: LevelInfo, ID: i18n.MsgVoiceListening})
	case errors.Is(err, voice.ErrUnavailable):
		f.voiceNoticeOnce.Do(func() {
			f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgVoiceUnsupported})
		})
	case errors.Is(err, voice.ErrDisabled), errors.Is(err, voice.ErrBusy):
	default:
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgVoiceFailed})
	}
	return err
}

// ReadAloud speaks an assistant message through the bridge
func (f *Flow) ReadAloud(b *voice.Bridge, msg models.Message) error {
	err := b.Speak(msg.Content)
	switch {
	case err == nil:
	case errors.Is(err, voice.ErrUnavailable):
		f.speechNoticeOnce.Do(func() {
			f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgSpeechUnsupported})
		})
	case errors.Is(err, voice.ErrDisabled):
	default:
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgSpeechFailed})
	}
	return err
}

// HandleTranscript puts recognized text into the composer and, when
// auto-send is on, schedules it to be sent after the grace window
func (f *Flow) HandleTranscript(text string) {
	f.cancelAutoSend()
	f.composer.set(text)
	f.notifier.Notify(Notice{Level: LevelInfo, ID: i18n.MsgVoiceCaptured})

	if f.autoSendDelay <= 0 {
		return
	}
	f.scheduleAutoSend(f.autoSendDelay)
}

// AutoSendPending reports whether a voice transcript is waiting to be sent
func (f *Flow) AutoSendPending() bool {
	f.autoMu.Lock()
	defer f.autoMu.Unlock()
	return f.autoTimer != nil
}

func (f *Flow) scheduleAutoSend(delay time.Duration) {
	f.autoMu.Lock()
	defer f.autoMu.Unlock()

	f.autoSeq++
	seq := f.autoSeq
	f.autoTimer = time.AfterFunc(delay, func() {
		f.autoMu.Lock()
		if f.autoSeq != seq {
			f.autoMu.Unlock()
			return
		}
		f.autoTimer = nil
		// read under autoMu so an EditDraft either cancels this send or lands after the snapshot
		text := f.composer.Text()
		f.autoMu.Unlock()

		reply, err := f.submit(f.autoCtx, text, func() { f.composer.clearIf(text) })
		if f.autoDone != nil {
			f.autoDone(reply, err)
		}
	})
}

func (f *Flow) cancelAutoSend() {
	f.autoMu.Lock()
	defer f.autoMu.Unlock()

	f.autoSeq++
	if f.autoTimer != nil {
		f.autoTimer.Stop()
		f.autoTimer = nil
	}
}
