package voice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/voice"
	"github.com/studyspark-go/internal/voice/voicetest"
)

func TestRecognizerEmitsSingleResult(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	var results []string
	rec.OnResult(func(text string) { results = append(results, text) })

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	assert.Equal(t, voice.StateActive, rec.State())
	assert.Equal(t, "en-US", engine.Locale)

	engine.Send(voice.Event{Kind: voice.EventResult, Text: "what is osmosis"})
	engine.Send(voice.Event{Kind: voice.EventResult, Text: "second utterance"})
	engine.Send(voice.Event{Kind: voice.EventEnd})

	assert.Equal(t, []string{"what is osmosis"}, results)
	assert.Equal(t, voice.StateIdle, rec.State())
}

func TestRecognizerErrorIsNotAResult(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	var results []string
	var errs []error
	rec.OnResult(func(text string) { results = append(results, text) })
	rec.OnError(func(err error) { errs = append(errs, err) })

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	engine.Fail(errors.New("no-speech"))

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "no-speech")
	assert.Equal(t, voice.StateIdle, rec.State())
}

func TestRecognizerErrorAfterResultIsSilent(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	var results []string
	var errs []error
	rec.OnResult(func(text string) { results = append(results, text) })
	rec.OnError(func(err error) { errs = append(errs, err) })

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	engine.Send(voice.Event{Kind: voice.EventResult, Text: "what is osmosis"})
	engine.Send(voice.Event{Kind: voice.EventError, Err: errors.New("aborted")})

	assert.Equal(t, []string{"what is osmosis"}, results)
	assert.Empty(t, errs)
	assert.Equal(t, voice.StateIdle, rec.State())
}

func TestRecognizerEmptyTranscriptIsFailure(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	var results []string
	var errs []error
	rec.OnResult(func(text string) { results = append(results, text) })
	rec.OnError(func(err error) { errs = append(errs, err) })

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	engine.Say("   ")

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], voice.ErrNoSpeech)
}

func TestRecognizerRejectsSecondListen(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	assert.ErrorIs(t, rec.Listen(context.Background(), "en-US"), voice.ErrBusy)
	assert.Equal(t, 1, engine.Starts)
}

func TestRecognizerCancelDiscardsResult(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	var results []string
	rec.OnResult(func(text string) { results = append(results, text) })

	require.NoError(t, rec.Listen(context.Background(), "en-US"))
	rec.Cancel()
	assert.Equal(t, voice.StateIdle, rec.State())
	assert.Equal(t, 1, engine.Aborts)

	engine.Say("too late")
	assert.Empty(t, results)
}

func TestRecognizerReleasedWhenContextEnds(t *testing.T) {
	engine := &voicetest.Recognition{}
	rec := voice.NewRecognizer(engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rec.Listen(ctx, "en-US"))
	cancel()

	require.Eventually(t, func() bool {
		return rec.State() == voice.StateIdle
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, engine.Aborts)
}

func TestRecognizerStartFailureReturnsToIdle(t *testing.T) {
	engine := &voicetest.Recognition{StartErr: errors.New("not-allowed")}
	rec := voice.NewRecognizer(engine, nil)

	assert.Error(t, rec.Listen(context.Background(), "en-US"))
	assert.Equal(t, voice.StateIdle, rec.State())
}

func TestUnavailableCapabilities(t *testing.T) {
	rec := voice.NewRecognizer(nil, nil)
	syn := voice.NewSynthesizer(nil, nil)

	assert.Equal(t, voice.StateUnavailable, rec.State())
	assert.Equal(t, voice.StateUnavailable, syn.State())
	assert.ErrorIs(t, rec.Listen(context.Background(), "en-US"), voice.ErrUnavailable)
	assert.ErrorIs(t, syn.Speak("hello", "en-US"), voice.ErrUnavailable)

	// no panics on the idle paths
	rec.Stop()
	rec.Cancel()
	syn.Pause()
	syn.Stop()
}

func TestSynthesizerNewUtteranceSupersedes(t *testing.T) {
	engine := &voicetest.Synthesis{}
	syn := voice.NewSynthesizer(engine, nil)

	var finished int
	syn.OnDone(func(error) { finished++ })

	require.NoError(t, syn.Speak("first answer", "en-US"))
	require.NoError(t, syn.Speak("second answer", "en-US"))

	assert.Equal(t, 1, engine.Cancels)
	assert.Equal(t, []string{"first answer", "second answer"}, engine.Spoken)
	assert.Equal(t, voice.StateActive, syn.State())
	assert.Zero(t, finished)

	engine.Finish(nil)
	assert.Equal(t, voice.StateIdle, syn.State())
	assert.Equal(t, 1, finished)
}

func TestSynthesizerPauseResumeStop(t *testing.T) {
	engine := &voicetest.Synthesis{}
	syn := voice.NewSynthesizer(engine, nil)

	require.NoError(t, syn.Speak("a long explanation", "fr-FR"))
	syn.Toggle()
	assert.True(t, syn.Paused())
	syn.Pause()
	assert.Equal(t, 1, engine.Pauses)

	syn.Toggle()
	assert.False(t, syn.Paused())
	assert.Equal(t, 1, engine.Resumes)

	syn.Stop()
	assert.Equal(t, voice.StateIdle, syn.State())
	assert.Equal(t, 1, engine.Cancels)

	// engine reporting after stop is ignored
	engine.Finish(errors.New("interrupted"))
	assert.Equal(t, voice.StateIdle, syn.State())
}

func TestSynthesizerIgnoresBlankText(t *testing.T) {
	engine := &voicetest.Synthesis{}
	syn := voice.NewSynthesizer(engine, nil)

	require.NoError(t, syn.Speak("  ", "en-US"))
	assert.Empty(t, engine.Spoken)
	assert.Equal(t, voice.StateIdle, syn.State())
}

func TestBridgeFollowsVoiceSetting(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Language = models.German
	rec := &voicetest.Recognition{}
	syn := &voicetest.Synthesis{}
	b := voice.NewBridge(rec, syn, func() models.Settings { return settings }, nil)

	assert.True(t, b.CanListen())
	assert.True(t, b.CanSpeak())
	require.NoError(t, b.Speak("Hallo"))
	assert.Equal(t, []string{"de-DE"}, syn.Locales)

	require.NoError(t, b.ToggleListening(context.Background()))
	assert.Equal(t, "de-DE", rec.Locale)
	require.NoError(t, b.ToggleListening(context.Background()))
	assert.Equal(t, 1, rec.Stops)
	assert.Equal(t, voice.StateIdle, b.Recognizer.State())

	settings.VoiceEnabled = false
	assert.False(t, b.CanListen())
	assert.False(t, b.CanSpeak())
	assert.ErrorIs(t, b.Listen(context.Background()), voice.ErrDisabled)
	assert.ErrorIs(t, b.Speak("Hallo"), voice.ErrDisabled)
}

func TestBridgeWithoutEngines(t *testing.T) {
	b := voice.NewBridge(nil, nil, func() models.Settings { return models.DefaultSettings() }, nil)
	assert.False(t, b.CanListen())
	assert.False(t, b.CanSpeak())
	assert.ErrorIs(t, b.Listen(context.Background()), voice.ErrUnavailable)
	b.Close()
}
