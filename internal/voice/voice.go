// Package voice adapts host speech engines to a small capability interface.
//
// Engines are supplied by the hosting environment; a nil engine means the
// capability is unavailable and every call degrades to ErrUnavailable instead
// of failing hard. Callers check CanListen/CanSpeak before offering the
// affordance.
package voice

import "errors"

var (
	// ErrUnavailable is returned when the host has no engine for a capability
	ErrUnavailable = errors.New("voice capability unavailable")
	// ErrDisabled is returned when the session has voice turned off
	ErrDisabled = errors.New("voice is disabled")
	// ErrBusy is returned when a recognition session is already listening
	ErrBusy = errors.New("already listening")
	// ErrNoSpeech is reported when recognition ends without a transcript
	ErrNoSpeech = errors.New("no speech recognized")
)

// State of a capability
type State int

const (
	StateUnavailable State = iota
	StateIdle
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unavailable"
	}
}

// EventKind distinguishes engine callbacks
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

// Event is emitted by engines and forwarded to callers
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// RecognitionEngine is the host's speech-to-text engine. Start begins a
// single-utterance session and reports through emit; the engine must emit
// EventEnd once the session is over.
type RecognitionEngine interface {
	Start(locale string, emit func(Event)) error
	Stop()
	Abort()
}

// SynthesisEngine is the host's text-to-speech engine. done is called once
// when the utterance finishes, fails or is cancelled.
type SynthesisEngine interface {
	Speak(text, locale string, done func(error)) error
	Pause()
	Resume()
	Cancel()
}
