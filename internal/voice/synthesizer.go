package voice

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Synthesizer plays at most one utterance at a time
type Synthesizer struct {
	engine SynthesisEngine
	logger *logrus.Logger

	mu        sync.Mutex
	state     State
	paused    bool
	utterance uint64
	onDone    func(err error)
}

// NewSynthesizer wraps engine; a nil engine yields an unavailable synthesizer
func NewSynthesizer(engine SynthesisEngine, logger *logrus.Logger) *Synthesizer {
	s := &Synthesizer{engine: engine, logger: logger, state: StateUnavailable}
	if engine != nil {
		s.state = StateIdle
	}
	return s
}

// OnDone registers a callback fired when an utterance ends on its own or fails.
// Superseded and stopped utterances don't fire it.
func (s *Synthesizer) OnDone(fn func(err error)) {
	s.mu.Lock()
	s.onDone = fn
	s.mu.Unlock()
}

// Available reports whether the host provided an engine
func (s *Synthesizer) Available() bool {
	return s.engine != nil
}

// State returns the playback state
func (s *Synthesizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether the active utterance is paused
func (s *Synthesizer) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Speak starts text, cancelling whatever is currently playing
func (s *Synthesizer) Speak(text, locale string) error {
	if s.engine == nil {
		return ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.mu.Lock()
	superseded := s.state == StateActive
	s.utterance++
	id := s.utterance
	s.state = StateActive
	s.paused = false
	s.mu.Unlock()

	// the engine may report the cancelled utterance synchronously; its id is
	// already stale so done ignores it
	if superseded {
		s.engine.Cancel()
	}

	err := s.engine.Speak(text, locale, func(err error) { s.done(id, err) })
	if err != nil {
		s.mu.Lock()
		if s.utterance == id {
			s.state = StateIdle
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Pause pauses the active utterance
func (s *Synthesizer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive && !s.paused {
		s.engine.Pause()
		s.paused = true
	}
}

// Resume continues a paused utterance
func (s *Synthesizer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive && s.paused {
		s.engine.Resume()
		s.paused = false
	}
}

// Toggle pauses when playing and resumes when paused
func (s *Synthesizer) Toggle() {
	if s.Paused() {
		s.Resume()
		return
	}
	s.Pause()
}

// Stop discards the rest of the active utterance
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.utterance++
	s.state = StateIdle
	s.paused = false
	s.mu.Unlock()

	s.engine.Cancel()
}

func (s *Synthesizer) done(id uint64, err error) {
	s.mu.Lock()
	if s.utterance != id {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.paused = false
	fn := s.onDone
	s.mu.Unlock()

	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("Speech synthesis failed")
	}
	if fn != nil {
		fn(err)
	}
}
