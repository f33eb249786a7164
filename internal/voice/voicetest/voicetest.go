// Package voicetest provides scriptable speech engines for tests.
package voicetest

import (
	"sync"

	"github.com/studyspark-go/internal/voice"
)

// Recognition is a fake RecognitionEngine driven by the test
type Recognition struct {
	mu       sync.Mutex
	emit     func(voice.Event)
	Locale   string
	Starts   int
	Stops    int
	Aborts   int
	StartErr error
}

// Start records the session and keeps emit for later
func (r *Recognition) Start(locale string, emit func(voice.Event)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StartErr != nil {
		return r.StartErr
	}
	r.Starts++
	r.Locale = locale
	r.emit = emit
	return nil
}

// Stop behaves like a host engine: the session ends
func (r *Recognition) Stop() {
	r.mu.Lock()
	r.Stops++
	emit := r.emit
	r.mu.Unlock()
	if emit != nil {
		emit(voice.Event{Kind: voice.EventEnd})
	}
}

// Abort ends the session without a result
func (r *Recognition) Abort() {
	r.mu.Lock()
	r.Aborts++
	emit := r.emit
	r.emit = nil
	r.mu.Unlock()
	if emit != nil {
		emit(voice.Event{Kind: voice.EventEnd})
	}
}

// Say delivers a transcript followed by the end of the session
func (r *Recognition) Say(text string) {
	r.send(voice.Event{Kind: voice.EventResult, Text: text})
	r.send(voice.Event{Kind: voice.EventEnd})
}

// Fail delivers a recognition error followed by the end of the session
func (r *Recognition) Fail(err error) {
	r.send(voice.Event{Kind: voice.EventError, Err: err})
	r.send(voice.Event{Kind: voice.EventEnd})
}

// Send delivers a single raw event
func (r *Recognition) Send(ev voice.Event) {
	r.send(ev)
}

func (r *Recognition) send(ev voice.Event) {
	r.mu.Lock()
	emit := r.emit
	r.mu.Unlock()
	if emit != nil {
		emit(ev)
	}
}

// Synthesis is a fake SynthesisEngine that plays until the test finishes it
type Synthesis struct {
	mu       sync.Mutex
	done     func(error)
	Spoken   []string
	Locales  []string
	Pauses   int
	Resumes  int
	Cancels  int
	SpeakErr error
}

// Speak records text and holds the completion callback
func (s *Synthesis) Speak(text, locale string, done func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakErr != nil {
		return s.SpeakErr
	}
	s.Spoken = append(s.Spoken, text)
	s.Locales = append(s.Locales, locale)
	s.done = done
	return nil
}

func (s *Synthesis) Pause() {
	s.mu.Lock()
	s.Pauses++
	s.mu.Unlock()
}

func (s *Synthesis) Resume() {
	s.mu.Lock()
	s.Resumes++
	s.mu.Unlock()
}

// Cancel reports the current utterance as finished, as browsers do
func (s *Synthesis) Cancel() {
	s.mu.Lock()
	s.Cancels++
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		done(nil)
	}
}

// Finish completes the current utterance with err
func (s *Synthesis) Finish(err error) {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		done(err)
	}
}
