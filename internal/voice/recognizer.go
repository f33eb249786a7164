package voice

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Recognizer runs one single-utterance listening session at a time
type Recognizer struct {
	engine RecognitionEngine
	logger *logrus.Logger

	mu      sync.Mutex
	state   State
	session uint64
	emitted bool
	stopCtx context.CancelFunc

	onResult func(text string)
	onError  func(err error)
}

// NewRecognizer wraps engine; a nil engine yields an unavailable recognizer
func NewRecognizer(engine RecognitionEngine, logger *logrus.Logger) *Recognizer {
	r := &Recognizer{engine: engine, logger: logger, state: StateUnavailable}
	if engine != nil {
		r.state = StateIdle
	}
	return r
}

// OnResult registers the callback for a recognized transcript
func (r *Recognizer) OnResult(fn func(text string)) {
	r.mu.Lock()
	r.onResult = fn
	r.mu.Unlock()
}

// OnError registers the callback for recognition failures
func (r *Recognizer) OnError(fn func(err error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// State returns the current listening state
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Available reports whether the host provided an engine
func (r *Recognizer) Available() bool {
	return r.engine != nil
}

// Listen starts a listening session. The session is aborted when ctx is done,
// so tying ctx to the caller's lifetime releases the engine on teardown.
func (r *Recognizer) Listen(ctx context.Context, locale string) error {
	if r.engine == nil {
		return ErrUnavailable
	}

	r.mu.Lock()
	if r.state == StateActive {
		r.mu.Unlock()
		return ErrBusy
	}
	r.session++
	id := r.session
	r.state = StateActive
	r.emitted = false
	watchCtx, cancel := context.WithCancel(ctx)
	r.stopCtx = cancel
	r.mu.Unlock()

	if err := r.engine.Start(locale, func(ev Event) { r.handle(id, ev) }); err != nil {
		cancel()
		r.finish(id)
		return err
	}

	go func() {
		<-watchCtx.Done()
		r.mu.Lock()
		stillRunning := r.session == id && r.state == StateActive
		r.mu.Unlock()
		if stillRunning && ctx.Err() != nil {
			r.engine.Abort()
			r.finish(id)
		}
	}()

	if r.logger != nil {
		r.logger.WithField("locale", locale).Debug("Listening for speech")
	}
	return nil
}

// Stop ends the current session; the engine may still deliver a final result
func (r *Recognizer) Stop() {
	r.mu.Lock()
	active := r.state == StateActive
	r.mu.Unlock()
	if active {
		r.engine.Stop()
	}
}

// Cancel aborts the current session and discards any pending result
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	active := r.state == StateActive
	id := r.session
	r.mu.Unlock()
	if active {
		r.engine.Abort()
		r.finish(id)
	}
}

func (r *Recognizer) handle(id uint64, ev Event) {
	r.mu.Lock()
	if r.session != id || r.state != StateActive {
		r.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventResult:
		text := strings.TrimSpace(ev.Text)
		if r.emitted {
			r.mu.Unlock()
			return
		}
		r.emitted = true
		if text == "" {
			fn := r.onError
			r.mu.Unlock()
			if fn != nil {
				fn(ErrNoSpeech)
			}
			return
		}
		fn := r.onResult
		r.mu.Unlock()
		if fn != nil {
			fn(text)
		}
	case EventError:
		// a session that already delivered its outcome only ends
		delivered := r.emitted
		r.emitted = true
		fn := r.onError
		r.mu.Unlock()
		err := ev.Err
		if err == nil {
			err = ErrNoSpeech
		}
		if delivered {
			if r.logger != nil {
				r.logger.WithError(err).Debug("Speech recognition error after result ignored")
			}
			r.finish(id)
			return
		}
		if r.logger != nil {
			r.logger.WithError(err).Warn("Speech recognition failed")
		}
		if fn != nil {
			fn(err)
		}
		r.finish(id)
	case EventEnd:
		r.mu.Unlock()
		r.finish(id)
	default:
		r.mu.Unlock()
	}
}

func (r *Recognizer) finish(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != id || r.state != StateActive {
		return
	}
	r.state = StateIdle
	if r.stopCtx != nil {
		r.stopCtx()
		r.stopCtx = nil
	}
}
