// Package flow orchestrates a session's conversation: question submission,
// voice-dictated drafts, study-material uploads and exports.
//
// A submission is a strict two-phase exchange. The user message is appended
// and the session marked awaiting before the chat collaborator is called;
// whatever the outcome, the session returns to idle exactly once. Only one
// submission may be in flight; further attempts are rejected, not queued.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/i18n"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/session"
)

var (
	// ErrRejected marks a submission that was ignored without side effects
	ErrRejected = errors.New("submission rejected")
	// ErrEmptyInput is returned for blank questions
	ErrEmptyInput = fmt.Errorf("%w: empty question", ErrRejected)
	// ErrBusy is returned while a previous question is awaiting its answer
	ErrBusy = fmt.Errorf("%w: awaiting response", ErrRejected)
)

// State of the submission state machine
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Options tune a Flow
type Options struct {
	// AutoSendDelay is the grace window between a voice transcript landing in
	// the composer and it being sent. Zero disables auto-send.
	AutoSendDelay time.Duration
	// AutoSubmitted receives the outcome of voice-triggered submissions
	AutoSubmitted func(reply *models.Message, err error)
	// Context bounds voice-triggered submissions; defaults to Background
	Context context.Context
	Metrics Metrics
	Logger  *logrus.Logger
	Now     func() time.Time
}

// Flow drives one session
type Flow struct {
	session  *session.Session
	chat     ChatService
	uploads  Uploader
	exports  Exporter
	notifier Notifier
	composer *Composer
	metrics  Metrics
	logger   *logrus.Entry
	now      func() time.Time
	ids      *idGenerator

	mu    sync.Mutex
	state State

	autoMu        sync.Mutex
	autoSendDelay time.Duration
	autoTimer     *time.Timer
	autoSeq       uint64
	autoCtx       context.Context
	autoDone      func(reply *models.Message, err error)

	voiceNoticeOnce  sync.Once
	speechNoticeOnce sync.Once
}

// New creates a flow for sess. uploads and exports may be nil when the
// presentation layer doesn't offer those features.
func New(sess *session.Session, chat ChatService, uploads Uploader, exports Exporter, notifier Notifier, opts Options) *Flow {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return &Flow{
		session:       sess,
		chat:          chat,
		uploads:       uploads,
		exports:       exports,
		notifier:      notifier,
		composer:      &Composer{},
		metrics:       opts.Metrics,
		logger:        log.WithField("session_id", sess.ID),
		now:           now,
		ids:           &idGenerator{now: now},
		autoSendDelay: opts.AutoSendDelay,
		autoCtx:       ctx,
		autoDone:      opts.AutoSubmitted,
	}
}

// Session returns the session this flow drives
func (f *Flow) Session() *session.Session {
	return f.session
}

// Composer returns the draft holder
func (f *Flow) Composer() *Composer {
	return f.composer
}

// State returns the current submission state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit sends text to the chat collaborator and returns the appended
// assistant message. Blank text or a pending submission yield an error
// matching ErrRejected and change nothing.
func (f *Flow) Submit(ctx context.Context, text string) (*models.Message, error) {
	return f.submit(ctx, text, nil)
}

// SubmitDraft submits the composer's text and clears the composer once the
// submission is accepted
func (f *Flow) SubmitDraft(ctx context.Context) (*models.Message, error) {
	f.cancelAutoSend()
	return f.submit(ctx, f.composer.Text(), f.composer.clear)
}

// EditDraft replaces the draft with the user's edit; a pending voice
// auto-send is cancelled
func (f *Flow) EditDraft(text string) {
	f.cancelAutoSend()
	f.composer.set(text)
}

func (f *Flow) submit(ctx context.Context, text string, accepted func()) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		f.logger.Debug("Submission rejected: awaiting response")
		return nil, ErrBusy
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	conv := f.session.Conversation
	settings := f.session.Settings.Get()
	pdfIDs := f.session.PDFs.ActiveIDs()

	userMsg := models.Message{
		ID:            f.ids.next("user"),
		Role:          models.RoleUser,
		Content:       text,
		Timestamp:     f.now(),
		RelatedPDFIDs: pdfIDs,
	}
	if err := conv.Append(userMsg); err != nil {
		f.setIdle()
		return nil, err
	}
	conv.SetAwaiting(true)
	if accepted != nil {
		accepted()
	}

	started := time.Now()
	defer func() {
		conv.SetAwaiting(false)
		f.setIdle()
	}()

	f.logger.WithFields(logrus.Fields{
		"message_id": userMsg.ID,
		"pdf_ids":    len(pdfIDs),
	}).Debug("Submitting question")

	reply, err := f.chat.Chat(ctx, models.ChatRequest{
		Message:  text,
		Settings: settings,
		PDFIDs:   pdfIDs,
	})
	if err == nil && reply == nil {
		err = errors.New("empty response from chat service")
	}
	if err != nil {
		f.record("error", started)
		f.logger.WithError(err).WithField("message_id", userMsg.ID).Error("Failed to get chat response")
		f.notifier.Notify(Notice{Level: LevelError, ID: i18n.MsgChatFailed})
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	answer := reply.Clone()
	answer.Role = models.RoleAssistant
	if answer.ID == "" {
		answer.ID = f.ids.next("ai")
	}
	if answer.Timestamp.IsZero() {
		answer.Timestamp = f.now()
	}
	if len(answer.RelatedPDFIDs) == 0 && len(pdfIDs) > 0 {
		answer.RelatedPDFIDs = append([]string(nil), pdfIDs...)
	}

	if err := conv.Append(answer); err != nil {
		f.record("error", started)
		return nil, err
	}
	f.record("success", started)

	return &answer, nil
}

func (f *Flow) setIdle() {
	f.mu.Lock()
	f.state = StateIdle
	f.mu.Unlock()
}

func (f *Flow) record(status string, started time.Time) {
	if f.metrics != nil {
		f.metrics.RecordSubmission(status, time.Since(started))
	}
}
