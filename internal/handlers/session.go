package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/studyspark-go/internal/config"
	"github.com/studyspark-go/internal/flow"
	"github.com/studyspark-go/internal/middleware"
	"github.com/studyspark-go/internal/models"
	"github.com/studyspark-go/internal/render"
	"github.com/studyspark-go/internal/session"
	"github.com/studyspark-go/internal/voice"
	"github.com/studyspark-go/pkg/logger"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Backend answers questions, stores uploads and exports conversations
type Backend interface {
	flow.ChatService
	flow.Uploader
	flow.Exporter
}

// Deps are shared by the command and message handlers
type Deps struct {
	Config    *config.Config
	Bot       Sender
	Backend   Backend
	Localizer render.Translator
	Limiter   middleware.RateLimiter
	Metrics   *middleware.Metrics
	Logger    *logrus.Logger
	// Download fetches a Telegram file; defaults to an HTTP GET
	Download func(ctx context.Context, url string) (io.ReadCloser, error)
	// Recognition and Synthesis are nil when the host has no speech engines
	Recognition voice.RecognitionEngine
	Synthesis   voice.SynthesisEngine
}

// ChatSession is the state one Telegram chat owns
type ChatSession struct {
	ChatID int64
	Flow   *flow.Flow
	Voice  *voice.Bridge
}

// Session returns the underlying conversation session
func (c *ChatSession) Session() *session.Session {
	return c.Flow.Session()
}

// Language is the chat's current answer language
func (c *ChatSession) Language() models.Language {
	return c.Session().Settings.Get().Language
}

// Sessions maps chats to sessions. A session idle for longer than the
// configured timeout is discarded along with its conversation.
type Sessions struct {
	deps     Deps
	defaults models.Settings
	mu       sync.Mutex
	table    *cache.Cache
}

// NewSessions creates the session table
func NewSessions(deps Deps) *Sessions {
	if deps.Download == nil {
		deps.Download = httpDownload
	}

	defaults := models.DefaultSettings()
	if lang, err := models.ParseLanguage(deps.Config.I18n.DefaultLanguage); err == nil {
		defaults.Language = lang
	}

	idle := deps.Config.Session.IdleTimeout
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	cleanup := deps.Config.Session.CleanupInterval
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	s := &Sessions{
		deps:     deps,
		defaults: defaults,
		table:    cache.New(idle, cleanup),
	}
	s.table.OnEvicted(func(key string, v interface{}) {
		cs := v.(*ChatSession)
		cs.Voice.Close()
		deps.Logger.WithField("chat_id", cs.ChatID).Debug("Session expired")
	})
	return s
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// Get returns the chat's session, creating it on first contact, and
// refreshes its idle timer
func (s *Sessions) Get(chatID int64) *ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(chatID)
	if v, found := s.table.Get(key); found {
		s.table.SetDefault(key, v)
		return v.(*ChatSession)
	}

	cs := s.create(chatID)
	s.table.SetDefault(key, cs)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetActiveSessions(s.table.ItemCount())
	}
	return cs
}

// Reset discards the chat's session; the next message starts a fresh one
func (s *Sessions) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Delete(sessionKey(chatID))
}

// Count returns the number of live sessions
func (s *Sessions) Count() int {
	return s.table.ItemCount()
}

func (s *Sessions) create(chatID int64) *ChatSession {
	sess := session.New(sessionKey(chatID), s.defaults)
	cs := &ChatSession{ChatID: chatID}

	cs.Voice = voice.NewBridge(s.deps.Recognition, s.deps.Synthesis, sess.Settings.Get, s.deps.Logger)

	var metrics flow.Metrics
	if s.deps.Metrics != nil {
		metrics = s.deps.Metrics
	}
	cs.Flow = flow.New(sess, s.deps.Backend, s.deps.Backend, s.deps.Backend, s.notifier(cs), flow.Options{
		AutoSendDelay: s.deps.Config.Voice.AutoSendDelay,
		AutoSubmitted: func(reply *models.Message, err error) {
			if err == nil {
				s.sendAnswer(cs, 0, *reply)
			}
		},
		Metrics: metrics,
		Logger:  s.deps.Logger,
	})
	cs.Flow.AttachVoice(cs.Voice)

	logger.WithSession(s.deps.Logger, sess.ID).WithField("chat_id", chatID).Info("Session started")
	return cs
}

func (s *Sessions) notifier(cs *ChatSession) flow.Notifier {
	return flow.NotifierFunc(func(n flow.Notice) {
		text := s.deps.Localizer.Get(cs.Language(), n.ID, n.Data)
		switch n.Level {
		case flow.LevelError:
			text = "⚠️ " + text
		case flow.LevelSuccess:
			text = "✅ " + text
		}
		if _, err := s.deps.Bot.Send(tgbotapi.NewMessage(cs.ChatID, text)); err != nil {
			s.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Error("Failed to send notification")
		}
	})
}

// sendAnswer renders an assistant message, replacing placeholder when set
func (s *Sessions) sendAnswer(cs *ChatSession, placeholder int, msg models.Message) {
	settings := cs.Session().Settings.Get()
	text := render.Message(s.deps.Localizer, msg, settings)
	markup := answerKeyboard(cs, msg)

	var err error
	if placeholder != 0 {
		edit := tgbotapi.NewEditMessageText(cs.ChatID, placeholder, text)
		edit.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			edit.ReplyMarkup = markup
		}
		_, err = s.deps.Bot.Send(edit)
	} else {
		out := tgbotapi.NewMessage(cs.ChatID, text)
		out.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			out.ReplyMarkup = markup
		}
		_, err = s.deps.Bot.Send(out)
	}
	if err != nil {
		s.deps.Logger.WithError(err).WithField("chat_id", cs.ChatID).Error("Failed to send answer")
	}
}

func httpDownload(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
