// Package telegram connects Telegram users to random chat. Every Telegram
// chat becomes one random chat connection driven by the same actor as the
// WebSocket endpoint.
package telegram

import (
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/ratelimit"
	"chatlounge/backend/internal/realtime"
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// BotService отримує оновлення Telegram і передає їх клієнтам.
type BotService struct {
	BotAPI      *tgbotapi.BotAPI
	Sender      Sender
	Posts       *realtime.Broadcaster
	Guard       *ratelimit.Guard
	Localizer   *localization.Localizer
	DefaultLang string

	mu      sync.Mutex
	clients map[int64]*Client
	log     *logrus.Entry
}

func NewBotService(token string, posts *realtime.Broadcaster, guard *ratelimit.Guard, loc *localization.Localizer, defaultLang string) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	s := newBotService(bot, posts, guard, loc, defaultLang)
	s.BotAPI = bot
	s.log.WithField("username", bot.Self.UserName).Info("authorized on telegram")
	return s, nil
}

func newBotService(sender Sender, posts *realtime.Broadcaster, guard *ratelimit.Guard, loc *localization.Localizer, defaultLang string) *BotService {
	return &BotService{
		Sender:      sender,
		Posts:       posts,
		Guard:       guard,
		Localizer:   loc,
		DefaultLang: defaultLang,
		clients:     make(map[int64]*Client),
		log:         logrus.WithField("component", "telegram"),
	}
}

// Start читає оновлення до скасування ctx.
func (s *BotService) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	s.log.Info("listening for telegram updates")
	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			s.closeAll()
			return
		case update, ok := <-updates:
			if !ok {
				s.closeAll()
				return
			}
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *BotService) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	actions, verbose := translateMessage(msg)
	if len(actions) == 0 {
		return
	}
	c := s.getOrCreateClient(ctx, msg)
	if !c.Deliver(actions, verbose) {
		s.log.WithField("chat_id", msg.Chat.ID).Warn("telegram client busy, dropping update")
	}
}

// translateMessage перетворює команду або текст на дії random chat.
// /next спершу стає в чергу, тож поточна розмова завершується новим підбором.
func translateMessage(msg *tgbotapi.Message) ([]models.Inbound, bool) {
	if msg.IsCommand() {
		switch msg.Command() {
		case "search":
			return []models.Inbound{{Action: models.ActionRequestMatch}}, true
		case "next":
			return []models.Inbound{{Action: models.ActionJoinQueue}, {Action: models.ActionRequestMatch}}, true
		case "stop":
			return []models.Inbound{{Action: models.ActionLeaveQueue}}, false
		case "start", "status":
			return []models.Inbound{{Action: models.ActionFetchState}}, true
		}
		return nil, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	return []models.Inbound{{Action: models.ActionSendMessage, Content: text}}, false
}

func (s *BotService) language(code string) string {
	if len(code) >= 2 && s.Localizer.Supports(code[:2]) {
		return code[:2]
	}
	return s.DefaultLang
}

// getOrCreateClient повертає клієнта чату або створює нового разом з actor.
// Закритий клієнт (хаб міг відкинути його як повільного) замінюється новим.
func (s *BotService) getOrCreateClient(ctx context.Context, msg *tgbotapi.Message) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[msg.Chat.ID]; ok {
		if !c.Closed() {
			return c
		}
		s.Posts.Hub.LeaveAll(c)
		delete(s.clients, msg.Chat.ID)
	}

	lang := s.language(msg.From.LanguageCode)
	ident := identityFor(msg.From)
	c := NewClient(s.Sender, s.Localizer, msg.Chat.ID, ident.ID, lang)
	actor := realtime.NewRandomChatActor(c, s.Posts, s.Guard, ident, "", realtime.Messages{Text: s.Localizer, Lang: lang})
	actor.Surface = metrics.SurfaceTelegram
	c.Actor = actor
	chatID := msg.Chat.ID
	c.onStop = func() { s.forget(chatID, c) }

	// Початковий стан лише запам'ятовується: його покаже команда, що прийшла.
	c.muted = true
	actor.Start(ctx)
	c.muted = false
	c.Run()

	s.clients[msg.Chat.ID] = c
	return c
}

// forget прибирає клієнта з мапи, якщо його ще не замінили.
func (s *BotService) forget(chatID int64, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[chatID] == c {
		delete(s.clients, chatID)
	}
}

func (s *BotService) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		s.Posts.Hub.LeaveAll(c)
		c.Close()
		delete(s.clients, id)
	}
}
