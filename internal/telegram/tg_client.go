package telegram

import (
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/randomchat"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sender надсилає повідомлення в Telegram. *tgbotapi.BotAPI його реалізує.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type command struct {
	actions []models.Inbound
	verbose bool
}

// Client реалізує інтерфейс chathub.Client для одного Telegram чату.
// Вхідні команди приходять від BotService, а не з власного read pump.
type Client struct {
	ID     string
	UserID string
	ChatID int64
	Lang   string
	Actor  chathub.Actor

	Send     chan chathub.Envelope
	sender   Sender
	text     *localization.Localizer
	commands chan command
	done     chan struct{}
	once     sync.Once
	log      *logrus.Entry
	// onStop викликається, коли loop завершився.
	onStop func()

	// Стан, який бачив користувач. Змінюється лише в goroutine loop.
	sessionID string
	queued    bool
	verbose   bool
	muted     bool
}

func NewClient(sender Sender, text *localization.Localizer, chatID int64, userID, lang string) *Client {
	id := uuid.NewString()
	return &Client{
		ID:       id,
		UserID:   userID,
		ChatID:   chatID,
		Lang:     lang,
		Send:     make(chan chathub.Envelope, 32),
		sender:   sender,
		text:     text,
		commands: make(chan command, 16),
		done:     make(chan struct{}),
		log: logrus.WithFields(logrus.Fields{
			"client_id": id,
			"user_id":   userID,
			"chat_id":   chatID,
		}),
	}
}

// IdentityID is the random chat identity of a Telegram user.
func IdentityID(telegramUserID int64) string {
	return "tg:" + strconv.FormatInt(telegramUserID, 10)
}

// --- Реалізація методів інтерфейсу ---

func (c *Client) GetID() string                           { return c.ID }
func (c *Client) GetUserID() string                       { return c.UserID }
func (c *Client) GetSendChannel() chan<- chathub.Envelope { return c.Send }

// Emit відображає подію текстом і надсилає її в чат.
func (c *Client) Emit(ev models.Event) {
	text := c.render(ev)
	if text == "" || c.muted {
		return
	}
	if _, err := c.sender.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
		c.log.WithError(err).Warn("failed to send telegram message")
	}
}

func (c *Client) Run() {
	go c.loop()
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Closed повідомляє, чи клієнт уже закритий, наприклад хабом як повільний.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Deliver ставить дії в чергу клієнта. Повертає false, якщо черга повна.
func (c *Client) Deliver(actions []models.Inbound, verbose bool) bool {
	select {
	case c.commands <- command{actions: actions, verbose: verbose}:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) loop() {
	for {
		select {
		case <-c.done:
			c.Actor.Disconnect()
			if c.onStop != nil {
				c.onStop()
			}
			return
		case env := <-c.Send:
			c.Actor.Notify(env)
		case cmd := <-c.commands:
			for i, in := range cmd.actions {
				// Лише остання дія показує повний стан.
				c.verbose = cmd.verbose && i == len(cmd.actions)-1
				c.Actor.Dispatch(in)
			}
			c.verbose = false
		}
	}
}

func (c *Client) render(ev models.Event) string {
	switch ev.Event {
	case models.EventState:
		st, ok := ev.Payload.(*randomchat.State)
		if !ok {
			return ""
		}
		return c.renderState(st)
	case models.EventMessage:
		msg, ok := ev.Message.(randomchat.MessageView)
		if !ok || msg.FromSelf {
			return ""
		}
		return msg.Content
	case models.EventError, models.EventInfo:
		return ev.Detail
	}
	return ""
}

// renderState повідомляє лише про зміни: новий партнер, кінець чату, вхід у чергу.
// Команда /status (verbose) завжди показує поточний стан.
func (c *Client) renderState(st *randomchat.State) string {
	sessionID := ""
	if st.Session != nil {
		sessionID = st.Session.ID
	}
	prevSession, prevQueued := c.sessionID, c.queued
	c.sessionID, c.queued = sessionID, st.InQueue

	switch {
	case sessionID != "" && (sessionID != prevSession || c.verbose):
		return c.text.Format(c.Lang, "telegram.connected", st.Session.PartnerAlias)
	case sessionID != "":
		return ""
	case prevSession != "" && !st.InQueue:
		return c.text.GetString(c.Lang, "telegram.ended")
	case st.InQueue && (!prevQueued || prevSession != "" || c.verbose):
		position := 0
		if st.QueuePosition != nil {
			position = *st.QueuePosition
		}
		return c.text.Format(c.Lang, "telegram.searching", position, st.QueueSize)
	case !st.InQueue && c.verbose:
		return c.text.GetString(c.Lang, "telegram.idle")
	}
	return ""
}
