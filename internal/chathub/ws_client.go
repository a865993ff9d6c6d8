package chathub

import (
	"chatlounge/backend/internal/models"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// WebSocketClient реалізує інтерфейс chathub.Client.
// Три goroutines: readPump читає кадри, loop викликає Actor, writePump пише в сокет.
type WebSocketClient struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Actor  Actor

	Send    chan Envelope
	out     chan []byte
	inbound chan models.Inbound
	done    chan struct{}
	once    sync.Once
	log     *logrus.Entry
}

func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID string) *WebSocketClient {
	id := uuid.NewString()
	return &WebSocketClient{
		ID:      id,
		UserID:  userID,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan Envelope, sendBufferSize),
		out:     make(chan []byte, sendBufferSize),
		inbound: make(chan models.Inbound, 16),
		done:    make(chan struct{}),
		log: logrus.WithFields(logrus.Fields{
			"client_id": id,
			"user_id":   userID,
		}),
	}
}

// --- Реалізація методів інтерфейсу ---

func (c *WebSocketClient) GetID() string                   { return c.ID }
func (c *WebSocketClient) GetUserID() string               { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- Envelope { return c.Send }

// Emit серіалізує подію та ставить її в чергу writePump.
func (c *WebSocketClient) Emit(ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.log.WithError(err).Error("failed to encode event")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.out <- data:
	case <-c.done:
	default:
		c.log.WithField("event", ev.Event).Warn("outbound buffer full, closing connection")
		c.Close()
	}
}

// Run запускає 'pumps' для WebSocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.loop()
	go c.readPump()
}

// Close зупиняє всі goroutines клієнта; writePump закриє з'єднання.
func (c *WebSocketClient) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *WebSocketClient) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// loop є єдиним місцем, де викликається Actor.
func (c *WebSocketClient) loop() {
	defer c.finish()

	for {
		select {
		case in, ok := <-c.inbound:
			if !ok || c.closed() {
				return
			}
			c.Actor.Dispatch(in)
		case env := <-c.Send:
			c.Actor.Notify(env)
		case <-c.done:
			return
		}
	}
}

func (c *WebSocketClient) finish() {
	c.Hub.LeaveAll(c)
	c.Actor.Disconnect()
	c.Close()
}

// CloseWithCode відхиляє з'єднання до запуску pumps, надсилаючи код закриття.
func CloseWithCode(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}
