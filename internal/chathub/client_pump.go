package chathub

import (
	"chatlounge/backend/internal/models"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// readPump читає кадри з WebSocket і передає їх у loop.
// Після розриву з'єднання клієнт закривається ще до close(inbound), тож loop
// не виконає кадри, що лишились у буфері.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Close()
		close(c.inbound)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("error reading message")
			}
			return
		}

		var in models.Inbound
		if err := json.Unmarshal(message, &in); err != nil {
			// Актор відповість помилкою INVALID_PAYLOAD
			in = models.Inbound{Malformed: true}
		}

		select {
		case c.inbound <- in:
		case <-c.done:
			return
		}
	}
}

// writePump читає готові кадри з out і записує їх у WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data := <-c.out:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			// Надсилаємо Ping для підтримки з'єднання активним
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.flush()
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush дописує кадри, що вже стоять у черзі.
func (c *WebSocketClient) flush() {
	for {
		select {
		case data := <-c.out:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}
