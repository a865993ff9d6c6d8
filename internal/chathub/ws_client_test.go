package chathub

import (
	"chatlounge/backend/internal/models"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingActor тримає перший Dispatch, доки тест не відпустить release.
type blockingActor struct {
	mu           sync.Mutex
	dispatched   []models.Inbound
	release      chan struct{}
	disconnected chan struct{}
}

func (a *blockingActor) Dispatch(in models.Inbound) {
	a.mu.Lock()
	a.dispatched = append(a.dispatched, in)
	first := len(a.dispatched) == 1
	a.mu.Unlock()
	if first {
		<-a.release
	}
}

func (a *blockingActor) Notify(Envelope) {}

func (a *blockingActor) Disconnect() { close(a.disconnected) }

func (a *blockingActor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.dispatched)
}

func TestWebSocketClient_DropsBufferedFramesAfterDisconnect(t *testing.T) {
	actor := &blockingActor{release: make(chan struct{}), disconnected: make(chan struct{})}
	clients := make(chan *WebSocketClient, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewWebSocketClient(NewManagerService(nil), conn, "user_A")
		c.Actor = actor
		c.Run()
		clients <- c
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	c := <-clients

	for i := 0; i < 5; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"send_message","content":"hi"}`)))
	}
	require.Eventually(t, func() bool { return actor.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	require.Eventually(t, c.closed, 2*time.Second, 5*time.Millisecond)

	close(actor.release)
	select {
	case <-actor.disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("actor was never disconnected")
	}
	assert.Equal(t, 1, actor.count())
}
