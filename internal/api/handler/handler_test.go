package handler_test

import (
	"bytes"
	"chatlounge/backend/internal/api/handler"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/ratelimit"
	"chatlounge/backend/internal/realtime"
	"chatlounge/backend/internal/rooms"
	"chatlounge/backend/internal/testutils"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router *gin.Engine
	auth   *identity.JWTAuthenticator
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return buildTestAPI(t, false)
}

// newGuardedAPI дозволяє два запити на хвилину з однієї адреси.
func newGuardedAPI(t *testing.T) *testAPI {
	t.Helper()
	return buildTestAPI(t, true)
}

func buildTestAPI(t *testing.T, guarded bool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testutils.NewTestStore(t)
	clock := testutils.NewClock()
	hub := chathub.NewManagerService(nil)
	chat := randomchat.NewService(store, testutils.FixedPicker{}, 10*time.Minute, clock.Now)
	rs := rooms.NewService(store, clock.Now)
	loc, err := localization.NewLocalizer()
	require.NoError(t, err)

	auth := identity.NewJWTAuthenticator("test-secret", "chatlounge-test")
	var guard *ratelimit.Guard
	if guarded {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		guard = ratelimit.NewGuard(
			ratelimit.NewLimiter(client, "test:", 2, time.Minute),
			ratelimit.NewBlocker(client, "test:"),
			chat, 5*time.Minute)
	}
	h := handler.NewHandler(realtime.NewBroadcaster(hub, chat, rs), auth, guard, loc, "en")

	r := gin.New()
	h.Register(r)
	return &testAPI{router: r, auth: auth}
}

func (a *testAPI) token(t *testing.T, id, name string) string {
	t.Helper()
	tok, err := a.auth.Issue(identity.Identity{ID: id, DisplayName: name})
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPing(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRandomChat_RequiresIdentity(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/random/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", decode(t, w)["code"])

	w = api.do(t, http.MethodGet, "/api/random/state", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRandomChat_MatchFlow(t *testing.T) {
	api := newTestAPI(t)
	alice, bob := api.token(t, "1", "alice"), api.token(t, "2", "bob")

	w := api.do(t, http.MethodPost, "/api/random/match", alice, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "NO_CANDIDATE", decode(t, w)["code"])

	w = api.do(t, http.MethodPost, "/api/random/match", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var st randomchat.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Session)
	assert.Equal(t, randomchat.PartnerAlias("1"), st.Session.PartnerAlias)
	assert.False(t, st.InQueue)

	w = api.do(t, http.MethodPost, "/api/random/messages", alice, map[string]any{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode(t, w)["from_self"])

	w = api.do(t, http.MethodGet, "/api/random/messages", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Messages []randomchat.MessageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hi bob", page.Messages[0].Content)
	assert.False(t, page.Messages[0].FromSelf)

	w = api.do(t, http.MethodDelete, "/api/random/queue", bob, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/random/messages", alice, map[string]any{"content": "still there?"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NO_SESSION", decode(t, w)["code"])
}

func TestRandomChat_LocalizedErrors(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, "1", "alice")

	w := api.do(t, http.MethodPost, "/api/random/messages?lang=ko", alice, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "EMPTY_CONTENT", body["code"])
	assert.Equal(t, "content", body["field"])
	assert.NotEmpty(t, body["detail"])
}

func TestRooms_Flow(t *testing.T) {
	api := newTestAPI(t)
	owner, guest := api.token(t, "1", "alice"), api.token(t, "2", "bob")

	w := api.do(t, http.MethodPost, "/api/rooms", owner, map[string]any{"name": "Gophers", "capacity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Room rooms.RoomView `json:"room"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	roomID := created.Room.ID

	w = api.do(t, http.MethodPost, "/api/rooms", owner, map[string]any{"name": "gophers"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ROOM_DUPLICATE_NAME", decode(t, w)["code"])

	msgPath := fmt.Sprintf("/api/rooms/%d/messages", roomID)
	w = api.do(t, http.MethodPost, msgPath, guest, map[string]any{"content": "let me in"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/rooms/join", guest, map[string]any{"name": "GOPHERS"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, msgPath, guest, map[string]any{"content": "hello", "is_anonymous": true})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodGet, msgPath, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Messages []rooms.MessageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "Anonymous", page.Messages[0].SenderName)

	w = api.do(t, http.MethodGet, "/api/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gophers")

	w = api.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/leave", roomID), guest, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPost, "/api/rooms/999/leave", guest, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	api := newTestAPI(t)
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/random-chat?token=nope"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, handler.CloseUnauthenticated, closeErr.Code)
}

func TestWebSocket_RoomAccess(t *testing.T) {
	api := newTestAPI(t)
	server := httptest.NewServer(api.router)
	defer server.Close()

	owner, stranger := api.token(t, "1", "alice"), api.token(t, "2", "bob")
	w := api.do(t, http.MethodPost, "/api/rooms", owner, map[string]any{"name": "Lobby"})
	require.Equal(t, http.StatusCreated, w.Code)

	cases := []struct {
		name  string
		path  string
		token string
		code  int
	}{
		{"missing room", "/ws/chatrooms/404", owner, handler.CloseNotFound},
		{"not a member", "/ws/chatrooms/1", stranger, handler.CloseForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, tc.path+"?token="+tc.token), nil)
			require.NoError(t, err)
			defer conn.Close()

			_, _, err = conn.ReadMessage()
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, tc.code, closeErr.Code)
		})
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/chatrooms/1?token="+owner), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first models.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.EventHistory, first.Event)

	require.NoError(t, conn.WriteJSON(models.Inbound{Action: models.ActionSendMessage, Content: "hello lobby"}))
	var echoed models.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&echoed))
	assert.Equal(t, models.EventMessage, echoed.Event)
}

func TestWebSocket_RandomChatSendsState(t *testing.T) {
	api := newTestAPI(t)
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/random-chat?token="+api.token(t, "7", "gus")), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first models.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.EventState, first.Event)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "dance"}))
	var reply models.Event
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, models.EventError, reply.Event)
	assert.Equal(t, "UNKNOWN_ACTION", reply.Code)
	assert.Contains(t, reply.Detail, "dance")
}

func TestRandomChat_ThrottlesAnonymousCallers(t *testing.T) {
	api := newGuardedAPI(t)

	for i := 0; i < 2; i++ {
		w := api.do(t, http.MethodPost, "/api/random/match", "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := api.do(t, http.MethodPost, "/api/random/match", "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])

	w = api.do(t, http.MethodPost, "/api/random/match", "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "BLOCKED", decode(t, w)["code"])

	// з невалідним токеном запит лишається анонімним і блокованим
	w = api.do(t, http.MethodPost, "/api/random/queue", "not-a-token", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = api.do(t, http.MethodGet, "/api/random/state", api.token(t, "1", "alice"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRandomChat_ThrottlesAuthenticatedCallers(t *testing.T) {
	api := newGuardedAPI(t)
	alice := api.token(t, "1", "alice")

	for i := 0; i < 2; i++ {
		w := api.do(t, http.MethodPost, "/api/random/queue", alice, nil)
		require.Less(t, w.Code, 300)
	}
	w := api.do(t, http.MethodPost, "/api/random/queue", alice, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])
}
