package chathub_test

import (
	"chatlounge/backend/internal/chathub"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, group, text string) chathub.Envelope {
	t.Helper()
	env, err := chathub.NewEnvelope(group, chathub.KindRoomMessage, map[string]string{"content": text})
	require.NoError(t, err)
	return env
}

func TestManager_JoinLeaveBroadcast(t *testing.T) {
	ctx := context.Background()
	hub := chathub.NewManagerService(nil)
	a := newMockClient("conn-a", "user_A", 4)
	b := newMockClient("conn-b", "user_B", 4)

	group := chathub.RoomGroup(7)
	hub.Join(group, a)
	hub.Join(group, a)
	hub.Join(group, b)
	assert.Equal(t, 2, hub.Members(group))

	hub.Broadcast(ctx, envelope(t, group, "hello"))
	assert.Len(t, a.RecvChannel, 1)
	assert.Len(t, b.RecvChannel, 1)

	hub.Leave(group, b)
	hub.Broadcast(ctx, envelope(t, group, "again"))
	assert.Len(t, a.RecvChannel, 2)
	assert.Len(t, b.RecvChannel, 1)

	hub.Broadcast(ctx, envelope(t, "nobody_here", "lost"))
	assert.Len(t, a.RecvChannel, 2)
}

func TestManager_LeaveAll(t *testing.T) {
	hub := chathub.NewManagerService(nil)
	a := newMockClient("conn-a", "user_A", 1)

	hub.Join(chathub.UserGroup("user_A"), a)
	hub.Join(chathub.SessionGroup("s1"), a)
	assert.ElementsMatch(t,
		[]string{"random_chat_user_user_A", "random_chat_session_s1"},
		hub.Groups(a))

	hub.LeaveAll(a)
	assert.Empty(t, hub.Groups(a))
	assert.Zero(t, hub.Members(chathub.SessionGroup("s1")))
}

func TestManager_DropsSlowClient(t *testing.T) {
	ctx := context.Background()
	hub := chathub.NewManagerService(nil)
	slow := newMockClient("conn-slow", "user_S", 1)
	fast := newMockClient("conn-fast", "user_F", 8)

	group := chathub.RoomGroup(1)
	hub.Join(group, slow)
	hub.Join(group, fast)

	hub.Broadcast(ctx, envelope(t, group, "one"))
	hub.Broadcast(ctx, envelope(t, group, "two"))

	assert.True(t, slow.IsClosed())
	assert.False(t, fast.IsClosed())
	assert.Len(t, fast.RecvChannel, 2)
	assert.Equal(t, 1, hub.Members(group))
}

func TestManager_SequenceSerializesGroup(t *testing.T) {
	hub := chathub.NewManagerService(nil)
	group := chathub.RoomGroup(3)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = hub.Sequence(group, func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestManager_RelayFansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newHub := func() *chathub.ManagerService {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		hub := chathub.NewManagerService(chathub.NewRelay(rdb, "test:broadcast"))
		go func() { _ = hub.Run(ctx) }()
		select {
		case <-hub.Ready():
		case <-time.After(2 * time.Second):
			t.Fatal("relay did not subscribe")
		}
		return hub
	}

	first, second := newHub(), newHub()
	a := newMockClient("conn-a", "user_A", 4)
	b := newMockClient("conn-b", "user_B", 4)
	group := chathub.SessionGroup("s1")
	first.Join(group, a)
	second.Join(group, b)

	first.Broadcast(ctx, envelope(t, group, "across"))

	for _, c := range []*MockClient{a, b} {
		select {
		case env := <-c.RecvChannel:
			assert.Equal(t, group, env.Group)
			assert.JSONEq(t, `{"content":"across"}`, string(env.Data))
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not receive the relayed envelope", c.GetID())
		}
	}
}
