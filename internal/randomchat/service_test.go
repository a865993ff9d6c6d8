package randomchat_test

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/storage"
	"chatlounge/backend/internal/testutils"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *storage.Service
	clock *testutils.Clock
	svc   *randomchat.Service
}

func newFixture(t *testing.T, picker randomchat.Picker) *fixture {
	t.Helper()
	store := testutils.NewTestStore(t)
	clock := testutils.NewClock()
	return &fixture{
		store: store,
		clock: clock,
		svc:   randomchat.NewService(store, picker, 10*time.Minute, clock.Now),
	}
}

func (f *fixture) enter(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.svc.JoinQueue(context.Background(), id))
		f.clock.Advance(time.Second)
	}
}

func (f *fixture) state(t *testing.T, id string) *randomchat.State {
	t.Helper()
	st, err := f.svc.State(context.Background(), identity.IdentityOnly{User: identity.Identity{ID: id}}, 0)
	require.NoError(t, err)
	return st
}

func TestRequestMatch_ConcurrentPairCreatesOneSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, randomchat.NewPicker(1))
	f.enter(t, "a", "b")

	var wg sync.WaitGroup
	results := make([]*randomchat.MatchResult, 2)
	errs := make([]error, 2)
	for i, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i], errs[i] = f.svc.RequestMatch(ctx, id)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Session.ID, results[1].Session.ID)
	assert.True(t, results[0].Created != results[1].Created, "exactly one request creates the session")
	assert.ElementsMatch(t,
		[]string{"a", "b"},
		[]string{results[0].Session.ParticipantA, results[0].Session.ParticipantB})

	active, err := f.store.CountActiveSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	assert.False(t, f.state(t, "a").InQueue)
	assert.False(t, f.state(t, "b").InQueue)
}

func TestRequestMatch_LoneIdentityStaysQueued(t *testing.T) {
	f := newFixture(t, randomchat.NewPicker(1))
	f.enter(t, "a")

	_, err := f.svc.RequestMatch(context.Background(), "a")
	assert.True(t, apperr.Is(err, apperr.CodeNoCandidate))

	st := f.state(t, "a")
	assert.True(t, st.InQueue)
	require.NotNil(t, st.QueuePosition)
	assert.Equal(t, 1, *st.QueuePosition)
}

func TestRequestMatch_QueuesRequesterWhenAbsent(t *testing.T) {
	f := newFixture(t, randomchat.NewPicker(1))

	_, err := f.svc.RequestMatch(context.Background(), "a")
	assert.Equal(t, apperr.KindNoCandidate, apperr.KindOf(err))
	assert.True(t, f.state(t, "a").InQueue)
}

func TestRequestMatch_EndsPriorSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "a", "b")

	first, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)

	f.enter(t, "c", "a")
	second, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "c", second.PartnerID)

	var prior models.Session
	require.NoError(t, f.store.DB.First(&prior, "id = ?", first.Session.ID).Error)
	assert.False(t, prior.IsActive)
	assert.NotNil(t, prior.EndedAt)

	session, err := f.svc.ActiveSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, second.Session.ID, session.ID)

	session, err = f.svc.ActiveSession(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRequestMatch_WhileMatchedSwitchesPartner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "a", "b")

	first, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)
	require.True(t, first.Created)

	f.enter(t, "c")
	second, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.Equal(t, "c", second.PartnerID)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)

	var prior models.Session
	require.NoError(t, f.store.DB.First(&prior, "id = ?", first.Session.ID).Error)
	assert.False(t, prior.IsActive)

	assert.Nil(t, f.state(t, "b").Session)
	assert.False(t, f.state(t, "a").InQueue)
	assert.False(t, f.state(t, "c").InQueue)
}

func TestRequestMatch_WhileMatchedWithNobodyWaiting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "a", "b")

	first, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.RequestMatch(ctx, "b")
	assert.True(t, apperr.Is(err, apperr.CodeNoCandidate))

	// b чекає в черзі, а стара сесія лишається активною до нового підбору.
	st := f.state(t, "b")
	assert.True(t, st.InQueue)
	require.NotNil(t, st.Session)
	assert.Equal(t, first.Session.ID, st.Session.ID)
}

func TestRequestMatch_PartnerIsUniformlyChosen(t *testing.T) {
	seen := map[string]int{}
	picker := randomchat.NewPicker(42)

	for trial := 0; trial < 40; trial++ {
		f := newFixture(t, picker)
		f.enter(t, "u1", "u2", "u3")

		res, err := f.svc.RequestMatch(context.Background(), "u2")
		require.NoError(t, err)
		require.NotEqual(t, "u2", res.PartnerID)
		seen[res.PartnerID]++
	}

	assert.Positive(t, seen["u1"], "u1 must be reachable")
	assert.Positive(t, seen["u3"], "u3 must be reachable")
	assert.Equal(t, 40, seen["u1"]+seen["u3"])
}

func TestRequestMatch_PickerIndexSelectsCandidate(t *testing.T) {
	for index, want := range []string{"u1", "u3"} {
		f := newFixture(t, testutils.FixedPicker{Index: index})
		f.enter(t, "u1", "u2", "u3")

		res, err := f.svc.RequestMatch(context.Background(), "u2")
		require.NoError(t, err)
		assert.Equal(t, want, res.PartnerID)
	}
}

func TestHousekeeper_ExpiresOnlySilentSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "a", "b")
	silent, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)

	f.enter(t, "c", "d")
	chatty, err := f.svc.RequestMatch(ctx, "c")
	require.NoError(t, err)
	_, err = f.svc.PostMessage(ctx, "c", "hello")
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	n, err := f.svc.Keeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(24 * time.Hour)
	n, err = f.svc.Keeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := f.svc.ActiveSession(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = f.svc.ActiveSession(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, chatty.Session.ID, s.ID)
	assert.NotEqual(t, silent.Session.ID, s.ID)

	n, err = f.svc.Keeper.ExpireIdle(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})

	_, err := f.svc.PostMessage(ctx, "a", "hello")
	assert.True(t, apperr.Is(err, apperr.CodeNoSession))

	f.enter(t, "a", "b")
	_, err = f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)

	_, err = f.svc.PostMessage(ctx, "a", strings.Repeat("x", 501))
	assert.True(t, apperr.Is(err, apperr.CodeContentTooLong))
	_, err = f.svc.PostMessage(ctx, "a", "   ")
	assert.True(t, apperr.Is(err, apperr.CodeEmptyContent))
	_, err = f.svc.PostMessage(ctx, "a", "my number is 010-9876-5432")
	assert.True(t, apperr.Is(err, apperr.CodePhoneNumber))

	_, err = f.svc.PostMessage(ctx, "a", " hi there ")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.PostMessage(ctx, "b", "hey")
	require.NoError(t, err)

	msgs, err := f.svc.Messages(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.False(t, msgs[0].FromSelf)
	assert.True(t, msgs[1].FromSelf)
}

func TestState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "7", "8", "9")

	_, err := f.svc.RequestMatch(ctx, "7")
	require.NoError(t, err)

	st := f.state(t, "7")
	assert.False(t, st.InQueue)
	assert.Nil(t, st.QueuePosition)
	assert.Equal(t, int64(1), st.QueueSize)
	assert.Equal(t, int64(1), st.ActiveSessions)
	require.NotNil(t, st.Session)
	assert.Equal(t, randomchat.PartnerAlias("8"), st.Session.PartnerAlias)
	assert.NotNil(t, st.Messages)

	anon, err := f.svc.State(ctx, identity.RequestContext{RemoteAddr: "10.0.0.1"}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), anon.QueueSize)
	assert.Nil(t, anon.Session)
}

func TestLeaveQueue_EndsSessionToo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutils.FixedPicker{})
	f.enter(t, "a", "b")
	_, err := f.svc.RequestMatch(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, f.svc.LeaveQueue(ctx, "b"))
	assert.Nil(t, f.state(t, "a").Session)
	require.NoError(t, f.svc.LeaveQueue(ctx, "nobody"))
}

func TestClampWindow(t *testing.T) {
	assert.Equal(t, 40, randomchat.ClampWindow(0))
	assert.Equal(t, 10, randomchat.ClampWindow(10))
	assert.Equal(t, 80, randomchat.ClampWindow(500))
}

func TestPartnerAlias(t *testing.T) {
	alias := randomchat.PartnerAlias("tg:123456789")
	assert.Equal(t, alias, randomchat.PartnerAlias("tg:123456789"))
	assert.Regexp(t, `^Anonymous#[0-9]{4}$`, alias)
	assert.NotContains(t, alias, "tg:")
	assert.NotContains(t, alias, "123456789")
	assert.Regexp(t, `^Anonymous#[0-9]{4}$`, randomchat.PartnerAlias("7"))
}
