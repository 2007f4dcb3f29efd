package hub_test

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/hub"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/placement"
	"collegemate/backend/internal/querycache"
	"collegemate/backend/internal/session"
	"collegemate/backend/internal/upstreamtest"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"))
}

type fixture struct {
	srv     *upstreamtest.Server
	reg     *session.Registry
	hub     *hub.Manager
	session *session.Session
	fetches atomic.Int32
	stop    context.CancelFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{srv: upstreamtest.New(t)}
	f.srv.Reply(http.MethodGet, "/placement/student/all", func(*http.Request) (int, any) {
		n := f.fetches.Add(1)
		list := make([]models.Placement, n)
		for i := range list {
			list[i] = models.Placement{ID: "p" + string(rune('0'+i)), Status: models.PlacementOpen}
		}
		return http.StatusOK, upstreamtest.Envelope(list)
	})

	store := new(MockStore)
	store.On("GetOrCreateSession", mock.Anything, mock.Anything, mock.Anything).Return("s-", nil)
	f.reg = session.NewRegistry(f.srv.BaseURL(), store)
	f.hub = hub.NewManager(f.reg, nil)

	var err error
	f.session, err = f.reg.Get(apiclient.Credentials{Bearer: "student"}, models.RoleStudent, "u1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	f.stop = cancel
	go f.hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-f.hub.Done()
		f.session.Cache.Wait()
	})
	return f
}

func subscribe(f *fixture, c hub.Client, action string) {
	f.hub.Submit(hub.Request{Client: c, StreamRequest: models.StreamRequest{Action: action, Endpoint: placement.EndpointStudentAll}})
}

func successWith(n int) func(models.StreamEvent) bool {
	return func(ev models.StreamEvent) bool {
		if ev.Type != "query" || ev.Status != "success" {
			return false
		}
		list, ok := ev.Data.([]models.Placement)
		return ok && len(list) == n
	}
}

func TestHub_PushesRefetchedResultsAfterInvalidation(t *testing.T) {
	f := newFixture(t)
	c := newMockClient("c1", f.session)
	f.hub.Register(c)
	subscribe(f, c, "subscribe")

	ev, ok := c.next(successWith(1))
	require.True(t, ok, "initial result")
	assert.Equal(t, placement.EndpointStudentAll, ev.Endpoint)

	f.reg.Invalidate(querycache.DomainTag(placement.TagPlacements))

	ev, ok = c.next(func(ev models.StreamEvent) bool { return ev.Type == "invalidated" })
	require.True(t, ok)
	assert.Equal(t, []string{"Placements"}, ev.Tags)

	_, ok = c.next(successWith(2))
	assert.True(t, ok, "refetched result pushed")
}

func TestHub_SecondClientGetsCachedResultImmediately(t *testing.T) {
	f := newFixture(t)
	a := newMockClient("a", f.session)
	b := newMockClient("b", f.session)
	f.hub.Register(a)
	f.hub.Register(b)

	subscribe(f, a, "subscribe")
	_, ok := a.next(successWith(1))
	require.True(t, ok)

	subscribe(f, b, "subscribe")
	_, ok = b.next(successWith(1))
	require.True(t, ok)
	assert.Equal(t, int32(1), f.fetches.Load(), "one upstream fetch shared by both")
}

func TestHub_UnsubscribeStopsUpdates(t *testing.T) {
	f := newFixture(t)
	c := newMockClient("c1", f.session)
	f.hub.Register(c)
	subscribe(f, c, "subscribe")
	_, ok := c.next(successWith(1))
	require.True(t, ok)

	subscribe(f, c, "unsubscribe")
	// Round-trip through the loop so the unsubscribe is applied.
	f.hub.Submit(hub.Request{Client: c, StreamRequest: models.StreamRequest{Action: "noop"}})
	_, ok = c.next(func(ev models.StreamEvent) bool { return ev.Type == "error" })
	require.True(t, ok)

	f.reg.Invalidate(querycache.DomainTag(placement.TagPlacements))
	f.session.Cache.Wait()
	assert.Equal(t, int32(1), f.fetches.Load(), "unsubscribed result is dropped, not refetched")
}

func TestHub_BadRequestsReportErrors(t *testing.T) {
	f := newFixture(t)
	c := newMockClient("c1", f.session)
	f.hub.Register(c)

	f.hub.Submit(hub.Request{Client: c, StreamRequest: models.StreamRequest{Action: "subscribe", Endpoint: "getEverything"}})
	ev, ok := c.next(func(ev models.StreamEvent) bool { return ev.Type == "error" })
	require.True(t, ok)
	assert.Contains(t, ev.Error, "unknown query endpoint")

	f.hub.Submit(hub.Request{Client: c, StreamRequest: models.StreamRequest{
		Action: "subscribe", Endpoint: placement.EndpointDetails, Arg: json.RawMessage(`{}`),
	}})
	ev, ok = c.next(func(ev models.StreamEvent) bool { return ev.Type == "error" })
	require.True(t, ok)
	assert.Contains(t, ev.Error, "bad argument")
}

func TestHub_StopClosesClients(t *testing.T) {
	f := newFixture(t)
	c := newMockClient("c1", f.session)
	f.hub.Register(c)
	subscribe(f, c, "subscribe")
	_, ok := c.next(successWith(1))
	require.True(t, ok)

	f.stop()
	<-f.hub.Done()
	assert.True(t, c.isClosed())

	// Calls after stop return instead of blocking.
	f.hub.Register(newMockClient("late", f.session))
	f.hub.Unregister(c)
}

func TestHub_UnregisterReleasesSubscriptions(t *testing.T) {
	f := newFixture(t)
	c := newMockClient("c1", f.session)
	f.hub.Register(c)
	subscribe(f, c, "subscribe")
	_, ok := c.next(successWith(1))
	require.True(t, ok)

	f.hub.Unregister(c)
	require.Eventually(t, c.isClosed, time.Second, 10*time.Millisecond)

	snaps := f.session.Cache.Entries()
	require.Len(t, snaps, 1)
	assert.Equal(t, 0, snaps[0].Subscribers)
}
