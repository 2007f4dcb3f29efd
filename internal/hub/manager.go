// Package hub pushes refreshed query results to live clients. A client
// subscribes to read endpoints of its session; whenever the cache refetches
// one of them after an invalidation the new result is sent to the client.
package hub

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/querycache"
	"collegemate/backend/internal/session"
	"context"

	"go.uber.org/zap"
)

const eventBuffer = 256

// Request is a subscribe or unsubscribe coming from a client.
type Request struct {
	Client Client
	models.StreamRequest
}

// cacheEvent is an observer callback of one session's cache, forwarded to the
// Run loop.
type cacheEvent struct {
	sessionID string
	snapshot  *querycache.Snapshot
	tags      []querycache.Tag
}

type Manager struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	RequestCh    chan Request

	registry *session.Registry
	subs     map[string]map[querycache.Key]*querycache.Subscription
	eventCh  chan cacheEvent
	done     chan struct{}
	logger   *zap.Logger
}

func NewManager(registry *session.Registry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		RequestCh:    make(chan Request),
		registry:     registry,
		subs:         make(map[string]map[querycache.Key]*querycache.Subscription),
		eventCh:      make(chan cacheEvent, eventBuffer),
		done:         make(chan struct{}),
		logger:       logger,
	}
	registry.OnSession(m.attach)
	return m
}

// attach forwards the session's cache observers into the Run loop.
func (m *Manager) attach(s *session.Session) {
	id := s.ID
	s.Cache.OnUpdate(func(snap querycache.Snapshot) {
		m.forward(cacheEvent{sessionID: id, snapshot: &snap})
	})
	s.Cache.OnInvalidate(func(tags []querycache.Tag) {
		m.forward(cacheEvent{sessionID: id, tags: tags})
	})
}

func (m *Manager) forward(ev cacheEvent) {
	select {
	case m.eventCh <- ev:
	case <-m.done:
	}
}

// Register hands a client to the hub. It is a no-op once the hub stopped.
func (m *Manager) Register(c Client) {
	select {
	case m.RegisterCh <- c:
	case <-m.done:
	}
}

func (m *Manager) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

func (m *Manager) Submit(r Request) {
	select {
	case m.RequestCh <- r:
	case <-m.done:
	}
}

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Run is the hub loop. It returns when ctx is cancelled, after closing every
// client.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			for _, c := range m.Clients {
				m.drop(c)
			}
			return

		case c := <-m.RegisterCh:
			if _, ok := m.Clients[c.GetID()]; ok {
				continue
			}
			m.Clients[c.GetID()] = c
			c.GetSession().Acquire()
			c.Run()
			m.logger.Debug("client registered", zap.String("client_id", c.GetID()))

		case c := <-m.UnregisterCh:
			if _, ok := m.Clients[c.GetID()]; ok {
				m.drop(c)
				m.logger.Debug("client unregistered", zap.String("client_id", c.GetID()))
			}

		case r := <-m.RequestCh:
			m.handleRequest(r)

		case ev := <-m.eventCh:
			m.handleCacheEvent(ev)
		}
	}
}

func (m *Manager) drop(c Client) {
	for _, sub := range m.subs[c.GetID()] {
		sub.Unsubscribe()
	}
	delete(m.subs, c.GetID())
	delete(m.Clients, c.GetID())
	c.GetSession().Release()
	c.Close()
}

func (m *Manager) send(c Client, ev models.StreamEvent) {
	select {
	case c.GetSendChannel() <- ev:
	default:
		m.logger.Warn("client too slow, dropping", zap.String("client_id", c.GetID()))
		m.drop(c)
	}
}

func (m *Manager) handleRequest(r Request) {
	c := r.Client
	if _, ok := m.Clients[c.GetID()]; !ok {
		return
	}
	binding, err := c.GetSession().Queries().Bind(r.Endpoint, r.Arg)
	if err != nil {
		m.send(c, models.StreamEvent{Type: "error", Endpoint: r.Endpoint, Error: err.Error()})
		return
	}
	key, err := querycache.KeyOf(binding.Def.Endpoint, binding.Arg)
	if err != nil {
		m.send(c, models.StreamEvent{Type: "error", Endpoint: r.Endpoint, Error: err.Error()})
		return
	}

	subs := m.subs[c.GetID()]
	switch r.Action {
	case "subscribe":
		if _, ok := subs[key]; ok {
			break
		}
		sub, err := c.GetSession().Cache.Subscribe(binding.Def, binding.Arg, binding.Fetch)
		if err != nil {
			m.send(c, models.StreamEvent{Type: "error", Endpoint: r.Endpoint, Error: err.Error()})
			return
		}
		if subs == nil {
			subs = make(map[querycache.Key]*querycache.Subscription)
			m.subs[c.GetID()] = subs
		}
		subs[key] = sub
		// A result that is already cached will not produce an update.
		if snap, ok := sub.Snapshot(); ok && snap.Status == querycache.StatusSuccess {
			m.send(c, queryEvent(snap))
		}
	case "unsubscribe":
		if sub, ok := subs[key]; ok {
			sub.Unsubscribe()
			delete(subs, key)
		}
	default:
		m.send(c, models.StreamEvent{Type: "error", Error: "unknown action " + r.Action})
	}
}

func (m *Manager) handleCacheEvent(ev cacheEvent) {
	for _, c := range m.Clients {
		if c.GetSession().ID != ev.sessionID {
			continue
		}
		if ev.snapshot == nil {
			m.send(c, models.StreamEvent{Type: "invalidated", Tags: querycache.TagStrings(ev.tags)})
			continue
		}
		if _, ok := m.subs[c.GetID()][ev.snapshot.Key]; ok {
			m.send(c, queryEvent(*ev.snapshot))
		}
	}
}

func queryEvent(s querycache.Snapshot) models.StreamEvent {
	ev := models.StreamEvent{
		Type:     "query",
		Endpoint: s.Key.Endpoint,
		Arg:      s.Key.Arg,
		Status:   s.Status.String(),
		Data:     s.Data,
	}
	if s.Err != nil {
		ev.Error = apiclient.MessageOf(s.Err, s.Err.Error())
	}
	return ev
}
