// Package session keeps one API state per upstream credential set: its own
// client, query cache and domain slices. Writes in one session invalidate the
// same tags in every other session, locally and across gateway instances,
// because they all read the same upstream data.
package session

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/complaint"
	"collegemate/backend/internal/endpoint"
	"collegemate/backend/internal/lostfound"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/placement"
	"collegemate/backend/internal/querycache"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the registry needs.
type Store interface {
	GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error)
	TouchSession(id string, at time.Time) error
	RecordMutation(entry *models.MutationLog) error
	PublishInvalidation(ev models.InvalidationEvent) error
}

var ErrNoCredentials = errors.New("session: no upstream credentials")

// Session is the API state of one credential set.
type Session struct {
	ID     string
	Role   models.Role
	UserID string

	Cache      *querycache.Cache
	Complaints *complaint.API
	LostFound  *lostfound.API
	Placements *placement.API

	fingerprint string
	queries     endpoint.Index

	mu       sync.Mutex
	lastSeen time.Time
	refs     int
}

// Queries indexes every read endpoint of the session by name.
func (s *Session) Queries() endpoint.Index { return s.queries }

// Acquire pins the session against reaping while a long-lived client (a
// websocket or a bot watch) uses it.
func (s *Session) Acquire() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

func (s *Session) Release() {
	s.mu.Lock()
	if s.refs > 0 {
		s.refs--
	}
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs == 0 && now.Sub(s.lastSeen) > ttl
}

// Fingerprint identifies a credential set without keeping it.
func Fingerprint(creds apiclient.Credentials) string {
	h := sha256.New()
	h.Write([]byte("bearer\x00" + creds.Bearer + "\x00"))

	cookies := make([]string, 0, len(creds.Cookies))
	for _, c := range creds.Cookies {
		cookies = append(cookies, c.Name+"="+c.Value)
	}
	sort.Strings(cookies)
	for _, c := range cookies {
		h.Write([]byte(c + "\x00"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type Option func(*Registry)

func WithHTTPClient(hc *http.Client) Option {
	return func(r *Registry) { r.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithKeepUnusedFor(d time.Duration) Option {
	return func(r *Registry) { r.keepUnusedFor = d }
}

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) { r.idleTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry owns every live session of this gateway instance.
type Registry struct {
	baseURL    string
	store      Store
	instanceID string

	httpClient    *http.Client
	logger        *zap.Logger
	keepUnusedFor time.Duration
	idleTTL       time.Duration
	now           func() time.Time

	mu        sync.RWMutex
	byPrint   map[string]*Session
	byID      map[string]*Session
	onSession []func(*Session)
}

func NewRegistry(baseURL string, store Store, opts ...Option) *Registry {
	r := &Registry{
		baseURL:       baseURL,
		store:         store,
		instanceID:    uuid.NewString(),
		httpClient:    http.DefaultClient,
		logger:        zap.NewNop(),
		keepUnusedFor: querycache.DefaultKeepUnusedFor,
		idleTTL:       30 * time.Minute,
		now:           time.Now,
		byPrint:       make(map[string]*Session),
		byID:          make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InstanceID tags the invalidations this instance publishes.
func (r *Registry) InstanceID() string { return r.instanceID }

// OnSession registers a hook run once for every new session, before the
// session is handed out.
func (r *Registry) OnSession(fn func(*Session)) {
	r.mu.Lock()
	r.onSession = append(r.onSession, fn)
	r.mu.Unlock()
}

// Get returns the session for creds, creating it on first use. Role and
// userID are refreshed from the caller's latest token.
func (r *Registry) Get(creds apiclient.Credentials, role models.Role, userID string) (*Session, error) {
	if creds.Empty() {
		return nil, ErrNoCredentials
	}
	fp := Fingerprint(creds)
	now := r.now()

	r.mu.RLock()
	s, ok := r.byPrint[fp]
	r.mu.RUnlock()
	if ok {
		s.mu.Lock()
		s.lastSeen = now
		s.Role, s.UserID = role, userID
		s.mu.Unlock()
		return s, nil
	}

	rec, err := r.store.GetOrCreateSession(fp, role, userID)
	if err != nil {
		return nil, err
	}
	client, err := apiclient.New(r.baseURL,
		apiclient.WithCredentials(creds),
		apiclient.WithHTTPClient(r.httpClient),
		apiclient.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byPrint[fp]; ok {
		return s, nil
	}

	cache := querycache.New(
		querycache.WithKeepUnusedFor(r.keepUnusedFor),
		querycache.WithClock(r.now),
		querycache.WithLogger(r.logger.With(zap.String("session_id", rec.ID))))
	s = &Session{
		ID:          rec.ID,
		Role:        role,
		UserID:      userID,
		Cache:       cache,
		Complaints:  complaint.New(client, cache),
		LostFound:   lostfound.New(client, cache),
		Placements:  placement.New(client, cache),
		fingerprint: fp,
		lastSeen:    now,
	}
	s.queries = endpoint.Merge(s.Complaints.Queries(), s.LostFound.Queries(), s.Placements.Queries())
	cache.OnMutation(func(res querycache.MutationResult) { r.afterMutation(s, res) })

	for _, fn := range r.onSession {
		fn(s)
	}
	r.byPrint[fp] = s
	r.byID[s.ID] = s
	r.logger.Info("session opened", zap.String("session_id", s.ID), zap.String("role", string(role)))
	return s, nil
}

// Lookup returns a live session by id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Sessions returns the live sessions in no particular order.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

func (r *Registry) afterMutation(origin *Session, res querycache.MutationResult) {
	tags := querycache.TagStrings(res.Tags)
	entry := &models.MutationLog{
		SessionID: origin.ID,
		Endpoint:  res.Endpoint,
		Status:    http.StatusOK,
	}

	if res.Err != nil {
		entry.Status = apiclient.StatusOf(res.Err)
		entry.Error = res.Err.Error()
	} else {
		entry.Tags = tags
		for _, s := range r.Sessions() {
			if s != origin {
				s.Cache.Invalidate(res.Tags...)
			}
		}
		if err := r.store.PublishInvalidation(models.InvalidationEvent{Origin: r.instanceID, Tags: tags}); err != nil {
			r.logger.Warn("publish invalidation failed", zap.Strings("tags", tags), zap.Error(err))
		}
	}

	if err := r.store.RecordMutation(entry); err != nil {
		r.logger.Warn("record mutation failed", zap.String("endpoint", res.Endpoint), zap.Error(err))
	}
}

// ApplyRemote applies an invalidation published by another instance. Events
// this instance published itself are ignored.
func (r *Registry) ApplyRemote(ev models.InvalidationEvent) {
	if ev.Origin == r.instanceID {
		return
	}
	tags := querycache.ParseTags(ev.Tags)
	if len(tags) == 0 {
		r.logger.Warn("empty remote invalidation", zap.String("origin", ev.Origin))
		return
	}
	r.Invalidate(tags...)
}

// Invalidate invalidates tags in every live session.
func (r *Registry) Invalidate(tags ...querycache.Tag) {
	for _, s := range r.Sessions() {
		s.Cache.Invalidate(tags...)
	}
}

// Reap closes sessions idle longer than the idle TTL and sweeps unused
// results from the rest. It returns the number of sessions closed.
func (r *Registry) Reap() int {
	now := r.now()
	var idle []*Session

	r.mu.Lock()
	for fp, s := range r.byPrint {
		if s.idle(now, r.idleTTL) {
			delete(r.byPrint, fp)
			delete(r.byID, s.ID)
			idle = append(idle, s)
		}
	}
	live := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		live = append(live, s)
	}
	r.mu.Unlock()

	for _, s := range live {
		s.Cache.Sweep()
	}
	for _, s := range idle {
		s.mu.Lock()
		lastSeen := s.lastSeen
		s.mu.Unlock()
		if err := r.store.TouchSession(s.ID, lastSeen); err != nil {
			r.logger.Warn("touch session failed", zap.String("session_id", s.ID), zap.Error(err))
		}
		r.logger.Info("session reaped", zap.String("session_id", s.ID))
	}
	return len(idle)
}
