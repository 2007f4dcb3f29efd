package hub_test

import (
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	id          string
	sess        *session.Session
	RecvChannel chan models.StreamEvent

	mu     sync.Mutex
	closed bool
	runs   int
}

func newMockClient(id string, s *session.Session) *MockClient {
	return &MockClient{id: id, sess: s, RecvChannel: make(chan models.StreamEvent, 32)}
}

func (c *MockClient) GetID() string                             { return c.id }
func (c *MockClient) GetSession() *session.Session              { return c.sess }
func (c *MockClient) GetSendChannel() chan<- models.StreamEvent { return c.RecvChannel }

func (c *MockClient) Run() {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// next waits for the first event accepted by match, skipping the rest.
func (c *MockClient) next(match func(models.StreamEvent) bool) (models.StreamEvent, bool) {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.RecvChannel:
			if match(ev) {
				return ev, true
			}
		case <-timeout:
			return models.StreamEvent{}, false
		}
	}
}

// MockStore is a testify mock of session.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error) {
	args := m.Called(fingerprint, role, userID)
	return &models.Session{ID: args.String(0) + fingerprint[:6], Fingerprint: fingerprint, Role: role}, args.Error(1)
}

func (m *MockStore) TouchSession(id string, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *MockStore) RecordMutation(entry *models.MutationLog) error {
	return m.Called(entry).Error(0)
}

func (m *MockStore) PublishInvalidation(ev models.InvalidationEvent) error {
	return m.Called(ev).Error(0)
}
