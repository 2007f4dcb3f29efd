package session_test

import (
	"collegemate/backend/internal/models"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of session.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error) {
	args := m.Called(fingerprint, role, userID)
	if fn, ok := args.Get(0).(func(string, models.Role, string) *models.Session); ok {
		return fn(fingerprint, role, userID), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockStore) TouchSession(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

func (m *MockStore) RecordMutation(entry *models.MutationLog) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockStore) PublishInvalidation(ev models.InvalidationEvent) error {
	args := m.Called(ev)
	return args.Error(0)
}
