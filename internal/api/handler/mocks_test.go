package handler_test

import (
	"collegemate/backend/internal/models"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage covers both session.Store and handler.Selections.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error) {
	args := m.Called(fingerprint, role, userID)
	return &models.Session{ID: "s-" + fingerprint[:8], Fingerprint: fingerprint, Role: role, UserID: userID}, args.Error(0)
}

func (m *MockStorage) TouchSession(id string, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *MockStorage) RecordMutation(entry *models.MutationLog) error {
	return m.Called(entry).Error(0)
}

func (m *MockStorage) PublishInvalidation(ev models.InvalidationEvent) error {
	return m.Called(ev).Error(0)
}

func (m *MockStorage) GetSelection(sessionID string, domain models.Domain) (*models.Selection, error) {
	args := m.Called(sessionID, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Selection), args.Error(1)
}

func (m *MockStorage) SaveSelection(sel *models.Selection) error {
	return m.Called(sel).Error(0)
}

func (m *MockStorage) ClearSelection(sessionID string, domain models.Domain) error {
	return m.Called(sessionID, domain).Error(0)
}
