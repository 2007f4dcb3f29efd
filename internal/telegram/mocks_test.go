package telegram

import (
	"collegemate/backend/internal/models"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// fakeSender collects outgoing messages.
type fakeSender struct {
	sent      chan tgbotapi.MessageConfig
	callbacks chan tgbotapi.CallbackConfig
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		sent:      make(chan tgbotapi.MessageConfig, 32),
		callbacks: make(chan tgbotapi.CallbackConfig, 8),
	}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent <- m
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks <- cb
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) next(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message sent")
		return tgbotapi.MessageConfig{}
	}
}

// waitFor skips messages until one has exactly text.
func (f *fakeSender) waitFor(t *testing.T, text string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	var seen []string
	for {
		select {
		case m := <-f.sent:
			if m.Text == text {
				return
			}
			seen = append(seen, m.Text)
		case <-timeout:
			t.Fatalf("no message %q, got %q", text, seen)
		}
	}
}

// MockWatchStorage is a testify mock of WatchStorage.
type MockWatchStorage struct {
	mock.Mock
}

func (m *MockWatchStorage) SaveWatch(w *models.TelegramWatch) error {
	return m.Called(w).Error(0)
}

func (m *MockWatchStorage) DeleteWatch(chatID int64) error {
	return m.Called(chatID).Error(0)
}

func (m *MockWatchStorage) ListWatches() ([]models.TelegramWatch, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TelegramWatch), args.Error(1)
}

// MockSessionStore is a testify mock of session.Store.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error) {
	args := m.Called(fingerprint, role, userID)
	return &models.Session{ID: "bot-session", Fingerprint: fingerprint, Role: role}, args.Error(0)
}

func (m *MockSessionStore) TouchSession(id string, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *MockSessionStore) RecordMutation(entry *models.MutationLog) error {
	return m.Called(entry).Error(0)
}

func (m *MockSessionStore) PublishInvalidation(ev models.InvalidationEvent) error {
	return m.Called(ev).Error(0)
}
