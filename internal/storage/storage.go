package storage

import (
	"collegemate/backend/internal/config"
	"collegemate/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Storage interface {
	GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error)
	TouchSession(id string, at time.Time) error
	GetSession(id string) (*models.Session, error)

	GetSelection(sessionID string, domain models.Domain) (*models.Selection, error)
	SaveSelection(sel *models.Selection) error
	ClearSelection(sessionID string, domain models.Domain) error

	RecordMutation(entry *models.MutationLog) error
	ListMutations(limit int) ([]models.MutationLog, error)

	SaveWatch(w *models.TelegramWatch) error
	DeleteWatch(chatID int64) error
	ListWatches() ([]models.TelegramWatch, error)

	PublishInvalidation(ev models.InvalidationEvent) error
	SubscribeInvalidations() *redis.PubSub
}

type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Ctx    context.Context
	Logger *zap.Logger
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:     db,
		Redis:  rdb,
		Ctx:    context.Background(),
		Logger: logger,
	}
}

// Migrate створює таблиці для всіх моделей шлюзу.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.Session{},
		&models.Selection{},
		&models.MutationLog{},
		&models.TelegramWatch{},
	)
}

// GetOrCreateSession знаходить сесію за відбитком облікових даних або
// створює нову. Роль і користувач оновлюються при кожному вході.
func (s *Service) GetOrCreateSession(fingerprint string, role models.Role, userID string) (*models.Session, error) {
	var session models.Session
	// Attrs застосовуються лише при створенні нового запису.
	attrs := models.Session{Role: role, UserID: userID, LastSeenAt: time.Now()}

	result := s.DB.Where(models.Session{Fingerprint: fingerprint}).Attrs(attrs).FirstOrCreate(&session)
	if result.Error != nil {
		s.Logger.Error("failed to load session", zap.Error(result.Error))
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		s.Logger.Info("new session", zap.String("session_id", session.ID), zap.String("role", string(role)))
		return &session, nil
	}

	if session.Role != role || session.UserID != userID {
		session.Role, session.UserID = role, userID
		if err := s.DB.Model(&session).Updates(map[string]interface{}{"role": role, "user_id": userID}).Error; err != nil {
			return nil, err
		}
	}
	return &session, nil
}

func (s *Service) TouchSession(id string, at time.Time) error {
	return s.DB.Model(&models.Session{}).Where("id = ?", id).Update("last_seen_at", at).Error
}

func (s *Service) GetSession(id string) (*models.Session, error) {
	var session models.Session
	err := s.DB.Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSelection повертає вибрану сутність домену або nil, якщо нічого не вибрано.
func (s *Service) GetSelection(sessionID string, domain models.Domain) (*models.Selection, error) {
	var sel models.Selection
	err := s.DB.Where("session_id = ? AND domain = ?", sessionID, domain).First(&sel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func (s *Service) SaveSelection(sel *models.Selection) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "domain"}},
		DoUpdates: clause.AssignmentColumns([]string{"entity_id", "updated_at"}),
	}).Create(sel).Error
}

func (s *Service) ClearSelection(sessionID string, domain models.Domain) error {
	return s.DB.Where("session_id = ? AND domain = ?", sessionID, domain).Delete(&models.Selection{}).Error
}

func (s *Service) RecordMutation(entry *models.MutationLog) error {
	if err := s.DB.Create(entry).Error; err != nil {
		s.Logger.Error("failed to record mutation", zap.String("endpoint", entry.Endpoint), zap.Error(err))
		return err
	}
	return nil
}

// ListMutations повертає останні мутації, новіші першими.
func (s *Service) ListMutations(limit int) ([]models.MutationLog, error) {
	if limit <= 0 {
		limit = config.DefaultMutationListLimit
	}
	if limit > config.MaxMutationListLimit {
		limit = config.MaxMutationListLimit
	}
	var out []models.MutationLog
	if err := s.DB.Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) SaveWatch(w *models.TelegramWatch) error {
	return s.DB.Save(w).Error
}

func (s *Service) DeleteWatch(chatID int64) error {
	return s.DB.Delete(&models.TelegramWatch{}, "chat_id = ?", chatID).Error
}

func (s *Service) ListWatches() ([]models.TelegramWatch, error) {
	var out []models.TelegramWatch
	if err := s.DB.Order("chat_id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// PublishInvalidation публікує інвалідацію в Redis Pub/Sub для інших інстансів.
func (s *Service) PublishInvalidation(ev models.InvalidationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, config.InvalidationChannel, payload).Err()
}

func (s *Service) SubscribeInvalidations() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, config.InvalidationChannel)
}
