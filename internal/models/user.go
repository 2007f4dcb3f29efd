package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is a gateway-side record of one upstream credential set.
// It carries no credentials, only their fingerprint, so navigation context can
// survive a gateway restart.
type Session struct {
	ID          string    `gorm:"primaryKey" json:"id"`          // UUID
	Fingerprint string    `gorm:"uniqueIndex;not null" json:"-"` // sha256 of the upstream credentials
	Role        Role      `gorm:"type:text" json:"role"`         // role claim seen last, UI use only
	UserID      string    `gorm:"type:text;index" json:"userId"` // upstream user id from the token, if any
	LastSeenAt  time.Time `json:"lastSeenAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BeforeCreate: хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для сесії, якщо ID ще не встановлено.
func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return
}
