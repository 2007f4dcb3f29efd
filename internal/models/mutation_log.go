package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// MutationLog records one write forwarded upstream and the tags it invalidated.
type MutationLog struct {
	gorm.Model

	SessionID string `gorm:"type:text;index"`
	// Endpoint is the operation name, e.g. "updateComplaintStatus".
	Endpoint string `gorm:"type:text;not null;index"`
	// Status is the upstream HTTP status; 0 means the request never got a response.
	Status int
	// Tags holds the invalidated tags in "Type" or "Type:id" form.
	Tags  pq.StringArray `gorm:"type:text[]"`
	Error string         `gorm:"type:text"`
}

// TelegramWatch is a chat that asked to be told when a domain changes.
type TelegramWatch struct {
	ChatID   int64          `gorm:"primaryKey;autoIncrement:false"`
	Language string         `gorm:"type:text"`
	Tags     pq.StringArray `gorm:"type:text[]"`
}
