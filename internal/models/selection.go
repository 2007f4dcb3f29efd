package models

import "time"

// Domain names a navigation-context slot.
type Domain string

const (
	DomainComplaints Domain = "complaints"
	DomainLostFound  Domain = "lostfound"
	DomainPlacements Domain = "placements"
)

func (d Domain) Valid() bool {
	switch d {
	case DomainComplaints, DomainLostFound, DomainPlacements:
		return true
	}
	return false
}

// Selection is the "currently selected" entity of one domain for one session.
// Only the id is kept; the entity itself is refetched by id.
type Selection struct {
	SessionID string    `gorm:"primaryKey;type:text" json:"sessionId"`
	Domain    Domain    `gorm:"primaryKey;type:text" json:"domain"`
	EntityID  string    `gorm:"type:text;not null" json:"entityId"`
	UpdatedAt time.Time `json:"updatedAt"`
}
