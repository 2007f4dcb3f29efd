package models

// ItemKind separates found-item listings from lost-item requests; both share
// one shape on the wire.
type ItemKind string

const (
	ItemFound ItemKind = "found"
	ItemLost  ItemKind = "lost"
)

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemClaimed   ItemStatus = "claimed"
)

var ItemTransitions = Transitions[ItemStatus]{
	ItemAvailable: {ItemClaimed},
}

// LostFoundItem is either a found item or a lost-item request.
type LostFoundItem struct {
	ID          string     `json:"_id"`
	Kind        ItemKind   `json:"kind,omitempty"`
	Title       string     `json:"title"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description"`
	Landmark    string     `json:"landmark,omitempty"`
	Category    string     `json:"category,omitempty"`
	Image       string     `json:"image,omitempty"`
	Status      ItemStatus `json:"status"`
	PostedBy    *UserRef   `json:"postedBy,omitempty"`
	CreatedAt   Timestamp  `json:"createdAt"`
	UpdatedAt   Timestamp  `json:"updatedAt"`
}

// Claimable reports whether a claim against the item may still be approved.
// The backend enforces this; the gateway only uses it to hide controls.
// An item without a status is taken as available.
func (i *LostFoundItem) Claimable() bool {
	if i == nil {
		return false
	}
	status := i.Status
	if status == "" {
		status = ItemAvailable
	}
	return ItemTransitions.Allowed(status, ItemClaimed)
}

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

var ClaimTransitions = Transitions[ClaimStatus]{
	ClaimPending: {ClaimApproved, ClaimRejected},
}

func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimPending, ClaimApproved, ClaimRejected:
		return true
	}
	return false
}

// ClaimRequest is a user's claim on a found item.
type ClaimRequest struct {
	ID          string      `json:"_id"`
	ItemID      string      `json:"itemId"`
	UserID      *UserRef    `json:"userId,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Status      ClaimStatus `json:"status"`
	CreatedAt   Timestamp   `json:"createdAt"`
	UpdatedAt   Timestamp   `json:"updatedAt"`
}
