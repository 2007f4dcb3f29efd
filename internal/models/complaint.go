package models

type ComplaintStatus string

const (
	ComplaintPending    ComplaintStatus = "pending"
	ComplaintInProgress ComplaintStatus = "in-progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintRejected   ComplaintStatus = "rejected"
)

// ComplaintTransitions lists the statuses an admin may move a complaint to.
// Resolved and rejected complaints are closed.
var ComplaintTransitions = Transitions[ComplaintStatus]{
	ComplaintPending:    {ComplaintInProgress, ComplaintResolved, ComplaintRejected},
	ComplaintInProgress: {ComplaintResolved, ComplaintRejected, ComplaintPending},
}

// Valid reports whether s is a known complaint status.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintInProgress, ComplaintResolved, ComplaintRejected:
		return true
	}
	return false
}

type ComplaintCategory string

const (
	CategoryHostel    ComplaintCategory = "hostel"
	CategoryWifi      ComplaintCategory = "wifi"
	CategoryClassroom ComplaintCategory = "classroom"
	CategoryMess      ComplaintCategory = "mess"
	CategoryOther     ComplaintCategory = "other"
)

func (c ComplaintCategory) Valid() bool {
	switch c {
	case CategoryHostel, CategoryWifi, CategoryClassroom, CategoryMess, CategoryOther:
		return true
	}
	return false
}

// Complaint is a student complaint as the backend returns it.
type Complaint struct {
	ID          string            `json:"_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    ComplaintCategory `json:"category"`
	Landmark    string            `json:"landmark,omitempty"`
	Status      ComplaintStatus   `json:"status"`
	CreatedBy   *UserRef          `json:"createdBy,omitempty"`
	AssignedTo  *UserRef          `json:"assignedTo,omitempty"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	CreatedAt   Timestamp         `json:"createdAt"`
	UpdatedAt   Timestamp         `json:"updatedAt"`
}
