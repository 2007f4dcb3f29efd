package models

type PlacementStatus string

const (
	PlacementOpen   PlacementStatus = "open"
	PlacementClosed PlacementStatus = "closed"
)

var PlacementTransitions = Transitions[PlacementStatus]{
	PlacementOpen:   {PlacementClosed},
	PlacementClosed: {PlacementOpen},
}

func (s PlacementStatus) Valid() bool {
	return s == PlacementOpen || s == PlacementClosed
}

type RoundType string

const (
	RoundCommon   RoundType = "common"
	RoundSpecific RoundType = "round-specific"
)

func (r RoundType) Valid() bool {
	return r == RoundCommon || r == RoundSpecific
}

// RegistrationStatus is a student's standing for one placement drive.
type RegistrationStatus string

const (
	NotRegistered           RegistrationStatus = "not_registered"
	RegistrationRegistered  RegistrationStatus = "registered"
	RegistrationShortlisted RegistrationStatus = "shortlisted"
	RegistrationRejected    RegistrationStatus = "rejected"
)

// RegistrationTransitions: registering is a one-time action.
var RegistrationTransitions = Transitions[RegistrationStatus]{
	NotRegistered:          {RegistrationRegistered},
	RegistrationRegistered: {RegistrationShortlisted, RegistrationRejected},
}

// PlacementUpdate is one entry of a drive's update feed.
type PlacementUpdate struct {
	UpdateText string    `json:"updateText"`
	RoundType  RoundType `json:"roundType"`
	PostedBy   *UserRef  `json:"postedBy,omitempty"`
	DatePosted Timestamp `json:"datePosted"`
}

type Registration struct {
	Student *UserRef           `json:"student,omitempty"`
	Resume  string             `json:"resume,omitempty"`
	Status  RegistrationStatus `json:"status"`
}

// Placement is a campus placement drive.
type Placement struct {
	ID                  string             `json:"_id"`
	CompanyName         string             `json:"companyName"`
	JobTitle            string             `json:"jobTitle"`
	JobDescription      string             `json:"jobDescription,omitempty"`
	EligibilityCriteria string             `json:"eligibilityCriteria,omitempty"`
	Deadline            *Timestamp         `json:"deadline,omitempty"`
	ApplicationLink     string             `json:"applicationLink,omitempty"`
	Status              PlacementStatus    `json:"status"`
	AssignedAdmin       *UserRef           `json:"assignedAdmin,omitempty"`
	Updates             []PlacementUpdate  `json:"updates,omitempty"`
	RegisteredStudents  []Registration     `json:"registeredStudents,omitempty"`
	RegistrationStatus  RegistrationStatus `json:"registrationStatus,omitempty"`
	CreatedAt           Timestamp          `json:"createdAt"`
	UpdatedAt           Timestamp          `json:"updatedAt"`
}

// StudentStatus returns the viewer's registration status, treating an absent
// value as not registered.
func (p *Placement) StudentStatus() RegistrationStatus {
	if p == nil || p.RegistrationStatus == "" {
		return NotRegistered
	}
	return p.RegistrationStatus
}

// Admin is an entry of the assignable admin list.
type Admin struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role,omitempty"`
}
