// Package views computes which controls each role is offered for an entity.
// Nothing here authorizes: the backend rejects what it does not allow, and a
// view only hides what the viewer could not do anyway.
package views

import (
	"collegemate/backend/internal/models"
)

// Viewer identifies who is looking. UserID may be empty when the token does
// not carry one; ownership-based controls are then hidden.
type Viewer struct {
	Role   models.Role `json:"role"`
	UserID string      `json:"userId,omitempty"`
}

type Action string

const (
	ActionDelete       Action = "delete"
	ActionSetStatus    Action = "set-status"
	ActionAssign       Action = "assign"
	ActionClaim        Action = "claim"
	ActionViewClaims   Action = "view-claims"
	ActionApprove      Action = "approve"
	ActionReject       Action = "reject"
	ActionRegister     Action = "register"
	ActionPostUpdate   Action = "post-update"
	ActionToggleStatus Action = "toggle-status"
	ActionAssignAdmin  Action = "assign-admin"
)

func (v Viewer) owns(ref *models.UserRef) bool {
	return v.UserID != "" && ref.Is(v.UserID)
}

type ComplaintView struct {
	Complaint    models.Complaint         `json:"complaint"`
	Actions      []Action                 `json:"actions"`
	NextStatuses []models.ComplaintStatus `json:"nextStatuses,omitempty"`
}

// Complaint returns the controls for one complaint.
func Complaint(v Viewer, c models.Complaint) ComplaintView {
	out := ComplaintView{Complaint: c, Actions: []Action{}}
	switch v.Role {
	case models.RoleSuperAdmin:
		out.NextStatuses = models.ComplaintTransitions.Next(c.Status)
		if len(out.NextStatuses) > 0 {
			out.Actions = append(out.Actions, ActionSetStatus)
		}
		out.Actions = append(out.Actions, ActionAssign, ActionDelete)
	case models.RoleAdmin:
		out.NextStatuses = models.ComplaintTransitions.Next(c.Status)
		if len(out.NextStatuses) > 0 {
			out.Actions = append(out.Actions, ActionSetStatus)
		}
		out.Actions = append(out.Actions, ActionDelete)
	default:
		if v.owns(c.CreatedBy) && c.Status == models.ComplaintPending {
			out.Actions = append(out.Actions, ActionDelete)
		}
	}
	return out
}

func Complaints(v Viewer, list []models.Complaint) []ComplaintView {
	out := make([]ComplaintView, 0, len(list))
	for _, c := range list {
		out = append(out, Complaint(v, c))
	}
	return out
}

type ItemView struct {
	Item    models.LostFoundItem `json:"item"`
	Actions []Action             `json:"actions"`
}

func Item(v Viewer, item models.LostFoundItem) ItemView {
	out := ItemView{Item: item, Actions: []Action{}}
	owner := v.owns(item.PostedBy)
	if v.Role == models.RoleStudent && !owner && item.Kind != models.ItemLost && item.Claimable() {
		out.Actions = append(out.Actions, ActionClaim)
	}
	if owner || v.Role.IsStaff() {
		out.Actions = append(out.Actions, ActionViewClaims)
	}
	return out
}

func Items(v Viewer, list []models.LostFoundItem) []ItemView {
	out := make([]ItemView, 0, len(list))
	for _, it := range list {
		out = append(out, Item(v, it))
	}
	return out
}

type ClaimView struct {
	Claim   models.ClaimRequest `json:"claim"`
	Actions []Action            `json:"actions"`
}

// Claims returns the controls for the claims filed on item. Approving is
// offered only while the item is still available.
func Claims(v Viewer, item *models.LostFoundItem, claims []models.ClaimRequest) []ClaimView {
	decides := v.Role.IsStaff() || (item != nil && v.owns(item.PostedBy))
	out := make([]ClaimView, 0, len(claims))
	for _, c := range claims {
		cv := ClaimView{Claim: c, Actions: []Action{}}
		if decides {
			for _, next := range models.ClaimTransitions.Next(c.Status) {
				switch next {
				case models.ClaimApproved:
					if item.Claimable() {
						cv.Actions = append(cv.Actions, ActionApprove)
					}
				case models.ClaimRejected:
					cv.Actions = append(cv.Actions, ActionReject)
				}
			}
		}
		out = append(out, cv)
	}
	return out
}

type PlacementView struct {
	Placement     models.Placement          `json:"placement"`
	Actions       []Action                  `json:"actions"`
	StudentStatus models.RegistrationStatus `json:"studentStatus,omitempty"`
	NextStatuses  []models.PlacementStatus  `json:"nextStatuses,omitempty"`
}

// CanRegister reports whether the register control is enabled.
func (pv PlacementView) CanRegister() bool {
	for _, a := range pv.Actions {
		if a == ActionRegister {
			return true
		}
	}
	return false
}

func Placement(v Viewer, p models.Placement) PlacementView {
	out := PlacementView{Placement: p, Actions: []Action{}}
	if !v.Role.IsStaff() {
		out.StudentStatus = p.StudentStatus()
		if out.StudentStatus == models.NotRegistered && p.Status == models.PlacementOpen {
			out.Actions = append(out.Actions, ActionRegister)
		}
		return out
	}

	out.NextStatuses = models.PlacementTransitions.Next(p.Status)
	out.Actions = append(out.Actions, ActionPostUpdate, ActionToggleStatus)
	if v.Role == models.RoleSuperAdmin {
		out.Actions = append(out.Actions, ActionAssignAdmin, ActionDelete)
	}
	return out
}

func Placements(v Viewer, list []models.Placement) []PlacementView {
	out := make([]PlacementView, 0, len(list))
	for _, p := range list {
		out = append(out, Placement(v, p))
	}
	return out
}
