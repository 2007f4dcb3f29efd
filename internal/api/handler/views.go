package handler

import (
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/views"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ComplaintViews lists every complaint for staff and the caller's own for
// students, each with the controls the caller is offered.
func (h *Handler) ComplaintViews(c *gin.Context) {
	s, viewer := sessionOf(c), viewerOf(c)
	var (
		list []models.Complaint
		err  error
	)
	if viewer.Role.IsStaff() {
		list, err = s.Complaints.All(c.Request.Context())
	} else {
		list, err = s.Complaints.Mine(c.Request.Context())
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Complaints(viewer, list))
}

func (h *Handler) ItemViews(c *gin.Context) {
	list, err := sessionOf(c).LostFound.FoundItems(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Items(viewerOf(c), list))
}

func (h *Handler) ClaimViews(c *gin.Context) {
	s, id := sessionOf(c), c.Param("id")
	items, err := s.LostFound.FoundItems(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	claims, err := s.LostFound.ClaimsForItem(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var item *models.LostFoundItem
	for i := range items {
		if items[i].ID == id {
			item = &items[i]
			break
		}
	}
	c.JSON(http.StatusOK, views.Claims(viewerOf(c), item, claims))
}

func (h *Handler) PlacementViews(c *gin.Context) {
	s, viewer := sessionOf(c), viewerOf(c)
	var (
		list []models.Placement
		err  error
	)
	if viewer.Role.IsStaff() {
		list, err = s.Placements.AdminAll(c.Request.Context())
	} else {
		list, err = s.Placements.StudentAll(c.Request.Context())
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.Placements(viewer, list))
}

func (h *Handler) PlacementView(c *gin.Context) {
	p, err := sessionOf(c).Placements.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Placement not found"})
		return
	}
	c.JSON(http.StatusOK, views.Placement(viewerOf(c), *p))
}
