package handler

import (
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/placement"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreatePlacement(c *gin.Context) {
	var in placement.CreateInput
	if err := bindJSON(c, &in); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Placements.Create(c.Request.Context(), in)
	reply(h, c, out, err)
}

func (h *Handler) AdminPlacements(c *gin.Context) {
	out, err := sessionOf(c).Placements.AdminAll(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) StudentPlacements(c *gin.Context) {
	out, err := sessionOf(c).Placements.StudentAll(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) AllAdmins(c *gin.Context) {
	out, err := sessionOf(c).Placements.Admins(c.Request.Context())
	reply(h, c, out, err)
}

// PlacementDetails answers null for a drive the backend does not return.
func (h *Handler) PlacementDetails(c *gin.Context) {
	out, err := sessionOf(c).Placements.Details(c.Request.Context(), c.Param("id"))
	reply(h, c, out, err)
}

func (h *Handler) AssignPlacementAdmin(c *gin.Context) {
	var body struct {
		AdminID string `json:"adminId"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Placements.AssignAdmin(c.Request.Context(), c.Param("id"), body.AdminID)
	reply(h, c, out, err)
}

func (h *Handler) PostPlacementUpdate(c *gin.Context) {
	var in placement.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Placements.PostUpdate(c.Request.Context(), c.Param("id"), in)
	reply(h, c, out, err)
}

func (h *Handler) UpdatePlacementStatus(c *gin.Context) {
	var body struct {
		Status models.PlacementStatus `json:"status"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Placements.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	reply(h, c, out, err)
}

// RegisterForPlacement forwards every text field of the form along with the
// resume.
func (h *Handler) RegisterForPlacement(c *gin.Context) {
	resume, closer, err := formFile(c, "resume")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closer.Close()

	fields := map[string]string{}
	if form, err := c.MultipartForm(); err == nil {
		for k, v := range form.Value {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	}

	out, err := sessionOf(c).Placements.Register(c.Request.Context(), c.Param("id"),
		placement.RegisterInput{Fields: fields, Resume: resume})
	reply(h, c, out, err)
}

func (h *Handler) DeletePlacement(c *gin.Context) {
	if err := sessionOf(c).Placements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Placement deleted"})
}
