package handler

import (
	"collegemate/backend/internal/complaint"
	"collegemate/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateComplaint(c *gin.Context) {
	image, closer, err := formFile(c, "image")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closer.Close()

	out, err := sessionOf(c).Complaints.Create(c.Request.Context(), complaint.CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    models.ComplaintCategory(c.PostForm("category")),
		Landmark:    c.PostForm("landmark"),
		Image:       image,
	})
	reply(h, c, out, err)
}

func (h *Handler) MyComplaints(c *gin.Context) {
	out, err := sessionOf(c).Complaints.Mine(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) AllComplaints(c *gin.Context) {
	out, err := sessionOf(c).Complaints.All(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) SearchComplaints(c *gin.Context) {
	out, err := sessionOf(c).Complaints.Search(c.Request.Context(), c.Query("query"))
	reply(h, c, out, err)
}

func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var body struct {
		ComplaintID string                 `json:"complaintId"`
		Status      models.ComplaintStatus `json:"status"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Complaints.UpdateStatus(c.Request.Context(), body.ComplaintID, body.Status)
	reply(h, c, out, err)
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	var body struct {
		ComplaintID string `json:"complaintId"`
		AssignedTo  string `json:"assignedTo"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).Complaints.Assign(c.Request.Context(), body.ComplaintID, body.AssignedTo)
	reply(h, c, out, err)
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := sessionOf(c).Complaints.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint deleted"})
}
