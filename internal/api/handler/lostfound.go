package handler

import (
	"collegemate/backend/internal/lostfound"
	"collegemate/backend/internal/models"
	"context"

	"github.com/gin-gonic/gin"
)

func (h *Handler) reportItem(c *gin.Context, report func(context.Context, lostfound.ItemInput) (*models.LostFoundItem, error)) {
	image, closer, err := formFile(c, "image")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closer.Close()

	out, err := report(c.Request.Context(), lostfound.ItemInput{
		Title:       c.PostForm("title"),
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Landmark:    c.PostForm("landmark"),
		Category:    c.PostForm("category"),
		Image:       image,
	})
	reply(h, c, out, err)
}

func (h *Handler) ReportFoundItem(c *gin.Context) {
	h.reportItem(c, sessionOf(c).LostFound.ReportFound)
}

func (h *Handler) ReportLostItem(c *gin.Context) {
	h.reportItem(c, sessionOf(c).LostFound.ReportLost)
}

func (h *Handler) CreateClaim(c *gin.Context) {
	image, closer, err := formFile(c, "image")
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer closer.Close()

	out, err := sessionOf(c).LostFound.CreateClaim(c.Request.Context(), lostfound.ClaimInput{
		ItemID:      c.PostForm("itemId"),
		Description: c.PostForm("description"),
		Image:       image,
	})
	reply(h, c, out, err)
}

func (h *Handler) FoundItems(c *gin.Context) {
	out, err := sessionOf(c).LostFound.FoundItems(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) LostRequests(c *gin.Context) {
	out, err := sessionOf(c).LostFound.LostRequests(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) MyListings(c *gin.Context) {
	out, err := sessionOf(c).LostFound.MyListings(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) MyRequests(c *gin.Context) {
	out, err := sessionOf(c).LostFound.MyRequests(c.Request.Context())
	reply(h, c, out, err)
}

func (h *Handler) UpdateClaimStatus(c *gin.Context) {
	var body struct {
		ClaimID string             `json:"claimId"`
		Status  models.ClaimStatus `json:"status"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).LostFound.UpdateClaimStatus(c.Request.Context(), body.ClaimID, body.Status)
	reply(h, c, out, err)
}

func (h *Handler) ClaimsForItem(c *gin.Context) {
	var body lostfound.ClaimsArg
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	out, err := sessionOf(c).LostFound.ClaimsForItem(c.Request.Context(), body.ItemID)
	reply(h, c, out, err)
}
