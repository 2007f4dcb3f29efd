package handler

import (
	"collegemate/backend/internal/models"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func domainParam(c *gin.Context) (models.Domain, error) {
	d := models.Domain(c.Param("domain"))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown domain %q", errBadBody, d)
	}
	return d, nil
}

// GetSelection answers the selected entity id of a domain, or null.
func (h *Handler) GetSelection(c *gin.Context) {
	d, err := domainParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sel, err := h.Selections.GetSelection(sessionOf(c).ID, d)
	reply(h, c, sel, err)
}

func (h *Handler) PutSelection(c *gin.Context) {
	d, err := domainParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var body struct {
		EntityID string `json:"entityId"`
	}
	if err := bindJSON(c, &body); err != nil {
		h.writeError(c, err)
		return
	}
	if strings.TrimSpace(body.EntityID) == "" {
		h.writeError(c, fmt.Errorf("%w: entityId is required", errBadBody))
		return
	}

	sel := &models.Selection{SessionID: sessionOf(c).ID, Domain: d, EntityID: body.EntityID, UpdatedAt: time.Now()}
	if err := h.Selections.SaveSelection(sel); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

func (h *Handler) DeleteSelection(c *gin.Context) {
	d, err := domainParam(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.Selections.ClearSelection(sessionOf(c).ID, d); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
