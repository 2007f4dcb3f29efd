package handler

import (
	"collegemate/backend/internal/apiclient"
	"collegemate/backend/internal/complaint"
	"collegemate/backend/internal/endpoint"
	"collegemate/backend/internal/hub"
	"collegemate/backend/internal/lostfound"
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/placement"
	"collegemate/backend/internal/session"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Selections is the navigation-context store.
type Selections interface {
	GetSelection(sessionID string, domain models.Domain) (*models.Selection, error)
	SaveSelection(sel *models.Selection) error
	ClearSelection(sessionID string, domain models.Domain) error
}

// Handler містить посилання на реєстр сесій та Hub
type Handler struct {
	Registry   *session.Registry
	Hub        *hub.Manager
	Selections Selections
	Logger     *zap.Logger

	// AllowedOrigins limits websocket upgrades; empty allows any origin.
	AllowedOrigins []string
}

func NewHandler(reg *session.Registry, h *hub.Manager, sel Selections, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Registry: reg, Hub: h, Selections: sel, Logger: logger}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/ws", h.RequireSession(), h.ServeWebSocket)

	v1 := r.Group("/api/v1", h.RequireSession())

	v1.POST("/complaints", h.CreateComplaint)
	v1.GET("/my-complaints", h.MyComplaints)
	v1.GET("/all-complaints", h.AllComplaints)
	v1.POST("/update-complaint-status", h.UpdateComplaintStatus)
	v1.DELETE("/complaints/:id", h.DeleteComplaint)
	v1.POST("/assign-complaint", h.AssignComplaint)
	v1.GET("/search-complaints", h.SearchComplaints)

	items := v1.Group("/items")
	items.POST("/found-item", h.ReportFoundItem)
	items.POST("/request", h.ReportLostItem)
	items.POST("/claimed-request", h.CreateClaim)
	items.GET("/found-items", h.FoundItems)
	items.GET("/requests", h.LostRequests)
	items.GET("/my-listings", h.MyListings)
	items.GET("/my-requests", h.MyRequests)
	items.POST("/update-claim-status", h.UpdateClaimStatus)
	items.POST("/claims", h.ClaimsForItem)

	p := v1.Group("/placement")
	p.POST("/create", h.CreatePlacement)
	p.GET("/admin/all", h.AdminPlacements)
	p.GET("/student/all", h.StudentPlacements)
	p.GET("/all-admins", h.AllAdmins)
	p.GET("/:id", h.PlacementDetails)
	p.POST("/:id/assign-admin", h.AssignPlacementAdmin)
	p.POST("/:id/update", h.PostPlacementUpdate)
	p.POST("/:id/update-status", h.UpdatePlacementStatus)
	p.POST("/:id/register", h.RegisterForPlacement)
	p.DELETE("/:id", h.DeletePlacement)

	views := v1.Group("/views")
	views.GET("/complaints", h.ComplaintViews)
	views.GET("/items", h.ItemViews)
	views.GET("/items/:id/claims", h.ClaimViews)
	views.GET("/placements", h.PlacementViews)
	views.GET("/placements/:id", h.PlacementView)

	v1.GET("/selection/:domain", h.GetSelection)
	v1.PUT("/selection/:domain", h.PutSelection)
	v1.DELETE("/selection/:domain", h.DeleteSelection)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(h.Registry.Sessions())})
}

var badRequestErrors = []error{
	complaint.ErrMissingID, complaint.ErrInvalidStatus, complaint.ErrMissingTitle, complaint.ErrBadCategory,
	lostfound.ErrMissingID, lostfound.ErrInvalidStatus, lostfound.ErrMissingTitle,
	placement.ErrMissingID, placement.ErrInvalidStatus, placement.ErrInvalidRoundType, placement.ErrMissingField,
	endpoint.ErrBadArgument, endpoint.ErrUnknownEndpoint, apiclient.ErrFileFieldMisplaced,
	errBadBody,
}

var errBadBody = errors.New("malformed request body")

// writeError answers with {message}. Upstream errors keep their status;
// transport failures become 502.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		message = apiclient.MessageOf(err, http.StatusText(status))
	case errors.Is(err, session.ErrNoCredentials):
		status = http.StatusUnauthorized
	default:
		for _, target := range badRequestErrors {
			if errors.Is(err, target) {
				status = http.StatusBadRequest
				break
			}
		}
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// reply writes normalized data, or the error.
func reply[T any](h *Handler, c *gin.Context, data T, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
