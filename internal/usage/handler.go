package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/shared/server/middleware"
	"underwriter-backend/internal/shared/server/respond"
)

// Handler exposes the session quota over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.get)
}

func (h *Handler) get(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	u, err := h.Svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch usage", nil)
		return
	}

	respond.JSON(c, http.StatusOK, u)
}
