package corpus

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/camroute/fare-engine/pkg/common"
)

// Handler handles HTTP requests for corpus introspection
type Handler struct {
	service *Service
}

// NewHandler creates a new corpus handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStats returns the corpus aggregate snapshot
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to compute corpus stats")
		return
	}

	common.SuccessResponse(c, stats)
}
