package estimate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/validation"
)

// Handler handles HTTP requests for fare estimates
type Handler struct {
	service *Service
}

// NewHandler creates a new estimate handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateEstimate answers POST /v1/estimates
func (h *Handler) CreateEstimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := validation.ValidateCoordinates(req.DepartLatitude, req.DepartLongitude); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidateCoordinates(req.ArrivalLatitude, req.ArrivalLongitude); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Estimate(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to compute estimate") {
		return
	}

	common.SuccessResponse(c, result)
}
