package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/pagination"
	"github.com/camroute/fare-engine/pkg/validation"
)

// Handler handles HTTP requests for trip contribution
type Handler struct {
	service *Service
}

// NewHandler creates a new ingestion handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitTrip answers POST /v1/trips
func (h *Handler) SubmitTrip(c *gin.Context) {
	var req TripRequest
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

	trip, err := h.service.SubmitTrip(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to store trip") {
		return
	}

	common.CreatedResponse(c, trip)
}

// GetTrip answers GET /v1/trips/:id
func (h *Handler) GetTrip(c *gin.Context) {
	id, ok := common.ParseUUIDParam(c, "id", "trip ID")
	if !ok {
		return
	}

	trip, err := h.service.GetTrip(c.Request.Context(), id)
	if common.HandleServiceError(c, err, "failed to get trip") {
		return
	}

	common.SuccessResponse(c, trip)
}

// ListTrips answers GET /v1/trips
func (h *Handler) ListTrips(c *gin.Context) {
	params := pagination.ParseParams(c)

	trips, total, err := h.service.ListTrips(c.Request.Context(), params.Limit, params.Offset)
	if common.HandleServiceError(c, err, "failed to list trips") {
		return
	}

	common.SuccessResponseWithMeta(c, trips, pagination.BuildMeta(params.Limit, params.Offset, total))
}
