package catalog

import (
	"errors"
	"net/http"
	"time"

	"clinicbook/internal/shared/utils/response"
	"clinicbook/internal/slotindex"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
	slots   slotindex.Index
}

func NewController(service Service, slots slotindex.Index) *Controller {
	return &Controller{service: service, slots: slots}
}

// SlotView is one entry of the day grid returned by GetSlots.
type SlotView struct {
	TimeLabel string `json:"time_label"`
	Occupied  bool   `json:"occupied"`
}

// ListResources handles GET /api/v1/resources
func (c *Controller) ListResources(ctx *gin.Context) {
	resources, err := c.service.ListResources(ctx.Request.Context())
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to list resources", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Resources retrieved", gin.H{
		"resources": resources,
		"count":     len(resources),
	}, nil)
}

// GetResource handles GET /api/v1/resources/:id
func (c *Controller) GetResource(ctx *gin.Context) {
	resourceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid resource ID", nil, nil)
		return
	}

	resource, err := c.service.GetResource(ctx.Request.Context(), resourceID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Resource not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to fetch resource", nil, nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Resource retrieved", resource, nil)
}

// GetSlots handles GET /api/v1/resources/:id/slots?date=YYYY-MM-DD
// Returns the full half-hour grid for the day with occupancy flags
// taken from the slot index.
func (c *Controller) GetSlots(ctx *gin.Context) {
	resourceID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid resource ID", nil, nil)
		return
	}

	date := ctx.Query("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "date must be in YYYY-MM-DD format", nil, nil)
		return
	}

	// 404 for unknown resources rather than an empty grid
	if _, err := c.service.GetResource(ctx.Request.Context(), resourceID); err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			response.RespondJSON(ctx, "error", http.StatusNotFound, "Resource not found", nil, nil)
			return
		}
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to fetch resource", nil, nil)
		return
	}

	occupied, err := c.slots.OccupiedLabels(ctx.Request.Context(), resourceID, date)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to fetch slot occupancy", nil, nil)
		return
	}

	occupiedSet := make(map[string]struct{}, len(occupied))
	for _, label := range occupied {
		occupiedSet[label] = struct{}{}
	}

	grid := make([]SlotView, 0, slotindex.SlotCount)
	for _, label := range slotindex.Labels() {
		_, taken := occupiedSet[label]
		grid = append(grid, SlotView{TimeLabel: label, Occupied: taken})
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slots retrieved", gin.H{
		"resource_id": resourceID,
		"date":        date,
		"slots":       grid,
	}, nil)
}
