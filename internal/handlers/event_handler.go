package handlers

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
	"github.com/gravadigital/encuentro-api/internal/middleware/auth"
	"github.com/gravadigital/encuentro-api/internal/response"
	"github.com/gravadigital/encuentro-api/internal/storage"
	"github.com/gravadigital/encuentro-api/internal/validation"
)

// EventHandler serves the event catalog endpoints
type EventHandler struct {
	events    storage.EventStore
	ledger    participation.Ledger
	engine    *participation.Engine
	validator validation.EventValidation
	log       *log.Logger
}

// NewEventHandler creates an event handler
func NewEventHandler(events storage.EventStore, ledger participation.Ledger, engine *participation.Engine) *EventHandler {
	return &EventHandler{
		events: events,
		ledger: ledger,
		engine: engine,
		log:    logger.Handler("event"),
	}
}

type createEventRequest struct {
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	MinAttendees int       `json:"min_attendees" binding:"required"`
	MaxAttendees int       `json:"max_attendees" binding:"required"`
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	ownerID, ok := auth.UserID(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "invalid request payload")
		return
	}

	if err := h.validator.ValidateEventName(req.Name); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := h.validator.ValidateEventDescription(req.Description); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := validation.ValidateAttendeeBounds(req.MinAttendees, req.MaxAttendees); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	if err := validation.ValidateFutureDate(req.StartDate, "start_date"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	newEvent := event.NewEvent(req.Name, req.Description, ownerID, req.StartDate, req.MinAttendees, req.MaxAttendees)
	if err := h.events.Create(newEvent); err != nil {
		h.log.Error("failed to create event", "error", err)
		response.InternalServerError(c, "failed to create event")
		return
	}

	response.SuccessResponse(c, http.StatusCreated, "event created", newEvent)
}

// GetAllEvents handles GET /api/events
func (h *EventHandler) GetAllEvents(c *gin.Context) {
	events, err := h.events.GetAll()
	if err != nil {
		h.log.Error("failed to retrieve events", "error", err)
		response.InternalServerError(c, "failed to retrieve events")
		return
	}

	ids := make([]uuid.UUID, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	counts, err := participation.NewCountAggregator(h.ledger).BatchJoinedCounts(ids)
	if err != nil {
		h.log.Error("failed to aggregate joined counts", "error", err)
		response.InternalServerError(c, "failed to retrieve events")
		return
	}

	type eventWithCount struct {
		*event.Event
		JoinedCount int `json:"joined_count"`
	}

	result := make([]eventWithCount, 0, len(events))
	for _, ev := range events {
		result = append(result, eventWithCount{Event: ev, JoinedCount: counts[ev.ID]})
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"events": result,
		"count":  len(result),
	})
}

// GetEvent handles GET /api/events/{event_id}
func (h *EventHandler) GetEvent(c *gin.Context) {
	raw := c.Param("event_id")
	if err := validation.ValidateUUID(raw, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	eventID := uuid.MustParse(raw)

	ev, err := h.events.GetByID(eventID)
	if err != nil {
		response.NotFoundError(c, "event not found")
		return
	}

	joined, err := h.ledger.JoinedCount(eventID)
	if err != nil {
		h.log.Error("failed to read joined count", "event_id", eventID, "error", err)
		response.InternalServerError(c, "failed to retrieve event")
		return
	}

	waitlist, err := h.ledger.Waitlist(eventID)
	if err != nil {
		h.log.Error("failed to read waitlist", "event_id", eventID, "error", err)
		response.InternalServerError(c, "failed to retrieve event")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"event":          ev,
		"joined_count":   joined,
		"waitlist_count": len(waitlist),
	})
}

type updateBoundsRequest struct {
	MinAttendees int `json:"min_attendees" binding:"required"`
	MaxAttendees int `json:"max_attendees" binding:"required"`
}

// UpdateBounds handles PATCH /api/events/{event_id}/bounds. Only the owner
// may change bounds; raising max_attendees drains the waitlist into the new
// slots via capacity reconciliation.
func (h *EventHandler) UpdateBounds(c *gin.Context) {
	raw := c.Param("event_id")
	if err := validation.ValidateUUID(raw, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}
	eventID := uuid.MustParse(raw)

	userID, ok := auth.UserID(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req updateBoundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "invalid request payload")
		return
	}
	if err := validation.ValidateAttendeeBounds(req.MinAttendees, req.MaxAttendees); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	ev, err := h.events.GetByID(eventID)
	if err != nil {
		response.NotFoundError(c, "event not found")
		return
	}
	if !ev.IsOwner(userID) {
		response.ErrorResponseWithMessage(c, http.StatusForbidden, "only the event owner may change bounds")
		return
	}

	if err := h.events.UpdateBounds(eventID, req.MinAttendees, req.MaxAttendees); err != nil {
		h.log.Error("failed to update bounds", "event_id", eventID, "error", err)
		response.InternalServerError(c, "failed to update bounds")
		return
	}

	promoted, err := h.engine.ReconcileCapacity(eventID)
	if err != nil {
		h.log.Error("failed to reconcile capacity", "event_id", eventID, "error", err)
		response.InternalServerError(c, "bounds updated but capacity reconciliation failed")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "bounds updated", gin.H{
		"event_id":      eventID,
		"min_attendees": req.MinAttendees,
		"max_attendees": req.MaxAttendees,
		"promoted":      promoted,
	})
}
