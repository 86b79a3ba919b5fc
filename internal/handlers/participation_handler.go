package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/logger"
	"github.com/gravadigital/encuentro-api/internal/middleware/auth"
	"github.com/gravadigital/encuentro-api/internal/response"
	"github.com/gravadigital/encuentro-api/internal/validation"
)

// ParticipationHandler serves the join/cancel/interest operations and the
// participant list views
type ParticipationHandler struct {
	engine     *participation.Engine
	ledger     participation.Ledger
	aggregator *participation.CountAggregator
	log        *log.Logger
}

// NewParticipationHandler creates a participation handler
func NewParticipationHandler(engine *participation.Engine, ledger participation.Ledger) *ParticipationHandler {
	return &ParticipationHandler{
		engine:     engine,
		ledger:     ledger,
		aggregator: participation.NewCountAggregator(ledger),
		log:        logger.Handler("participation"),
	}
}

// actionRequest carries the optional concurrency-control fields of a
// join/cancel call
type actionRequest struct {
	ExpectedVersion *int   `json:"expected_version,omitempty"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// Join handles POST /api/events/{event_id}/join
func (h *ParticipationHandler) Join(c *gin.Context) {
	h.applyAction(c, participation.ActionJoin)
}

// Cancel handles POST /api/events/{event_id}/cancel
func (h *ParticipationHandler) Cancel(c *gin.Context) {
	h.applyAction(c, participation.ActionCancel)
}

func (h *ParticipationHandler) applyAction(c *gin.Context, action participation.Action) {
	eventID, ok := h.eventIDParam(c)
	if !ok {
		return
	}

	userID, ok := auth.UserID(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req actionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequestError(c, "invalid request payload")
			return
		}
	}

	result, err := h.engine.ApplyAction(eventID, userID, action, participation.ApplyOptions{
		ExpectedVersion: req.ExpectedVersion,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, action.String()+" applied", result)
}

type interestRequest struct {
	Interested *bool `json:"interested" binding:"required"`
}

// SetInterest handles PUT /api/events/{event_id}/interest
func (h *ParticipationHandler) SetInterest(c *gin.Context) {
	eventID, ok := h.eventIDParam(c)
	if !ok {
		return
	}

	userID, ok := auth.UserID(c)
	if !ok {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "interested is required")
		return
	}

	action := participation.ActionUnmarkInterested
	if *req.Interested {
		action = participation.ActionMarkInterested
	}

	result, err := h.engine.ApplyAction(eventID, userID, action, participation.ApplyOptions{})
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	response.SuccessResponse(c, http.StatusOK, "interest updated", result)
}

// Participants handles GET /api/events/{event_id}/participants
func (h *ParticipationHandler) Participants(c *gin.Context) {
	h.listUsers(c, h.ledger.Participants)
}

// Waitlist handles GET /api/events/{event_id}/waitlist
func (h *ParticipationHandler) Waitlist(c *gin.Context) {
	h.listUsers(c, h.ledger.Waitlist)
}

// Interested handles GET /api/events/{event_id}/interested
func (h *ParticipationHandler) Interested(c *gin.Context) {
	h.listUsers(c, h.ledger.Interested)
}

func (h *ParticipationHandler) listUsers(c *gin.Context, list func(uuid.UUID) ([]uuid.UUID, error)) {
	eventID, ok := h.eventIDParam(c)
	if !ok {
		return
	}

	userIDs, err := list(eventID)
	if err != nil {
		h.log.Error("failed to list users", "event_id", eventID, "error", err)
		response.InternalServerError(c, "failed to list users")
		return
	}

	if userIDs == nil {
		userIDs = []uuid.UUID{}
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"event_id": eventID,
		"user_ids": userIDs,
		"count":    len(userIDs),
	})
}

// BatchJoinedCounts handles GET /api/events/counts?ids=a,b,c
func (h *ParticipationHandler) BatchJoinedCounts(c *gin.Context) {
	rawIDs := c.Query("ids")
	if rawIDs == "" {
		response.BadRequestError(c, "ids query parameter is required")
		return
	}

	var eventIDs []uuid.UUID
	for _, raw := range strings.Split(rawIDs, ",") {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.BadRequestError(c, "ids must be a comma-separated list of UUIDs")
			return
		}
		eventIDs = append(eventIDs, id)
	}

	counts, err := h.aggregator.BatchJoinedCounts(eventIDs)
	if err != nil {
		h.log.Error("failed to aggregate joined counts", "error", err)
		response.InternalServerError(c, "failed to aggregate joined counts")
		return
	}

	// JSON object keys must be strings
	result := make(map[string]int, len(counts))
	for id, count := range counts {
		result[id.String()] = count
	}

	response.SuccessResponse(c, http.StatusOK, "", gin.H{"counts": result})
}

func (h *ParticipationHandler) eventIDParam(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("event_id")
	if err := validation.ValidateUUID(raw, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return uuid.Nil, false
	}
	return uuid.MustParse(raw), true
}

func (h *ParticipationHandler) respondTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, participation.ErrEventNotFound):
		response.NotFoundError(c, "event not found")
	case errors.Is(err, participation.ErrEventClosed):
		response.ConflictError(c, "event already started")
	case errors.Is(err, participation.ErrVersionConflict):
		response.ConflictError(c, "stale version, re-read and retry")
	default:
		h.log.Error("transition failed", "error", err)
		response.InternalServerError(c, "failed to apply action")
	}
}
