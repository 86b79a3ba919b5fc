package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/encuentro-api/internal/domain/event"
	"github.com/gravadigital/encuentro-api/internal/domain/participation"
	"github.com/gravadigital/encuentro-api/internal/middleware/auth"
	"github.com/gravadigital/encuentro-api/internal/storage"
)

const testSecret = "handlers-test-secret"

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, storage.Backend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, err := storage.NewBackend(storage.StorageTypeMemory, nil)
	require.NoError(t, err)

	engine := participation.NewEngine(backend.Events(), backend.Ledger())
	eventHandler := NewEventHandler(backend.Events(), backend.Ledger(), engine)
	participationHandler := NewParticipationHandler(engine, backend.Ledger())

	requireUser := auth.RequireUser(testSecret)

	router := gin.New()
	api := router.Group("/api")
	events := api.Group("/events")
	events.GET("", eventHandler.GetAllEvents)
	events.POST("", requireUser, eventHandler.CreateEvent)
	events.GET("/counts", participationHandler.BatchJoinedCounts)
	events.GET("/:event_id", eventHandler.GetEvent)
	events.PATCH("/:event_id/bounds", requireUser, eventHandler.UpdateBounds)
	events.POST("/:event_id/join", requireUser, participationHandler.Join)
	events.POST("/:event_id/cancel", requireUser, participationHandler.Cancel)
	events.PUT("/:event_id/interest", requireUser, participationHandler.SetInterest)
	events.GET("/:event_id/participants", participationHandler.Participants)
	events.GET("/:event_id/waitlist", participationHandler.Waitlist)
	events.GET("/:event_id/interested", participationHandler.Interested)

	return router, backend
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if userID != uuid.Nil {
		token, err := auth.IssueToken(userID, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func seedEvent(t *testing.T, backend storage.Backend, maxAttendees int) *event.Event {
	t.Helper()
	ev := event.NewEvent("Cena astronómica", "", uuid.New(), time.Now().Add(time.Hour), 1, maxAttendees)
	require.NoError(t, backend.Events().Create(ev))
	return ev
}

func TestCreateEventEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	ownerID := uuid.New()

	w := doRequest(t, router, http.MethodPost, "/api/events", gin.H{
		"name":          "Star party",
		"description":   "Observación en la sierra",
		"start_date":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"min_attendees": 2,
		"max_attendees": 15,
	}, ownerID)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created event.Event
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	assert.Equal(t, "Star party", created.Name)
	assert.Equal(t, ownerID, created.OwnerID)
}

func TestCreateEventRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/events", gin.H{
		"name":          "Star party",
		"start_date":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"min_attendees": 1,
		"max_attendees": 10,
	}, uuid.Nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateEventRejectsBadBounds(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/events", gin.H{
		"name":          "Star party",
		"start_date":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"min_attendees": 10,
		"max_attendees": 5,
	}, uuid.New())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinEndpoint(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)
	userID := uuid.New()

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, userID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result participation.Result
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.Equal(t, participation.StateJoined, result.State)
	assert.Equal(t, 1, result.JoinedCount)
	assert.Equal(t, 1, result.Version)
}

func TestJoinRequiresAuth(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJoinUnknownEventReturns404(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/events/"+uuid.NewString()+"/join", nil, uuid.New())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinInvalidEventIDReturns400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/events/not-a-uuid/join", nil, uuid.New())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJoinClosedEventReturns409(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := event.NewEvent("Charla pasada", "", uuid.New(), time.Now().Add(-time.Hour), 1, 5)
	require.NoError(t, backend.Events().Create(ev))

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStaleExpectedVersionReturns409(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)
	userID := uuid.New()

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, userID)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/cancel", gin.H{
		"expected_version": 0,
	}, userID)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFullEventWaitlistFlow(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 2)

	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	for _, u := range []uuid.UUID{userA, userB} {
		w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, u)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, userC)
	require.Equal(t, http.StatusOK, w.Code)

	var result participation.Result
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.Equal(t, participation.StateWaitlisted, result.State)

	// A cancels and C takes the freed slot.
	w = doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/cancel", nil, userA)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/events/"+ev.ID.String()+"/participants", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, userB.String())
	assert.Contains(t, body, userC.String())
	assert.NotContains(t, body, userA.String())

	w = doRequest(t, router, http.MethodGet, "/api/events/"+ev.ID.String()+"/waitlist", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestInterestEndpoint(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)
	userID := uuid.New()

	w := doRequest(t, router, http.MethodPut, "/api/events/"+ev.ID.String()+"/interest", gin.H{
		"interested": true,
	}, userID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result participation.Result
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &result))
	assert.True(t, result.Interested)
	assert.Equal(t, participation.StateNone, result.State)

	w = doRequest(t, router, http.MethodGet, "/api/events/"+ev.ID.String()+"/interested", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	w = doRequest(t, router, http.MethodPut, "/api/events/"+ev.ID.String()+"/interest", gin.H{
		"interested": false,
	}, userID)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/events/"+ev.ID.String()+"/interested", nil, uuid.Nil)
	assert.NotContains(t, w.Body.String(), userID.String())
}

func TestInterestRequiresBody(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)

	w := doRequest(t, router, http.MethodPut, "/api/events/"+ev.ID.String()+"/interest", nil, uuid.New())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchCountsEndpoint(t *testing.T) {
	router, backend := newTestRouter(t)
	ev1 := seedEvent(t, backend, 10)
	ev2 := seedEvent(t, backend, 10)

	for i := 0; i < 3; i++ {
		w := doRequest(t, router, http.MethodPost, "/api/events/"+ev1.ID.String()+"/join", nil, uuid.New())
		require.Equal(t, http.StatusOK, w.Code)
	}

	path := fmt.Sprintf("/api/events/counts?ids=%s,%s", ev1.ID, ev2.ID)
	w := doRequest(t, router, http.MethodGet, path, nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Counts map[string]int `json:"counts"`
	}
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, map[string]int{
		ev1.ID.String(): 3,
		ev2.ID.String(): 0,
	}, data.Counts)
}

func TestBatchCountsRequiresIDs(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/events/counts", nil, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/events/counts?ids=nope", nil, uuid.Nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetEventIncludesCounts(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 1)

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/events/"+ev.ID.String(), nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		JoinedCount   int `json:"joined_count"`
		WaitlistCount int `json:"waitlist_count"`
	}
	envelope := decodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, 1, data.JoinedCount)
	assert.Equal(t, 1, data.WaitlistCount)
}

func TestUpdateBoundsPromotesWaitlist(t *testing.T) {
	router, backend := newTestRouter(t)
	ownerID := uuid.New()
	ev := event.NewEvent("Taller de cohetes", "", ownerID, time.Now().Add(time.Hour), 1, 1)
	require.NoError(t, backend.Events().Create(ev))

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodPatch, "/api/events/"+ev.ID.String()+"/bounds", gin.H{
		"min_attendees": 1,
		"max_attendees": 3,
	}, ownerID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"promoted":1`)

	joined, err := backend.Ledger().JoinedCount(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, joined)
}

func TestUpdateBoundsRejectsNonOwner(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 5)

	w := doRequest(t, router, http.MethodPatch, "/api/events/"+ev.ID.String()+"/bounds", gin.H{
		"min_attendees": 1,
		"max_attendees": 10,
	}, uuid.New())
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetAllEventsIncludesJoinedCounts(t *testing.T) {
	router, backend := newTestRouter(t)
	ev := seedEvent(t, backend, 10)

	w := doRequest(t, router, http.MethodPost, "/api/events/"+ev.ID.String()+"/join", nil, uuid.New())
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/events", nil, uuid.Nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"joined_count":1`)
}
