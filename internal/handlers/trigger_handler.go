package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/anonto42/nano-midea/functions/internal/triggers"
)

// FirestoreEventRequest is the envelope of a document write event
type FirestoreEventRequest struct {
	EventID  string          `json:"eventId"`
	Type     string          `json:"type" validate:"required"`
	Document string          `json:"document" validate:"required"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
}

// StorageEventRequest is the envelope of a finalized upload
type StorageEventRequest struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType"`
}

// TriggerResponse lists the outcome of every handler that ran
type TriggerResponse struct {
	EventID  string             `json:"eventId,omitempty"`
	Outcomes []triggers.Outcome `json:"outcomes"`
}

// TriggerHandler receives events from the trigger runtime. Every response is
// 200 so that a malformed or failing event is not redelivered in a loop.
type TriggerHandler struct {
	registry *triggers.Registry
	timeout  time.Duration
}

// NewTriggerHandler creates a new TriggerHandler. Every invocation runs
// under a context that expires after timeout; zero disables the budget.
func NewTriggerHandler(registry *triggers.Registry, timeout time.Duration) *TriggerHandler {
	return &TriggerHandler{registry: registry, timeout: timeout}
}

// RegisterTriggerRoutes registers the trigger ingress routes
func (h *TriggerHandler) RegisterTriggerRoutes(g *echo.Group) {
	var mw []echo.MiddlewareFunc
	if h.timeout > 0 {
		mw = append(mw, eMiddleware.ContextTimeoutWithConfig(eMiddleware.ContextTimeoutConfig{Timeout: h.timeout}))
	}
	g.POST("/firestore", h.HandleFirestoreEvent, mw...)
	g.POST("/storage", h.HandleStorageEvent, mw...)
	g.POST("/schedule/:name", h.RunSchedule, mw...)
}

// HandleFirestoreEvent runs every document trigger matching the event
func (h *TriggerHandler) HandleFirestoreEvent(c echo.Context) error {
	var req FirestoreEventRequest
	if err := c.Bind(&req); err != nil {
		return rejected(c, "", fmt.Errorf("invalid request payload: %w", err))
	}
	if err := c.Validate(&req); err != nil {
		return rejected(c, req.EventID, err)
	}

	outcomes := h.registry.DispatchDocument(c.Request().Context(), triggers.DocumentEvent{
		ID:       req.EventID,
		Type:     req.Type,
		Document: req.Document,
		Before:   req.Before,
		After:    req.After,
	})
	if outcomes == nil {
		outcomes = []triggers.Outcome{}
	}
	return c.JSON(http.StatusOK, TriggerResponse{EventID: req.EventID, Outcomes: outcomes})
}

// HandleStorageEvent runs the upload triggers
func (h *TriggerHandler) HandleStorageEvent(c echo.Context) error {
	var req StorageEventRequest
	if err := c.Bind(&req); err != nil {
		return rejected(c, "", fmt.Errorf("invalid request payload: %w", err))
	}
	if err := c.Validate(&req); err != nil {
		return rejected(c, "", err)
	}

	outcomes := h.registry.DispatchStorage(c.Request().Context(), triggers.StorageObject{
		Bucket:      req.Bucket,
		Name:        req.Name,
		ContentType: req.ContentType,
	})
	if outcomes == nil {
		outcomes = []triggers.Outcome{}
	}
	return c.JSON(http.StatusOK, TriggerResponse{Outcomes: outcomes})
}

// RunSchedule runs a scheduled trigger on demand
func (h *TriggerHandler) RunSchedule(c echo.Context) error {
	name := c.Param("name")
	outcome, ok := h.registry.RunJob(c.Request().Context(), name, time.Now())
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Schedule not found")
	}
	return c.JSON(http.StatusOK, TriggerResponse{Outcomes: []triggers.Outcome{outcome}})
}

func rejected(c echo.Context, eventID string, err error) error {
	out := triggers.Failed(err)
	out.Reason = "invalid-envelope"
	c.Logger().Warnf("trigger envelope rejected: %v", err)
	return c.JSON(http.StatusOK, TriggerResponse{EventID: eventID, Outcomes: []triggers.Outcome{out}})
}
