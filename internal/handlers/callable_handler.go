package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/functions/internal/models"
	"github.com/anonto42/nano-midea/functions/internal/repositories"
)

// Callable error statuses, as understood by the client SDKs.
const (
	StatusInvalidArgument = "INVALID_ARGUMENT"
	StatusNotFound        = "NOT_FOUND"
	StatusInternal        = "INTERNAL"
	StatusUnauthenticated = "UNAUTHENTICATED"
)

// CallableError is the error body of a synchronous call
type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type callableErrorResponse struct {
	Error CallableError `json:"error"`
}

type callableResponse struct {
	Result any `json:"result"`
}

// CallableHandler serves synchronous calls. Unlike triggers, failures are
// returned to the caller.
type CallableHandler struct {
	userRepository repositories.UserRepository
	now            func() time.Time
	log            *slog.Logger
}

// NewCallableHandler creates a new CallableHandler
func NewCallableHandler(userRepo repositories.UserRepository, log *slog.Logger) *CallableHandler {
	return &CallableHandler{userRepository: userRepo, now: time.Now, log: log}
}

// RegisterCallableRoutes registers the callable routes
func (h *CallableHandler) RegisterCallableRoutes(g *echo.Group) {
	g.POST("/:name", h.Call)
}

// Call dispatches on the function name
func (h *CallableHandler) Call(c echo.Context) error {
	switch c.Param("name") {
	case "updateUserMetrics":
		return h.UpdateUserMetrics(c)
	}
	return callableError(c, http.StatusNotFound, StatusNotFound, "Unknown function "+c.Param("name"))
}

// UpdateUserMetrics bumps one activity counter of a user
func (h *CallableHandler) UpdateUserMetrics(c echo.Context) error {
	var req models.UpdateUserMetricsRequest
	if err := bindCallable(c, &req); err != nil {
		return callableError(c, http.StatusBadRequest, StatusInvalidArgument, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return callableError(c, http.StatusBadRequest, StatusInvalidArgument, err.Error())
	}

	field, ok := models.MetricType(req.MetricType).Field()
	if !ok {
		return callableError(c, http.StatusBadRequest, StatusInvalidArgument, "Unknown metric type: "+req.MetricType)
	}
	by := int64(1)
	if req.IncrementBy != nil {
		by = *req.IncrementBy
	}

	err := h.userRepository.IncrementMetric(c.Request().Context(), req.UserID, field, by, h.now())
	if err != nil {
		h.log.Error("update_user_metrics_failed", "user_id", req.UserID, "metric", req.MetricType, "error", err)
		return callableError(c, http.StatusInternalServerError, StatusInternal, err.Error())
	}

	h.log.Info("user_metrics_updated", "user_id", req.UserID, "metric", req.MetricType, "by", by)
	return c.JSON(http.StatusOK, callableResponse{Result: map[string]bool{"success": true}})
}

// bindCallable decodes the request, accepting both the {"data": {...}}
// envelope of the client SDKs and a bare payload.
func bindCallable(c echo.Context, v any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	return json.Unmarshal(body, v)
}

func callableError(c echo.Context, code int, status, message string) error {
	return c.JSON(code, callableErrorResponse{Error: CallableError{Status: status, Message: message}})
}
