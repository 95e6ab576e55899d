package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-midea/functions/internal/triggers"
)

// HealthResponse reports what the instance is able to serve
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Triggers  int    `json:"triggers"`
	Schedules int    `json:"schedules"`
	Receipts  bool   `json:"receipts"`
	Catalog   bool   `json:"catalog"`
}

// HealthHandler answers liveness probes
type HealthHandler struct {
	registry *triggers.Registry
	receipts bool
	catalog  bool
}

// NewHealthHandler creates a new HealthHandler. receipts and catalog tell
// whether the optional Postgres and Mongo stores are connected.
func NewHealthHandler(registry *triggers.Registry, receipts, catalog bool) *HealthHandler {
	return &HealthHandler{registry: registry, receipts: receipts, catalog: catalog}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "event-functions",
		Triggers:  len(h.registry.Descriptors()),
		Schedules: len(h.registry.Schedules()),
		Receipts:  h.receipts,
		Catalog:   h.catalog,
	})
}
