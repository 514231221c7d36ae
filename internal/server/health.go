package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/internal/version"
)

const pingTimeout = 5 * time.Second

// HealthHandler reports service and database health.
type HealthHandler struct {
	db      *bun.DB
	startAt time.Time
}

func NewHealthHandler(db *bun.DB) *HealthHandler {
	return &HealthHandler{db: db, startAt: time.Now()}
}

type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health handles GET /health. It answers 503 when the database does not
// respond to a ping.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
	defer cancel()

	db := Check{Status: "healthy"}
	if err := h.db.PingContext(ctx); err != nil {
		db = Check{Status: "unhealthy", Message: err.Error()}
	}

	resp := HealthResponse{
		Status:    db.Status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks:    map[string]Check{"database": db},
	}

	status := http.StatusOK
	if db.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// Healthz handles GET /healthz, a liveness probe that never touches the database.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// RegisterRoutes registers the health probes and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
