package reports

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/internal/repositories/report"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Store reads persisted reports
type Store interface {
	Get(ctx context.Context, runID string) (*models.Report, error)
	List(ctx context.Context, limit int) ([]report.Summary, error)
	DailyRevenue(ctx context.Context, runID string) ([]models.DayRevenue, error)
}

// Handler serves reports from the report store
type Handler struct {
	store  Store
	logger ectologger.Logger
}

func NewHandler(store Store, logger ectologger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Register registers the report routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:run_id", h.Get)
	g.GET("/:run_id/daily", h.Daily)
}

// ListResponse is a page of stored report headlines, newest first
type ListResponse struct {
	Reports []report.Summary `json:"reports"`
	Count   int              `json:"count"`
}

// List returns the most recent stored reports
// GET /api/v1/reports
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(parsed, maxLimit)
	}

	summaries, err := h.store.List(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Reports: summaries,
		Count:   len(summaries),
	})
}

// Get returns a stored report
// GET /api/v1/reports/:run_id
func (h *Handler) Get(c echo.Context) error {
	rep, err := h.store.Get(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}

// Daily returns the stored daily revenue series of a report
// GET /api/v1/reports/:run_id/daily
func (h *Handler) Daily(c echo.Context) error {
	runID := c.Param("run_id")
	ctx := c.Request().Context()

	if _, err := h.store.Get(ctx, runID); err != nil {
		return err
	}

	daily, err := h.store.DailyRevenue(ctx, runID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":    runID,
		"daily": daily,
	})
}
