package runs

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tasks"
)

// Manager starts runs and reports their status
type Manager interface {
	Submit(ctx context.Context, dir string) (*tasks.Task, error)
	Get(ctx context.Context, id string) (*tasks.Task, error)
}

// Handler handles pipeline run API endpoints
type Handler struct {
	manager Manager
	dataDir string
	logger  ectologger.Logger
}

// NewHandler creates a new run handler. Dataset paths resolve against dataDir and may not leave it.
func NewHandler(manager Manager, dataDir string, logger ectologger.Logger) *Handler {
	return &Handler{
		manager: manager,
		dataDir: dataDir,
		logger:  logger,
	}
}

// Register registers the run routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.GET("/:id/daily", h.Daily)
}

// CreateRequest is the request body for starting a run
type CreateRequest struct {
	Dataset string `json:"dataset" validate:"required"`
}

// CreateResponse is returned when a run has been accepted
type CreateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// DailyResponse is the daily revenue series of a finished run
type DailyResponse struct {
	ID    string              `json:"id"`
	Daily []models.DayRevenue `json:"daily"`
}

// Create starts a pipeline run over a dataset directory
// POST /api/v1/runs
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	dir, ok := h.resolve(req.Dataset)
	if !ok {
		return httperror.NewHTTPError(http.StatusBadRequest, "dataset must be a path inside the data directory").
			AddMetaValue("dataset", req.Dataset)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return httperror.NewHTTPError(http.StatusBadRequest, "dataset directory not found").
			AddMetaValue("dataset", req.Dataset)
	}

	task, err := h.manager.Submit(ctx, dir)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to submit run")
		return err
	}

	return c.JSON(http.StatusCreated, CreateResponse{
		ID:     task.ID,
		Status: task.Status,
	})
}

// Get returns the status of a run, with its report once done
// GET /api/v1/runs/:id
func (h *Handler) Get(c echo.Context) error {
	task, err := h.task(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Daily returns the daily revenue series of a finished run
// GET /api/v1/runs/:id/daily
func (h *Handler) Daily(c echo.Context) error {
	task, err := h.task(c)
	if err != nil {
		return err
	}

	switch task.Status {
	case tasks.StatusDone:
		return c.JSON(http.StatusOK, DailyResponse{
			ID:    task.ID,
			Daily: task.Report.DailyRevenue,
		})
	case tasks.StatusFailed:
		code := task.StatusCode
		if code == 0 {
			code = http.StatusInternalServerError
		}
		return httperror.NewHTTPError(code, task.Message).AddMetaValue("id", task.ID)
	default:
		return httperror.NewHTTPError(http.StatusConflict, "run is still in progress").AddMetaValue("id", task.ID)
	}
}

func (h *Handler) task(c echo.Context) (*tasks.Task, error) {
	ctx := c.Request().Context()
	id := c.Param("id")

	task, err := h.manager.Get(ctx, id)
	if errors.Is(err, tasks.ErrTaskNotFound) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "run not found").AddMetaValue("id", id)
	}
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("task_id", id).Error("Failed to get run")
		return nil, err
	}
	return task, nil
}

// resolve places a dataset path under dataDir. Absolute paths and paths escaping dataDir are refused.
func (h *Handler) resolve(dataset string) (string, bool) {
	if filepath.IsAbs(dataset) {
		return "", false
	}
	root := h.dataDir
	if root == "" {
		root = "."
	}

	dir := filepath.Join(root, dataset)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return dir, true
}
