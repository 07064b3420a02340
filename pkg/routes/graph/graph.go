package graph

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
)

// AliasFinder looks up the user ids resolved to the same real user
type AliasFinder interface {
	Aliases(ctx context.Context, runID, userID string) ([]string, error)
}

// Handler handles identity graph query endpoints
type Handler struct {
	finder AliasFinder
	logger ectologger.Logger
}

func NewHandler(finder AliasFinder, logger ectologger.Logger) *Handler {
	return &Handler{
		finder: finder,
		logger: logger,
	}
}

// Register registers the graph routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/runs/:run_id/users/:user_id/aliases", h.Aliases)
}

// AliasesResponse lists every user id of one real user
type AliasesResponse struct {
	RunID   string   `json:"run_id"`
	UserID  string   `json:"user_id"`
	Aliases []string `json:"aliases"`
}

// Aliases returns the user ids sharing a real user with the given user in a run
// GET /api/v1/graph/runs/:run_id/users/:user_id/aliases
func (h *Handler) Aliases(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")
	userID := c.Param("user_id")

	aliases, err := h.finder.Aliases(ctx, runID, userID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("run_id", runID).Error("Failed to find aliases")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to query identity graph")
	}
	if len(aliases) == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "user not found in run").
			AddMetaValue("run_id", runID).
			AddMetaValue("user_id", userID)
	}

	return c.JSON(http.StatusOK, AliasesResponse{
		RunID:   runID,
		UserID:  userID,
		Aliases: aliases,
	})
}
