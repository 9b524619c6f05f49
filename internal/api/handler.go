package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rollcall/internal/logging"
	"rollcall/internal/registry"
	"rollcall/internal/review"
	"rollcall/internal/services"
	"rollcall/internal/workspaces"
)

// PendingLister reads the unresolved queue.
type PendingLister interface {
	ListUnresolved(ctx context.Context, filter registry.UnresolvedFilter) ([]registry.UnresolvedRecord, error)
}

// WorkspaceReader reads stored review runs.
type WorkspaceReader interface {
	Load(id string) (*review.Workspace, error)
	List() ([]workspaces.Entry, error)
}

// Handler serves the read-only HTTP surface.
type Handler struct {
	Pending    PendingLister
	Workspaces WorkspaceReader
	Logger     *slog.Logger
}

// Router builds a gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	group := r.Group("/api")
	group.GET("/health", h.Health)
	group.GET("/pending", h.ListPending)
	group.GET("/workspaces", h.ListWorkspaces)
	group.GET("/workspaces/:id", h.GetWorkspace)
	return r
}

func (h *Handler) log() *slog.Logger {
	return logging.NewComponentLogger(h.Logger, "api")
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	logger := h.log()
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("request served",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()))
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListPending returns NotFound and Doubt participants awaiting resolution.
func (h *Handler) ListPending(c *gin.Context) {
	filter := registry.UnresolvedFilter{TrainingID: strings.TrimSpace(c.Query("training"))}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := registry.ParseUnresolvedStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown status " + raw, Kind: "validation"})
			return
		}
		filter.Status = status
	}
	records, err := h.Pending.ListUnresolved(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := PendingListResponse{Items: make([]PendingEntry, 0, len(records))}
	for _, rec := range records {
		resp.Items = append(resp.Items, FromUnresolved(rec))
	}
	c.JSON(http.StatusOK, resp)
}

// ListWorkspaces returns stored review runs, newest first.
func (h *Handler) ListWorkspaces(c *gin.Context) {
	entries, err := h.Workspaces.List()
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := WorkspaceListResponse{Items: make([]WorkspaceItem, 0, len(entries))}
	for _, e := range entries {
		resp.Items = append(resp.Items, FromEntry(e))
	}
	c.JSON(http.StatusOK, resp)
}

// GetWorkspace returns the summary and participants of one run.
func (h *Handler) GetWorkspace(c *gin.Context) {
	ws, err := h.Workspaces.Load(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromWorkspace(ws))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(h.log(), "api request failed", "api_request_failed",
			logging.String("path", c.Request.URL.Path),
			logging.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: services.Kind(err)})
}
