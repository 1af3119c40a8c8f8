package underwriting

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/shared/server/middleware"
	"underwriter-backend/internal/shared/server/respond"
	"underwriter-backend/internal/statements"
	"underwriter-backend/internal/usage"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches underwriting routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/underwrite", h.underwrite)
	rg.GET("/status", h.status)
	rg.GET("/runs", h.list)
	rg.GET("/runs/:id", h.get)
}

func (h *Handler) underwrite(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	run, err := h.Svc.Underwrite(c.Request.Context(), sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNonContiguous):
			// The error document format is part of the API: the gap
			// list rides in details, never inside an envelope.
			body := gin.H{"error": err.Error()}
			if run.Result != nil {
				body["error"] = run.Result.Error
				body["details"] = run.Result.Details
			}
			c.JSON(http.StatusUnprocessableEntity, body)
		case errors.Is(err, usage.ErrLimitReached):
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "underwriting run quota exhausted", nil)
		case errors.Is(err, ErrInvalidInput), errors.Is(err, statements.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, statements.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "underwriting_failed", err.Error(), gin.H{"run_id": run.ID})
		}
		return
	}

	respond.JSON(c, http.StatusOK, run.Result)
}

// status streams progress events as server-sent events. With ?run=<id> the
// stream closes itself after that run's terminal event; otherwise it stays
// open until the client goes away.
func (h *Handler) status(c *gin.Context) {
	runID := c.Query("run")
	events, cancel := h.Svc.Hub.Subscribe(runID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("message", ev)
			return !(runID != "" && ev.Terminal())
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) list(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	runs, err := h.Svc.ListRuns(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list runs", nil)
		return
	}

	resp := make([]gin.H, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, gin.H{
			"id":        run.ID,
			"provider":  run.Provider,
			"model":     run.Model,
			"status":    run.Status,
			"createdAt": run.CreatedAt,
		})
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	run, err := h.Svc.GetRun(c.Request.Context(), sessionID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "run not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch run", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, run)
}
