package statements

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/shared/server/middleware"
	"underwriter-backend/internal/shared/server/respond"
)

const maxUploadSize = 16 << 20 // 16MB across all files in one request

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches statement routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/uploads", h.list)
	rg.POST("/clear-uploads", h.clear)
}

func (h *Handler) upload(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart form with files is required", nil)
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one file is required", nil)
		return
	}

	filePaths := make([]string, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		file, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", gin.H{"file": fh.Filename})
			return
		}

		stored, err := h.Svc.Upload(c.Request.Context(), sessionID, fh.Filename, file)
		file.Close()
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), gin.H{"file": fh.Filename})
			default:
				respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store file", gin.H{"file": fh.Filename})
			}
			return
		}
		filePaths = append(filePaths, stored.StorageKey)
	}

	respond.JSON(c, http.StatusOK, UploadResponse{FilePaths: filePaths})
}

func (h *Handler) list(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	files, err := h.Svc.List(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list uploads", nil)
		return
	}

	resp := make([]FileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, toFileResponse(f))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) clear(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	deleted, err := h.Svc.Clear(c.Request.Context(), sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clear uploads", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"message": "uploads cleared",
		"deleted": deleted,
	})
}
