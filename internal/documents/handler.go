package documents

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"protectedvision-backend/internal/shared/server/middleware"
	"protectedvision-backend/internal/shared/server/respond"
)

// maxUploadSize allows the 10 MiB file plus multipart framing overhead.
const maxUploadSize = MaxFileSizeBytes + 1<<20

// ScanSource supplies the serialized scans nested under a document detail.
// It keeps the registry decoupled from the scan lifecycle package.
type ScanSource interface {
	ScansForDocument(ctx context.Context, documentID string) (any, error)
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc   *Service
	Scans ScanSource
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, scans ScanSource) *Handler {
	return &Handler{Svc: svc, Scans: scans}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, UploadInput{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		FileName:    fileHeader.Filename,
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	c.Set("documentId", doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	doc, err := h.Svc.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	resp := toResponse(doc)
	if h.Scans != nil {
		scans, err := h.Scans.ScansForDocument(c.Request.Context(), doc.ID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
			return
		}
		resp.Scans = scans
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	q, ok := parseListQuery(c)
	if !ok {
		return
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, q)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if err := h.Svc.Delete(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrPermissionDenied):
			respond.Error(c, http.StatusForbidden, "permission_denied", "you cannot delete documents that don't belong to you", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func parseListQuery(c *gin.Context) (ListQuery, bool) {
	q := ListQuery{Limit: 20}

	if raw := c.Query("fileType"); raw != "" {
		ft, ok := ParseFileType(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileType filter", nil)
			return ListQuery{}, false
		}
		q.FileType = &ft
	}
	if raw := c.Query("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid processed filter", nil)
			return ListQuery{}, false
		}
		q.Processed = &processed
	}
	q.Search = strings.TrimSpace(c.Query("search"))

	// ordering follows the "-column" convention, newest first by default.
	ordering := strings.TrimSpace(c.Query("ordering"))
	if ordering != "" {
		q.Ascending = !strings.HasPrefix(ordering, "-")
		column := strings.TrimPrefix(ordering, "-")
		switch column {
		case "created_at", "updated_at", "title":
			q.OrderBy = column
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid ordering field", nil)
			return ListQuery{}, false
		}
	}

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			q.Limit = parsed
		}
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			q.Offset = parsed
		}
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	return q, true
}
