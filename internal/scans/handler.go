package scans

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"protectedvision-backend/internal/shared/server/middleware"
	"protectedvision-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the scans service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches scan routes to the router group, including the
// document-nested scan routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/scans", h.list)
	rg.POST("/scans", h.create)
	rg.GET("/scans/:id", h.get)
	rg.POST("/scans/:id/retry", h.retry)
	rg.GET("/documents/:id/scans", h.listForDocument)
	rg.POST("/documents/:id/request-scan", h.requestScan)
}

type createScanRequest struct {
	DocumentID string `json:"documentId"`
}

func (h *Handler) create(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	if req.DocumentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentId is required", nil)
		return
	}

	h.createForDocument(c, userID, req.DocumentID)
}

func (h *Handler) requestScan(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	h.createForDocument(c, userID, c.Param("id"))
}

func (h *Handler) createForDocument(c *gin.Context, userID, documentID string) {
	scan, err := h.Svc.Create(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDocumentNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrPermissionDenied):
			respond.Error(c, http.StatusForbidden, "permission_denied", "you can only scan documents that belong to you", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create scan", nil)
		}
		return
	}

	c.Set("scanId", scan.ID)
	respond.JSON(c, http.StatusCreated, toResponse(scan, true))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	scanID := c.Param("id")

	scan, err := h.Svc.Get(c.Request.Context(), userID, scanID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "scan not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch scan", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(scan, true))
}

func (h *Handler) retry(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	scanID := c.Param("id")

	scan, err := h.Svc.Retry(c.Request.Context(), userID, scanID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "scan not found", nil)
		case errors.Is(err, ErrInvalidState):
			respond.Error(c, http.StatusConflict, "invalid_state", "only failed scans can be retried", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to retry scan", nil)
		}
		return
	}

	c.Set("scanId", scan.ID)
	c.Set("statusTransition", "failed->pending")
	respond.JSON(c, http.StatusOK, toResponse(scan, true))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	q := ListQuery{Limit: 20}
	if raw := c.Query("riskLevel"); raw != "" {
		risk, ok := ParseRiskLevel(raw)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid riskLevel filter", nil)
			return
		}
		q.RiskLevel = &risk
	}
	if ordering := strings.TrimSpace(c.Query("ordering")); ordering != "" {
		switch ordering {
		case "scan_date":
			q.Ascending = true
		case "-scan_date":
			q.Ascending = false
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid ordering field", nil)
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			q.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			q.Offset = parsed
		}
	}

	list, err := h.Svc.List(c.Request.Context(), userID, q)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list scans", nil)
		return
	}

	resp := make([]ScanResponse, 0, len(list))
	for _, scan := range list {
		resp = append(resp, toResponse(scan, true))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listForDocument(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	list, err := h.Svc.ListForDocument(c.Request.Context(), userID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrDocumentNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list scans", nil)
		}
		return
	}

	resp := make([]ScanResponse, 0, len(list))
	for _, scan := range list {
		resp = append(resp, toResponse(scan, true))
	}
	respond.JSON(c, http.StatusOK, resp)
}
