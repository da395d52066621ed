// Package http 重复检测 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fundraisehq/donorcrm/internal/dedup/application"
	"github.com/fundraisehq/donorcrm/internal/dedup/domain"
)

type Handler struct {
	scan       *application.ScanService
	resolution *application.ResolutionService
	matches    domain.DuplicateMatchRepository
}

func NewHandler(scan *application.ScanService, resolution *application.ResolutionService, matches domain.DuplicateMatchRepository) *Handler {
	return &Handler{scan: scan, resolution: resolution, matches: matches}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/duplicates")
	{
		g.POST("/scan", h.ScanTenant)
		g.GET("", h.ListMatches)
		g.POST("/:id/merge", h.MergeMatch)
		g.POST("/:id/ignore", h.IgnoreMatch)
	}
}

type ScanReq struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

func (h *Handler) ScanTenant(c *gin.Context) {
	var req ScanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.scan.ScanTenant(c.Request.Context(), req.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListMatches(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}
	unresolvedOnly := c.DefaultQuery("unresolved", "true") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	matches, total, err := h.matches.ListByTenant(c.Request.Context(), tenantID, unresolvedOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches":   matches,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

type MergeReq struct {
	PrimaryContactID uint   `json:"primary_contact_id" binding:"required"`
	ReviewedBy       string `json:"reviewed_by"`
}

func (h *Handler) MergeMatch(c *gin.Context) {
	matchID, ok := parseID(c)
	if !ok {
		return
	}

	var req MergeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "primary_contact_id is required"})
		return
	}

	match, err := h.resolution.Merge(c.Request.Context(), matchID, req.PrimaryContactID, req.ReviewedBy)
	if err != nil {
		h.resolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": match})
}

type IgnoreReq struct {
	ReviewedBy string `json:"reviewed_by"`
}

func (h *Handler) IgnoreMatch(c *gin.Context) {
	matchID, ok := parseID(c)
	if !ok {
		return
	}

	var req IgnoreReq
	_ = c.ShouldBindJSON(&req)

	match, err := h.resolution.Ignore(c.Request.Context(), matchID, req.ReviewedBy)
	if err != nil {
		h.resolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"match": match})
}

func (h *Handler) resolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyResolved), errors.Is(err, domain.ErrPrimaryNotInPair):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duplicate id"})
		return 0, false
	}
	return uint(id), true
}
