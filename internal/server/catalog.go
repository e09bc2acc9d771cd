package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"go.uber.org/zap"
)

func (s *Server) CreateCatalogItem(c *gin.Context) {
	var req catalogdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.catalogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditCatalogItem(c, "catalog_item.create", resp)
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCatalogItems(c *gin.Context) {
	var query struct {
		Kind   string `form:"kind"`
		Name   string `form:"name"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.catalogSvc.List(c.Request.Context(), catalogdomain.ListRequest{
		Kind:   strings.TrimSpace(query.Kind),
		Name:   strings.TrimSpace(query.Name),
		Active: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCatalogItem(c *gin.Context) {
	resp, err := s.catalogSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCatalogItem(c *gin.Context) {
	var req catalogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.catalogSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditCatalogItem(c, "catalog_item.update", resp)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) auditCatalogItem(c *gin.Context, action string, item *catalogdomain.Response) {
	if s.auditSvc == nil || item == nil {
		return
	}
	targetID := item.ID
	err := s.auditSvc.AuditLog(c.Request.Context(), "", nil, action, "catalog_item", &targetID, map[string]any{
		"code":       item.Code,
		"kind":       string(item.Kind),
		"unit_price": item.UnitPrice.String(),
	})
	if err != nil {
		s.log.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
