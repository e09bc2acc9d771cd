package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	estimatedomain "github.com/smallbiznis/fieldbook/internal/estimate/domain"
)

func (s *Server) CreateEstimate(c *gin.Context) {
	var req estimatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.estimateSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListEstimates(c *gin.Context) {
	filter, err := bindDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.estimateSvc.List(c.Request.Context(), estimatedomain.ListRequest{
		Pagination:  filter.Pagination,
		Status:      filter.Status,
		CustomerRef: filter.CustomerRef,
		ProjectRef:  filter.ProjectRef,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Estimates, "page_info": resp.PageInfo})
}

func (s *Server) GetEstimate(c *gin.Context) {
	resp, err := s.estimateSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateEstimate(c *gin.Context) {
	var req estimatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.estimateSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionEstimate(c *gin.Context) {
	var req estimatedomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.estimateSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
