package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
)

func (s *Server) CreateChangeOrder(c *gin.Context) {
	var req changeorderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.changeOrderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListChangeOrders(c *gin.Context) {
	filter, err := bindDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.changeOrderSvc.List(c.Request.Context(), changeorderdomain.ListRequest{
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

	c.JSON(http.StatusOK, gin.H{"data": resp.ChangeOrders, "page_info": resp.PageInfo})
}

func (s *Server) GetChangeOrder(c *gin.Context) {
	resp, err := s.changeOrderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateChangeOrder(c *gin.Context) {
	var req changeorderdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.changeOrderSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionChangeOrder(c *gin.Context) {
	var req changeorderdomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.changeOrderSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
