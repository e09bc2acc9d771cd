package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/smallbiznis/fieldbook/internal/conversion/domain"
	servicecalldomain "github.com/smallbiznis/fieldbook/internal/servicecall/domain"
)

func (s *Server) CreateServiceCall(c *gin.Context) {
	var req servicecalldomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.serviceCallSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListServiceCalls(c *gin.Context) {
	filter, err := bindDocumentFilter(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.serviceCallSvc.List(c.Request.Context(), servicecalldomain.ListRequest{
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

	c.JSON(http.StatusOK, gin.H{"data": resp.ServiceCalls, "page_info": resp.PageInfo})
}

func (s *Server) GetServiceCall(c *gin.Context) {
	resp, err := s.serviceCallSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateServiceCall(c *gin.Context) {
	var req servicecalldomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.serviceCallSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionServiceCall(c *gin.Context) {
	var req servicecalldomain.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.serviceCallSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GenerateServiceCallInvoice(c *gin.Context) {
	resp, err := s.conversionSvc.FromServiceCall(c.Request.Context(), conversiondomain.FromServiceCallRequest{
		ServiceCallID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
