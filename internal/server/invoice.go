package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/smallbiznis/fieldbook/internal/conversion/domain"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	req, err := bindInvoiceList(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	item, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionInvoice(c *gin.Context) {
	var req invoicedomain.TransitionInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.invoiceSvc.Transition(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) MarkInvoicesOverdue(c *gin.Context) {
	var req invoicedomain.MarkOverdueRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.MarkOverdue(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportInvoices(c *gin.Context) {
	req, err := bindInvoiceList(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.invoiceSvc.Export(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", s.clock.Now().UTC().Format(time.DateOnly))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// InvoiceFromChangeOrder bills an approved change order. The body is optional;
// without a percentage the whole change order is invoiced.
func (s *Server) InvoiceFromChangeOrder(c *gin.Context) {
	var req conversiondomain.FromChangeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, bindError(err))
		return
	}
	req.ChangeOrderID = c.Param("changeOrderId")

	resp, err := s.conversionSvc.FromChangeOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func bindInvoiceList(c *gin.Context) (invoicedomain.ListInvoiceRequest, error) {
	filter, err := bindDocumentFilter(c)
	if err != nil {
		return invoicedomain.ListInvoiceRequest{}, err
	}
	return invoicedomain.ListInvoiceRequest{
		Pagination:  filter.Pagination,
		Status:      filter.Status,
		CustomerRef: filter.CustomerRef,
		ProjectRef:  filter.ProjectRef,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
	}, nil
}
