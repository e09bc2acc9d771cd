package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	deliverydomain "github.com/smallbiznis/fieldbook/internal/delivery/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
)

// DocumentPDF streams the rendered document inline.
func (s *Server) DocumentPDF(t document.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.deliverySvc.RenderPDF(c.Request.Context(), deliverydomain.RenderRequest{
			DocumentType: string(t),
			ID:           c.Param("id"),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", resp.Filename))
		c.Data(http.StatusOK, resp.ContentType, resp.Data)
	}
}

// SendDocumentEmail mails the document PDF. The body is optional.
func (s *Server) SendDocumentEmail(t document.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deliverydomain.SendEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			AbortWithError(c, bindError(err))
			return
		}
		req.DocumentType = string(t)
		req.ID = c.Param("id")

		resp, err := s.deliverySvc.SendEmail(c.Request.Context(), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}
