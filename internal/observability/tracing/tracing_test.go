package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSafeAttributesDropsContactData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("document.type", "invoice"),
		attribute.String("customer.email", "owner@example.com"),
		attribute.String("customer_phone", "555"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("document.type"), attrs[0].Key)
}

func TestSafeErrorKeepsFirstLine(t *testing.T) {
	err := SafeError(errors.New("smtp: 550 rejected\nRCPT TO:<a@b.c>"))
	assert.EqualError(t, err, "smtp: 550 rejected")
	assert.Nil(t, SafeError(nil))
}

func TestGinMiddlewareRecordsRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/estimates/:id", func(c *gin.Context) {
		c.Set("document_type", "estimate")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/estimates/42", nil))

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, "HTTP GET /api/estimates/:id", spans[0].Name())
		found := false
		for _, attr := range spans[0].Attributes() {
			if attr.Key == "document.id" {
				found = attr.Value.AsString() == "42"
			}
		}
		assert.True(t, found)
	}
}

func TestGinMiddlewareMarksServerErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/invoices/:id/send-email", func(c *gin.Context) {
		_ = c.Error(errors.New("smtp: 451 try later\nRCPT TO:<owner@example.com>"))
		c.Status(http.StatusBadGateway)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/invoices/9/send-email", nil))

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, codes.Error, spans[0].Status().Code)
		if assert.Len(t, spans[0].Events(), 1) {
			for _, attr := range spans[0].Events()[0].Attributes {
				if attr.Key == "exception.message" {
					assert.Equal(t, "smtp: 451 try later", attr.Value.AsString())
				}
			}
		}
	}
}
