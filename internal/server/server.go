package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fieldbook/internal/audit"
	auditdomain "github.com/smallbiznis/fieldbook/internal/audit/domain"
	"github.com/smallbiznis/fieldbook/internal/catalog"
	catalogdomain "github.com/smallbiznis/fieldbook/internal/catalog/domain"
	"github.com/smallbiznis/fieldbook/internal/changeorder"
	changeorderdomain "github.com/smallbiznis/fieldbook/internal/changeorder/domain"
	"github.com/smallbiznis/fieldbook/internal/clock"
	"github.com/smallbiznis/fieldbook/internal/config"
	"github.com/smallbiznis/fieldbook/internal/conversion"
	conversiondomain "github.com/smallbiznis/fieldbook/internal/conversion/domain"
	"github.com/smallbiznis/fieldbook/internal/customer"
	customerdomain "github.com/smallbiznis/fieldbook/internal/customer/domain"
	"github.com/smallbiznis/fieldbook/internal/delivery"
	deliverydomain "github.com/smallbiznis/fieldbook/internal/delivery/domain"
	"github.com/smallbiznis/fieldbook/internal/document"
	"github.com/smallbiznis/fieldbook/internal/document/compose"
	"github.com/smallbiznis/fieldbook/internal/estimate"
	estimatedomain "github.com/smallbiznis/fieldbook/internal/estimate/domain"
	"github.com/smallbiznis/fieldbook/internal/invoice"
	invoicedomain "github.com/smallbiznis/fieldbook/internal/invoice/domain"
	"github.com/smallbiznis/fieldbook/internal/lock"
	"github.com/smallbiznis/fieldbook/internal/observability"
	obsmiddleware "github.com/smallbiznis/fieldbook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fieldbook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fieldbook/internal/observability/tracing"
	"github.com/smallbiznis/fieldbook/internal/providers"
	"github.com/smallbiznis/fieldbook/internal/ratelimit"
	"github.com/smallbiznis/fieldbook/internal/servicecall"
	servicecalldomain "github.com/smallbiznis/fieldbook/internal/servicecall/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	lock.Module,
	ratelimit.Module,
	providers.Module,
	audit.Module,
	catalog.Module,
	customer.Module,
	compose.Module,
	estimate.Module,
	changeorder.Module,
	invoice.Module,
	servicecall.Module,
	conversion.Module,
	delivery.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORS(cfg))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	clock  clock.Clock
	log    *zap.Logger

	estimateSvc    estimatedomain.Service
	changeOrderSvc changeorderdomain.Service
	invoiceSvc     invoicedomain.Service
	serviceCallSvc servicecalldomain.Service
	conversionSvc  conversiondomain.Service
	deliverySvc    deliverydomain.Service
	catalogSvc     catalogdomain.Service
	customerSvc    customerdomain.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Clock          clock.Clock
	Log            *zap.Logger `optional:"true"`
	EstimateSvc    estimatedomain.Service
	ChangeOrderSvc changeorderdomain.Service
	InvoiceSvc     invoicedomain.Service
	ServiceCallSvc servicecalldomain.Service
	ConversionSvc  conversiondomain.Service
	DeliverySvc    deliverydomain.Service
	CatalogSvc     catalogdomain.Service
	CustomerSvc    customerdomain.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		clock:  p.Clock,
		log:    log.Named("server"),

		estimateSvc:    p.EstimateSvc,
		changeOrderSvc: p.ChangeOrderSvc,
		invoiceSvc:     p.InvoiceSvc,
		serviceCallSvc: p.ServiceCallSvc,
		conversionSvc:  p.ConversionSvc,
		deliverySvc:    p.DeliverySvc,
		catalogSvc:     p.CatalogSvc,
		customerSvc:    p.CustomerSvc,
		auditSvc:       p.AuditSvc,
	}

	s.registerAPIRoutes()
	s.registerFallback()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	estimates := api.Group("/estimates", DocumentType(document.TypeEstimate))
	{
		estimates.POST("", s.CreateEstimate)
		estimates.GET("", s.ListEstimates)
		estimates.GET("/:id", s.GetEstimate)
		estimates.PUT("/:id", s.UpdateEstimate)
		estimates.POST("/:id/status", s.TransitionEstimate)
		estimates.GET("/:id/pdf", s.DocumentPDF(document.TypeEstimate))
		estimates.POST("/:id/send-email", s.SendDocumentEmail(document.TypeEstimate))
	}

	changeOrders := api.Group("/change-orders", DocumentType(document.TypeChangeOrder))
	{
		changeOrders.POST("", s.CreateChangeOrder)
		changeOrders.GET("", s.ListChangeOrders)
		changeOrders.GET("/:id", s.GetChangeOrder)
		changeOrders.PUT("/:id", s.UpdateChangeOrder)
		changeOrders.POST("/:id/status", s.TransitionChangeOrder)
		changeOrders.GET("/:id/pdf", s.DocumentPDF(document.TypeChangeOrder))
		changeOrders.POST("/:id/send-email", s.SendDocumentEmail(document.TypeChangeOrder))
	}

	invoices := api.Group("/invoices", DocumentType(document.TypeInvoice))
	{
		invoices.POST("", s.CreateInvoice)
		invoices.GET("", s.ListInvoices)
		invoices.GET("/export", s.ExportInvoices)
		invoices.POST("/mark-overdue", s.MarkInvoicesOverdue)
		invoices.POST("/from-change-order/:changeOrderId", s.InvoiceFromChangeOrder)
		invoices.GET("/:id", s.GetInvoiceByID)
		invoices.PUT("/:id", s.UpdateInvoice)
		invoices.POST("/:id/status", s.TransitionInvoice)
		invoices.GET("/:id/pdf", s.DocumentPDF(document.TypeInvoice))
		invoices.POST("/:id/send-email", s.SendDocumentEmail(document.TypeInvoice))
	}

	serviceCalls := api.Group("/service-calls", DocumentType(document.TypeServiceCall))
	{
		serviceCalls.POST("", s.CreateServiceCall)
		serviceCalls.GET("", s.ListServiceCalls)
		serviceCalls.GET("/:id", s.GetServiceCall)
		serviceCalls.PUT("/:id", s.UpdateServiceCall)
		serviceCalls.POST("/:id/status", s.TransitionServiceCall)
		serviceCalls.POST("/:id/generate-invoice", s.GenerateServiceCallInvoice)
	}

	catalogItems := api.Group("/catalog/items")
	{
		catalogItems.POST("", s.CreateCatalogItem)
		catalogItems.GET("", s.ListCatalogItems)
		catalogItems.GET("/:id", s.GetCatalogItem)
		catalogItems.PUT("/:id", s.UpdateCatalogItem)
	}

	customers := api.Group("/customers")
	{
		customers.POST("", s.CreateCustomer)
		customers.GET("", s.ListCustomers)
		customers.GET("/:id", s.GetCustomerByID)
		customers.PUT("/:id", s.UpdateCustomer)
	}

	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
