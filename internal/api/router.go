package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/warebill/warebill/internal/api/v1"
	"github.com/warebill/warebill/internal/rest/middleware"
	"golang.org/x/time/rate"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Project     *v1.ProjectHandler
	BillingRule *v1.BillingRuleHandler
	MasterRule  *v1.MasterRuleHandler
	PriceList   *v1.PriceListHandler
	Performance *v1.PerformanceHandler
	Invoice     *v1.InvoiceHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RateLimiter(rate.Limit(50), 100))

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	projects := router.Group("/projects")
	{
		projects.POST("", handlers.Project.CreateProject)
		projects.GET("", handlers.Project.ListProjects)
		projects.GET("/:id", handlers.Project.GetProject)
		projects.PUT("/:id", handlers.Project.UpdateProject)
	}

	rules := router.Group("/project-billing-rules")
	{
		rules.POST("", handlers.BillingRule.CreateBillingRule)
		rules.GET("", handlers.BillingRule.ListBillingRules)
		rules.GET("/:id", handlers.BillingRule.GetBillingRule)
		rules.PUT("/:id", handlers.BillingRule.UpdateBillingRule)
		rules.DELETE("/:id", handlers.BillingRule.DeleteBillingRule)
	}

	masterRules := router.Group("/master-billing-rules")
	{
		masterRules.POST("", handlers.MasterRule.CreateMasterRule)
		masterRules.GET("", handlers.MasterRule.ListMasterRules)
		masterRules.GET("/:id", handlers.MasterRule.GetMasterRule)
		masterRules.PUT("/:id", handlers.MasterRule.UpdateMasterRule)
		masterRules.DELETE("/:id", handlers.MasterRule.DeleteMasterRule)
	}

	priceLists := router.Group("/price-lists")
	{
		priceLists.POST("", handlers.PriceList.CreateEntry)
		priceLists.GET("", handlers.PriceList.ListEntries)
	}

	performance := router.Group("/performance")
	{
		performance.POST("", handlers.Performance.IngestRecords)
		performance.GET("", handlers.Performance.ListRecords)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("/preview", handlers.Invoice.PreviewInvoice)
		invoices.POST("/generate", handlers.Invoice.GenerateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PATCH("/:id/approve", handlers.Invoice.ApproveInvoice)
		invoices.PATCH("/:id/send", handlers.Invoice.MarkInvoiceSent)
		invoices.PATCH("/:id/pay", handlers.Invoice.MarkInvoicePaid)
		invoices.PATCH("/:id/cancel", handlers.Invoice.CancelInvoice)
	}
}
