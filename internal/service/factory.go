package service

import (
	"github.com/warebill/warebill/internal/cache"
	"github.com/warebill/warebill/internal/config"
	"github.com/warebill/warebill/internal/domain/billingrule"
	"github.com/warebill/warebill/internal/domain/invoice"
	"github.com/warebill/warebill/internal/domain/masterrule"
	"github.com/warebill/warebill/internal/domain/performance"
	"github.com/warebill/warebill/internal/domain/pricelist"
	"github.com/warebill/warebill/internal/domain/project"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/periodlock"
	"github.com/warebill/warebill/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Locks  *periodlock.Manager

	// Repositories
	ProjectRepo     project.Repository
	BillingRuleRepo billingrule.Repository
	MasterRuleRepo  masterrule.Repository
	PerformanceRepo performance.Repository
	PriceListRepo   pricelist.Repository
	InvoiceRepo     invoice.Repository
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	c cache.Cache,
	locks *periodlock.Manager,
	projectRepo project.Repository,
	billingRuleRepo billingrule.Repository,
	masterRuleRepo masterrule.Repository,
	performanceRepo performance.Repository,
	priceListRepo pricelist.Repository,
	invoiceRepo invoice.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          cfg,
		DB:              db,
		Cache:           c,
		Locks:           locks,
		ProjectRepo:     projectRepo,
		BillingRuleRepo: billingRuleRepo,
		MasterRuleRepo:  masterRuleRepo,
		PerformanceRepo: performanceRepo,
		PriceListRepo:   priceListRepo,
		InvoiceRepo:     invoiceRepo,
	}
}
