package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
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
	"github.com/warebill/warebill/internal/types"
	"github.com/warebill/warebill/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	ProjectRepo     project.Repository
	BillingRuleRepo billingrule.Repository
	MasterRuleRepo  masterrule.Repository
	PerformanceRepo performance.Repository
	PriceListRepo   pricelist.Repository
	InvoiceRepo     invoice.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	cache  cache.Cache
	locks  *periodlock.Manager
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	ctx := context.Background()
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	s.ctx = types.SetRequestID(ctx, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		ProjectRepo:     NewInMemoryProjectStore(),
		BillingRuleRepo: NewInMemoryBillingRuleStore(),
		MasterRuleRepo:  NewInMemoryMasterRuleStore(),
		PerformanceRepo: NewInMemoryPerformanceStore(),
		PriceListRepo:   NewInMemoryPriceListStore(),
		InvoiceRepo:     NewInMemoryInvoiceStore(),
	}

	s.db = NewMockPostgresClient()
	s.cache = cache.NewInMemoryCache()
	s.locks = periodlock.NewManager()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.ProjectRepo.(*InMemoryProjectStore).Clear()
	s.stores.BillingRuleRepo.(*InMemoryBillingRuleStore).Clear()
	s.stores.MasterRuleRepo.(*InMemoryMasterRuleStore).Clear()
	s.stores.PerformanceRepo.(*InMemoryPerformanceStore).Clear()
	s.stores.PriceListRepo.(*InMemoryPriceListStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
}

// ClearStores clears all test data mid-test
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock postgres client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLocks returns the period lock manager
func (s *BaseServiceTestSuite) GetLocks() *periodlock.Manager {
	return s.locks
}

// GetNow returns the time when the current test started
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
