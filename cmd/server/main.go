package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/warebill/warebill/internal/api"
	v1 "github.com/warebill/warebill/internal/api/v1"
	"github.com/warebill/warebill/internal/cache"
	"github.com/warebill/warebill/internal/config"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/periodlock"
	"github.com/warebill/warebill/internal/postgres"
	"github.com/warebill/warebill/internal/repository"
	"github.com/warebill/warebill/internal/service"
	"github.com/warebill/warebill/internal/validator"
	"go.uber.org/fx"
)

// @title WareBill API
// @version 1.0
// @description Contract logistics billing engine
// @BasePath /v1
// @schemes http https

func init() {
	// all timestamps are UTC
	time.Local = time.UTC
}

func main() {
	// optional local overrides
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			newCache,
			periodlock.NewManager,

			postgres.NewDB,
			postgres.NewClient,

			repository.NewProjectRepository,
			repository.NewBillingRuleRepository,
			repository.NewMasterRuleRepository,
			repository.NewPerformanceRepository,
			repository.NewPriceListRepository,
			repository.NewInvoiceRepository,

			service.NewServiceParams,
			service.NewProjectService,
			service.NewBillingRuleService,
			service.NewMasterRuleService,
			service.NewPerformanceService,
			service.NewPriceService,
			service.NewBillingService,
			service.NewInvoiceService,

			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)
	app.Run()
}

func newCache() cache.Cache {
	return cache.NewInMemoryCache()
}

func provideHandlers(
	logger *logger.Logger,
	projectService service.ProjectService,
	billingRuleService service.BillingRuleService,
	masterRuleService service.MasterRuleService,
	performanceService service.PerformanceService,
	priceService service.PriceService,
	invoiceService service.InvoiceService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(),
		Project:     v1.NewProjectHandler(projectService, logger),
		BillingRule: v1.NewBillingRuleHandler(billingRuleService, logger),
		MasterRule:  v1.NewMasterRuleHandler(masterRuleService, logger),
		PriceList:   v1.NewPriceListHandler(priceService, logger),
		Performance: v1.NewPerformanceHandler(performanceService, logger),
		Invoice:     v1.NewInvoiceHandler(invoiceService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			db.Close()
			return nil
		},
	})
}
