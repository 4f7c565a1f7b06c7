package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/inventory"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/infrastructure/jobcost"
	"github.com/jhoicas/taller-compras/internal/infrastructure/outbox"
	infrapdf "github.com/jhoicas/taller-compras/internal/infrastructure/pdf"
	"github.com/jhoicas/taller-compras/internal/infrastructure/postgres"
	"github.com/jhoicas/taller-compras/internal/infrastructure/redisinfra"
	httpRouter "github.com/jhoicas/taller-compras/internal/interfaces/http"
	"github.com/jhoicas/taller-compras/pkg/config"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(pool, log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	// Redis opcional: candado de recepción por OC e invalidación de caché.
	var (
		locker procurement.OrderLocker
		cache  procurement.CacheInvalidator
	)
	if cfg.Redis.Enabled() {
		rdb, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = redisinfra.NewReceiptLocker(rdb, cfg.Procurement.ReceiptLockTTL, log)
		cache = redisinfra.NewTagInvalidator(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: recepciones sin candado distribuido y sin invalidación de caché")
	}

	var hook procurement.JobCostHook = jobcost.Noop{}
	if cfg.JobCost.WebhookURL != "" {
		hook = jobcost.NewWebhookClient(cfg.JobCost.WebhookURL, cfg.JobCost.Timeout)
	}

	txRunner := postgres.NewTxRunner(pool)
	guard := authz.NewRoleGuard(cfg.Procurement.WriteRoles)
	currencies := procurement.NewCatalogCurrencyValidator(
		postgres.NewCurrencyRepository(pool), cfg.Procurement.DefaultCurrency, log,
	)
	pdfGenerator := infrapdf.NewMarotoPDFGenerator(cfg.App.Name)

	requisitionUC := procurement.NewRequisitionUseCase(txRunner, guard, currencies, cache, log)
	orderUC := procurement.NewOrderUseCase(txRunner, guard, currencies, pdfGenerator, cache, log)
	receivingUC := procurement.NewReceivingUseCase(txRunner, guard, hook, locker, cache, log)
	recalcUC := procurement.NewCostRecalculator(txRunner, guard, cache, log)
	registerMovementUC := inventory.NewRegisterMovementUseCase(txRunner, guard, log)

	dispatcher := outbox.NewDispatcher(txRunner, hook, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
	}, log)
	dispatcher.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Taller Compras API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Requisitions:     requisitionUC,
		Orders:           orderUC,
		Receiving:        receivingUC,
		CostRecalculator: recalcUC,
		RegisterMovement: registerMovementUC,
		JWTSecret:        cfg.JWT.Secret,
		Logger:           log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del despachador de outbox")
	}

	log.Info().Msg("aplicación detenida")
}
