package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/inventory"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/ports"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/recipe"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/sales"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/domain/repository"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/events"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/memory"
	infamongo "github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/mongo"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/observability"
	infrapdf "github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/pdf"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/infrastructure/postgres"
	httpRouter "github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/interfaces/http"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/config"
	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/pkg/logger"
)

// storage reúne lo que cada driver entrega al resto de la aplicación.
type storage struct {
	tx          ports.TxRunner
	stocks      repository.StockRepository
	adjustments repository.AdjustmentRepository
	sales       repository.SaleRepository
	recipes     repository.RecipeRepository
	ping        func(ctx context.Context) error
	close       func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas OTLP")
	}

	store, err := openStorage(ctx, cfg, zl)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("inicializar almacenamiento")
	}

	var publisher ports.EventPublisher = events.NewLogPublisher(zl)
	var kafkaPublisher *events.KafkaPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher, err = events.NewKafkaPublisher(cfg.Kafka, otel.GetTracerProvider(), zl)
		if err != nil {
			log.Fatal().Err(err).Msg("inicializar publicador Kafka")
		}
		publisher = kafkaPublisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos hacia Kafka")
	}

	taxRate, err := cfg.Ledger.TaxRateDecimal()
	if err != nil {
		log.Fatal().Err(err).Msg("tasa de impuesto")
	}

	resolver := recipe.NewResolver(store.recipes, store.stocks)
	stockUC := inventory.NewStockUseCase(store.tx, store.stocks, log.Component("stock"))
	adjustmentUC := inventory.NewAdjustmentUseCase(store.tx, store.stocks, store.adjustments, publisher, log.Component("inventory"), cfg.Ledger.MaxRetries)
	lowStockUC := inventory.NewLowStockUseCase(store.stocks)
	recipeUC := recipe.NewUseCase(store.recipes, store.stocks, log.Component("recipes"))
	saleUC := sales.NewSaleUseCase(store.tx, store.stocks, store.sales, resolver, publisher, log.Component("sales"), sales.Config{
		TaxRate:      taxRate,
		MaxRetries:   cfg.Ledger.MaxRetries,
		NumberPrefix: cfg.Ledger.SaleNumberPrefix,
		NumberWidth:  cfg.Ledger.SaleNumberWidth,
	})

	// PDF: comprobante imprimible de la venta
	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	receiptUC := sales.NewReceiptUseCase(store.sales, pdfGenerator, cfg.Ledger.BusinessName)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(zl),
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(zl))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Macanudo Stock Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		StockUC:      stockUC,
		AdjustmentUC: adjustmentUC,
		LowStockUC:   lowStockUC,
		SaleUC:       saleUC,
		ReceiptUC:    receiptUC,
		RecipeUC:     recipeUC,
		JWTSecret:    cfg.JWT.Secret,
		Log:          zl,
		Ping:         store.ping,
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
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar publicador Kafka")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("vaciar trazas pendientes")
	}
	if err := store.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cerrar almacenamiento")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("esquema PostgreSQL al día")
		}
		return &storage{
			tx:          postgres.NewTxRunner(pool),
			stocks:      postgres.NewStockRepository(pool),
			adjustments: postgres.NewAdjustmentRepository(pool),
			sales:       postgres.NewSaleRepository(pool),
			recipes:     postgres.NewRecipeRepository(pool),
			ping:        pool.Ping,
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.StoreDriverMongo:
		store, err := infamongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		if !store.Atomic() {
			log.Warn().Msg("MongoDB sin transacciones: una venta interrumpida puede requerir reconciliación manual")
		}
		return &storage{
			tx:          store,
			stocks:      store.Stocks(),
			adjustments: store.Adjustments(),
			sales:       store.Sales(),
			recipes:     store.Recipes(),
			ping:        store.Ping,
			close:       store.Close,
		}, nil

	case config.StoreDriverMemory:
		store := memory.New()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return &storage{
			tx:          store,
			stocks:      store.Stocks(),
			adjustments: store.Adjustments(),
			sales:       store.Sales(),
			recipes:     store.Recipes(),
			close:       func(context.Context) error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("driver de almacenamiento desconocido: %q", cfg.Store.Driver)
}
