package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cinema-reservation-api/internal/cache"
	"github.com/iliyamo/cinema-reservation-api/internal/config"
	"github.com/iliyamo/cinema-reservation-api/internal/database"
	"github.com/iliyamo/cinema-reservation-api/internal/handler"
	"github.com/iliyamo/cinema-reservation-api/internal/middleware"
	"github.com/iliyamo/cinema-reservation-api/internal/queue"
	"github.com/iliyamo/cinema-reservation-api/internal/repository"
	"github.com/iliyamo/cinema-reservation-api/internal/router"
	"github.com/iliyamo/cinema-reservation-api/internal/service"
	"github.com/iliyamo/cinema-reservation-api/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment variables win

	cfg := config.Load()
	logger := config.NewLogger("cinema", cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedCatalog {
		seeded, err := database.SeedCatalog(ctx, db)
		if err != nil {
			logger.Fatalf("seed catalog: %v", err)
		}
		if seeded {
			logger.Info("seeded sample catalog")
		}
	}

	// Redis is optional; without it the seat cache, response cache and
	// rate limiter are disabled.
	rdb, err := config.NewRedisClient()
	if err != nil {
		logger.Warnf("redis unavailable, caching and rate limiting disabled: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	blobs, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatalf("blob store: %v", err)
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		publisher := queue.NewPublisher(cfg.AMQPURL, logger)
		go func() {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("event publisher stopped: %v", err)
			}
		}()
		events = publisher
	}
	if cfg.EventConsumerEnabled {
		consumer := queue.NewConsumer(cfg.AMQPURL, cfg.EventLogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("event consumer stopped: %v", err)
			}
		}()
	}

	catalog := repository.NewCatalogRepo(db)
	ledger := repository.NewReservationRepo(db)
	var seats service.SeatCache
	if rdb != nil {
		seats = cache.NewSeatCache(rdb, cfg.SeatCacheTTL)
	}
	booking := service.NewBookingService(ledger, catalog, blobs, seats, events, logger)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := map[string]any{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				entry["error"] = v.Error.Error()
			}
			logger.Infoj(entry)
			return nil
		},
	}))

	router.RegisterRoutes(e, db)
	router.RegisterCatalog(e, &handler.CatalogHandler{Catalog: catalog},
		middleware.NewResponseCache(config.LoadCacheConfig(), rdb))
	router.RegisterReservations(e, &handler.ReservationHandler{
		Service:        booking,
		Details:        ledger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s, db=%s)", addr, cfg.Env, cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
