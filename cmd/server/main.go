package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fadilmartias/ats-resume-bot/internal/config"
	"github.com/fadilmartias/ats-resume-bot/internal/domain/fiber/handler"
	"github.com/fadilmartias/ats-resume-bot/internal/extract"
	"github.com/fadilmartias/ats-resume-bot/internal/metrics"
	"github.com/fadilmartias/ats-resume-bot/internal/middleware"
	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/render"
	"github.com/fadilmartias/ats-resume-bot/internal/repository"
	"github.com/fadilmartias/ats-resume-bot/internal/rewrite"
	"github.com/fadilmartias/ats-resume-bot/internal/service"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/fadilmartias/ats-resume-bot/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	settings := config.Load()
	if err := settings.Validate(); err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(newLogger(settings.App.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{
		AppName:   settings.App.Name,
		BodyLimit: int(settings.Bot.MaxFileSize) + 1<<20,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			// Status code defaults to 500
			code := fiber.StatusInternalServerError

			// Retrieve the custom status code if it's a *fiber.Error
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}

			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	// Use middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !settings.App.IsProduction(),
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // 1
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return settings.App.IsProduction()
		},
	}))
	app.Use(healthcheck.New())

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)
	app.Use(collector.Middleware())
	app.Get("/metrics", collector.Handler())

	app.Use(middleware.RateLimiter(50, 1*time.Minute, handler.WebhookPath))

	var records interface {
		usecase.RecordKeeper
		usecase.PaymentLedger
	} = repository.NopRecords{}
	if settings.DB.Enabled() {
		records = repository.NewRecords(ConnectDB(settings))
	} else {
		slog.Warn("DB_HOST not set, audit records are disabled")
	}

	store := newSessionStore(ctx, settings)

	cashfree := service.NewCashfreeService(settings.Cashfree)
	verifier := payment.NewVerifier(cashfree, payment.Options{
		Amount:        settings.Payment.Amount,
		Currency:      settings.Payment.Currency,
		UPIID:         settings.Payment.UPIID,
		PayeeName:     settings.Payment.PayeeName,
		Expiry:        time.Duration(settings.Payment.ExpiryMinutes) * time.Minute,
		CallbackURL:   settings.App.BaseURL,
		WebhookSecret: settings.Cashfree.ClientSecret,
	})

	provider, err := newProvider(ctx, settings)
	if err != nil {
		log.Fatal(err)
	}

	bot := usecase.NewBotUsecase(usecase.BotDependencies{
		Store:     store,
		Extractor: extract.New(),
		Rewriter:  rewrite.New(provider, settings.Bot.RewriteTimeout),
		Renderer:  render.New(settings.Bot.Brand),
		Payments:  verifier,
		Records:   records,
		Observer:  collector,
	}, usecase.BotOptions{
		MaxFileSize: settings.Bot.MaxFileSize,
		Brand:       settings.Bot.Brand,
	})

	handler.NewBotHandler(bot, settings.Bot.MaxFileSize).
		RegisterRoutes(app, middleware.UserRateLimiter(settings.Bot.RateLimitMessages, settings.Bot.RateLimitWindow))
	handler.NewPaymentHandler(usecase.NewPaymentUsecase(records, verifier)).
		RegisterRoutes(app, middleware.InternalSecret(settings.App.InternalSecret))

	// Monitor goroutine count
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				slog.Debug("runtime stats", "goroutines", runtime.NumGoroutine())
			}
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server running", "port", settings.App.Port, "env", settings.App.Env, "llm_provider", settings.LLM.Provider)
	if err := app.Listen(settings.App.Port); err != nil {
		log.Fatal(err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// newProvider picks the rewrite backend. The rewriter falls back to its
// template when the provider fails, so a provider error here is fatal only
// because the configuration asked for it.
func newProvider(ctx context.Context, settings *config.Settings) (rewrite.Provider, error) {
	switch settings.LLM.Provider {
	case config.ProviderGemini:
		gemini, err := service.NewGeminiService(ctx, settings.Gemini)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini, nil
	default:
		return service.NewOpenRouterService(settings.OpenRouter), nil
	}
}

func newSessionStore(ctx context.Context, settings *config.Settings) session.Store {
	idle := settings.Bot.SessionIdleTimeout
	if !settings.Redis.Enabled() {
		mem := session.NewMemoryStore(idle)
		go mem.Run(ctx, time.Minute)
		return mem
	}

	client := redis.NewClient(&redis.Options{
		Addr:     settings.Redis.Addr,
		Password: settings.Redis.Password,
		DB:       settings.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}
	return session.NewRedisStore(client, idle)
}

func ConnectDB(settings *config.Settings) *gorm.DB {
	dbConfig := settings.DB

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
		dbConfig.TimeZone,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if !settings.App.IsProduction() {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(100)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	err = db.AutoMigrate(&model.User{}, &model.ResumeSession{}, &model.Payment{})
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}
