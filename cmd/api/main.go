package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"market-backend/internal/chat"
	"market-backend/internal/config"
	"market-backend/internal/db"
	"market-backend/internal/email"
	apihttp "market-backend/internal/http"
	"market-backend/internal/repository"
	"market-backend/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	chatRepo := repository.NewPgChatMessageRepository(pool)
	productRepo := repository.NewPgProductRepository(pool)
	cartRepo := repository.NewPgCartRepository(pool)
	invoiceRepo := repository.NewPgInvoiceRepository(pool)

	var resetStore service.ResetTokenStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, reset tokens stay in postgres", zap.Error(err))
			_ = redisClient.Close()
		} else {
			resetStore = service.NewRedisResetTokenStore(redisClient, userRepo)
			defer redisClient.Close()
		}
		cancel()
	}

	emailSender := buildSender(cfg, logger)
	if closer, ok := emailSender.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		cfg.JWTIssuer,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	logger.Info("rate limit configured, not enforced", zap.Int("per_minute", cfg.RateLimitPerMinute))

	authSvc := service.NewAuthService(logger, userRepo, jwtSvc, resetStore, emailSender, service.AuthOptions{
		ResetTTL:            time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
		FrontendURL:         cfg.FrontendURL,
		MaskDeliveryFailure: cfg.ResetMaskDeliveryFailed,
	})
	hub := chat.NewHub(logger, 5*time.Second)
	chatSvc := service.NewChatService(logger, chatRepo, hub)
	productSvc := service.NewProductService(logger, productRepo)
	cartSvc := service.NewCartService(cartRepo)
	invoiceSvc := service.NewInvoiceService(logger, invoiceRepo)
	dashboardSvc := service.NewDashboardService(userRepo, productRepo, invoiceRepo)

	router := apihttp.NewRouter(
		logger,
		jwtSvc,
		apihttp.Handlers{
			Auth:      apihttp.NewAuthHandler(logger, authSvc),
			User:      apihttp.NewUserHandler(logger, authSvc),
			Chat:      apihttp.NewChatHandler(logger, chatSvc, authSvc, hub, cfg.CORSOrigins),
			Product:   apihttp.NewProductHandler(logger, productSvc),
			Cart:      apihttp.NewCartHandler(logger, cartSvc),
			Invoice:   apihttp.NewInvoiceHandler(logger, invoiceSvc),
			Dashboard: apihttp.NewDashboardHandler(logger, dashboardSvc),
		},
		cfg.CORSOrigins,
		db.Pinger(pool),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Shutdown no toca conexiones secuestradas por el upgrade websocket.
	server.RegisterOnShutdown(hub.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// buildSender elige RabbitMQ, luego SMTP; sin ninguno el reset falla con
// ErrNotificationDeliveryFailed.
func buildSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.RabbitMQURL != "" {
		sender, err := email.NewRabbitSender(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err == nil {
			logger.Info("password reset notifications via rabbitmq", zap.String("exchange", cfg.RabbitMQExchange))
			return sender
		}
		logger.Warn("rabbitmq sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	return email.NewDisabledSender("email sender not configured")
}
