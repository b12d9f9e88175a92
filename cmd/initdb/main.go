package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"market-backend/internal/config"
	"market-backend/internal/db"
	"market-backend/internal/repository"
	"market-backend/internal/service"
)

// initdb aplica las migraciones y crea el administrador inicial.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

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
	logger.Info("migrations applied")

	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	authSvc := service.NewAuthService(logger, repository.NewPgUserRepository(pool), nil, nil, nil, service.AuthOptions{})
	created, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}
	if created {
		logger.Info("admin user created", zap.String("email", cfg.AdminEmail))
	} else {
		logger.Info("admin user already exists", zap.String("email", cfg.AdminEmail))
	}
}
