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

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/bluecatalog/directory-api/internal/config"
	"github.com/bluecatalog/directory-api/internal/database"
	"github.com/bluecatalog/directory-api/internal/handler"
	middlewarepkg "github.com/bluecatalog/directory-api/internal/middleware"
	"github.com/bluecatalog/directory-api/internal/repository"
	"github.com/bluecatalog/directory-api/internal/router"
	"github.com/bluecatalog/directory-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer pool.Close()

	recordsRepo := repository.NewPGXRecordRepository(pool)
	contacts := service.NewContactNormalizer(cfg.DefaultPhoneRegion)

	importService := service.NewImportService(recordsRepo, contacts, cfg.RecordIDPrefix)
	recordsService := service.NewRecordsService(recordsRepo)
	verificationService := service.NewVerificationService(recordsRepo)

	handlers := router.Handlers{
		Records:      handler.NewRecordsHandler(recordsService),
		Upload:       handler.NewUploadHandler(importService),
		Verification: handler.NewVerificationHandler(verificationService),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging())
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, handlers)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
