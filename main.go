package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agridata/mygap-api/cache"
	"github.com/agridata/mygap-api/config"
	"github.com/agridata/mygap-api/handlers"
	"github.com/agridata/mygap-api/middleware"
	"github.com/agridata/mygap-api/pkg/logger"
	"github.com/agridata/mygap-api/scraper"
	"github.com/agridata/mygap-api/services"
)

func main() {
	configPath, err := config.FindConfigFile()
	if err != nil {
		slog.Error("config file not found", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded",
		"config", configPath,
		"port", cfg.Server.Port,
		"cache_dir", cfg.Cache.Dir,
		"freshness", cfg.Cache.Freshness.String(),
	)

	store := cache.NewStore(cfg.Cache.Dir, cfg.Cache.Freshness, nil)
	siteScraper := scraper.New(scraper.Options{
		BaseURL:          cfg.Source.BaseURL,
		UserAgent:        cfg.Source.UserAgent,
		Timeout:          cfg.Source.Timeout,
		DetailRatePerSec: cfg.Source.DetailRatePerSec,
	})
	dataService := services.NewDataService(siteScraper, store)

	mygapHandler := handlers.NewMyGAPHandler(dataService, store)
	adminHandler := handlers.NewAdminHandler(dataService)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())

	router.GET("/", mygapHandler.Root)
	api := router.Group("/api")
	{
		api.GET("/health", mygapHandler.Health)
		api.GET("/mygap/data/:category", mygapHandler.GetData)
		api.GET("/mygap/stats/:category", mygapHandler.GetStats)
		api.GET("/mygap/download/:category", mygapHandler.DownloadJSON)
		api.GET("/mygap/download/:category/csv", mygapHandler.DownloadCSV)
		api.POST("/admin/refresh/:category", adminHandler.ForceRefresh)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
