package main

import (
	"github.com/sirupsen/logrus"
	"taskboard/config"
	"taskboard/middleware"
	"taskboard/repository"
	"taskboard/routes"
	"taskboard/services"
	"taskboard/utils"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	config.ConfigureLogger()

	if err := utils.InitSentry(config.AppConfig.SentryDSN, config.AppConfig.Environment); err != nil {
		logrus.Warnf("Sentry disabled: %v", err)
	}
	defer utils.FlushSentry()

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	rateLimitStorage := middleware.NewRateLimitStorage(config.AppConfig.Redis)
	if rateLimitStorage != nil {
		defer rateLimitStorage.Close()
	}

	app := routes.NewApp()
	routes.SetupRoutes(app, repository.NewGormStore(config.DB), routes.Options{
		Policy: services.Policy{
			RestrictViewerTaskWrites: config.AppConfig.RestrictViewerTaskWrites,
		},
		CORS:             middleware.DefaultCORSConfig(config.AppConfig.AllowedOrigins),
		RateLimitStorage: rateLimitStorage,
		AccessLog:        true,
		RequestTimeout:   config.AppConfig.RequestTimeout,
	})

	// Start server
	logrus.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}
}
