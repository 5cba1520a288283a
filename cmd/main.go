package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"emi-device-manager/internal/config"
	"emi-device-manager/internal/infrastructure/database/postgres"
	"emi-device-manager/internal/ingestion"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/realtime"
	"emi-device-manager/internal/routes"
	"emi-device-manager/internal/usecase/device"
	pkgmqtt "emi-device-manager/pkg/mqtt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("environment", env),
	)

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	hub := realtime.NewHub()
	go hub.Run(appCtx)

	// The lock engine works without a broker; commands are then only
	// recorded, not delivered.
	var mqttClient *pkgmqtt.Client
	var publisher device.CommandPublisher
	if cfg.MQTT.Enabled {
		mqttClient = pkgmqtt.NewClient(&pkgmqtt.Config{
			Broker:               cfg.MQTT.Broker,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			CleanSession:         true,
			KeepAlive:            30,
			ConnectTimeout:       10,
			AutoReconnect:        true,
			MaxReconnectInterval: time.Minute,
		})
		publisher = ingestion.NewCommandPublisher(mqttClient, 1)
	}

	router, services := routes.SetupRoutes(cfg, db, hub, publisher)

	go services.Auth.StartTokenCleanupJob(appCtx, time.Hour)

	var subscriber *ingestion.Subscriber
	if cfg.MQTT.Enabled {
		subscriber, err = ingestion.NewSubscriber(&ingestion.Config{
			HeartbeatTopic: "devices/+/heartbeat",
			StatusTopic:    "devices/+/status",
			QoS:            1,
		}, mqttClient, services.Device)
		if err != nil {
			logger.Fatal("Failed to build MQTT subscriber", zap.Error(err))
		}
		if err := subscriber.Start(); err != nil {
			// Telemetry is best-effort. The API stays up when the broker
			// is unreachable.
			logger.Warn("MQTT ingestion unavailable", zap.Error(err))
		}
	}

	host := cfg.Server.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	addr := net.JoinHostPort(host, port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	if subscriber != nil {
		subscriber.Stop()
	}
	appCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	logger.Info("Server exited properly")
}
