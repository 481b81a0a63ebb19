package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecohub-core/config"
	"ecohub-core/internal/engine"
	"ecohub-core/internal/services"
	"ecohub-core/internal/store"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOGO = `
 _____ ____ ___  _   _ _   _ ____
| ____/ ___/ _ \| | | | | | | __ )
|  _|| |  | | | | |_| | | | |  _ \
| |__| |__| |_| |  _  | |_| | |_) |
|_____\____\___/|_| |_|\___/|____/

`

const SERVICENAME = "EcoHub Core"
const VERSION = "v1.0.0"

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func main() {
	fmt.Print(LOGO + SERVICENAME + " " + VERSION + "\n\n")

	cfg := config.LoadConfig()

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	logger.Info("setup MQTT client")
	mqttClient, err := services.NewMqttClient(ctx, cfg.MQTT, logger)
	if err != nil {
		logger.Fatal("error creating MQTT client", zap.Error(err))
	}

	logger.Info("setup Redis client")
	redisClient, err := services.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("error creating Redis client", zap.Error(err))
	}

	logger.Info("setup Postgres client")
	pgClient, err := services.NewPostgresClient(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("error creating Postgres client", zap.Error(err))
	}

	var points engine.PointWriter
	if cfg.InfluxDB.Enabled {
		logger.Info("setup InfluxDB client")
		influxClient, err := services.NewInfluxClient(ctx, cfg.InfluxDB)
		if err != nil {
			logger.Fatal("error creating InfluxDB client", zap.Error(err))
		}
		defer influxClient.Client.Close()
		points = influxClient.WriteApi
	}

	logger.Info("setup auth client")
	authClient := services.NewAuthService(cfg.AuthApi)

	logger.Info("setup mailer")
	mailer := services.NewMailer(cfg.SMTP)

	st := store.New(pgClient.DB, logger)

	eng := engine.New(cfg, mqttClient, redisClient.Rdb, st, points, authClient, mailer, logger)
	if err := eng.Start(ctx); err != nil {
		logger.Fatal("error starting engine", zap.Error(err))
	}

	logger.Info("service started, waiting for shutdown signal")

	<-ctx.Done()
	services.DisconnectMQTTClient(mqttClient.Client, logger)
	eng.Stop()
	logger.Info("shutting down")
}
