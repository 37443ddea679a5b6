package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart_office/internal/broadcast"
	"smart_office/internal/cache"
	"smart_office/internal/config"
	"smart_office/internal/handlers"
	"smart_office/internal/logger"
	"smart_office/internal/metrics"
	"smart_office/internal/repository"
	"smart_office/internal/repository/db"
	"smart_office/internal/server"
	"smart_office/internal/service"
	"smart_office/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load configs/config.yml, env overrides on top
	cfg, err := config.Load("configs", ".")
	if err != nil {
		log.Fatalw("error reading config", "err", err)
	}
	if cfg.Log.Format == logger.JSONFormat {
		log = logger.New(cfg.Log.Level, logger.JSONFormat)
	} else {
		log.SetLevel(cfg.Log.Level)
	}

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// open DB
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(sqlDB)
	if cfg.ControlLog.Backend == config.ControlLogDynamoDB {
		client, err := repository.NewDynamoClient(ctx, cfg.ControlLog.AWSRegion)
		if err != nil {
			log.Fatalw("failed to init dynamodb", "err", err)
		}
		repos.ControlLog = repository.NewControlLogDynamo(client, cfg.ControlLog.DynamoDBTable)
		log.Infow("control_log_backend", "backend", cfg.ControlLog.Backend, "table", cfg.ControlLog.DynamoDBTable)
	}

	hub := broadcast.NewHub(log)
	prom := metrics.New(prometheus.NewRegistry())
	collab := service.Collaborators{Live: hub, Metrics: prom}

	rdb := openCache(ctx, cfg.Redis, log)
	if rdb != nil {
		collab.Cache = cache.NewLatestStore(rdb, cfg.Redis.LatestTTL)
	}

	mq := openTransport(cfg.MQTT, log)
	if mq != nil {
		collab.Commands = mq
		collab.Configs = mq
	}

	// wire dependencies
	services := service.NewService(repos, collab, service.Options{
		Control: cfg.Control,
		Topics:  cfg.MQTT.Topics,
		Auth:    cfg.Auth,
	}, log)

	if err := services.Devices.Hydrate(ctx); err != nil {
		log.Warnw("registry_hydrate_failed", "err", err)
	}

	if mq != nil {
		t := cfg.MQTT.Topics
		if err := mq.Subscribe(services.Ingestion.HandleMessage, t.SensorData, t.Alarm, t.DeviceStatus, t.ConfigUpdate); err != nil {
			log.Errorw("mqtt_subscribe_failed", "err", err)
		}
	}

	go services.Liveness.Run(ctx, cfg.Control.SweepInterval)

	opts := []handlers.HandlerOption{handlers.WithLive(hub)}
	if cfg.Metrics.Enabled {
		opts = append(opts, handlers.WithMetrics(cfg.Metrics.Path, prom.Handler()))
	}
	apiHandler := handlers.NewHandler(services, log, opts...)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.HTTP.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
	closeAll(mq, rdb, log)
}

// openCache returns nil only when the read cache is disabled. An unreachable
// Redis at startup is logged; the client keeps retrying and reads fall back
// to the store until it answers.
func openCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb, err := cache.Open(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		log.Warnw("redis_ping_failed", "err", err, "addr", cfg.Addr)
		return rdb
	}
	log.Infow("redis_connected", "addr", cfg.Addr)
	return rdb
}

// openTransport returns nil when MQTT is disabled or the broker rejects us.
func openTransport(cfg config.MQTTConfig, log *logger.Logger) *transport.Client {
	if !cfg.Enabled {
		log.Infow("mqtt_disabled")
		return nil
	}
	mq, err := transport.Connect(cfg, log)
	if err != nil {
		log.Errorw("mqtt_connect_failed", "err", err)
		return nil
	}
	return mq
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func closeAll(mq *transport.Client, rdb *redis.Client, log *logger.Logger) {
	if mq != nil {
		mq.Close()
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Warnw("failed to close redis", "err", err)
		}
	}
	_ = log.Sync()
}
