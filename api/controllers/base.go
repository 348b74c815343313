package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Tourney/api/advancement"
	"Tourney/api/cache"
	"Tourney/api/config"
	"Tourney/api/events"
	"Tourney/api/metrics"
	"Tourney/api/middlewares"
	"Tourney/api/models"
	"Tourney/api/reporting"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	DB          *gorm.DB
	Router      *gin.Engine
	Config      *config.Config
	Logger      *slog.Logger
	Events      *events.Bus
	Registry    *prometheus.Registry
	Metrics     *metrics.Progression
	Progression *advancement.Service

	audit *cron.Cron
}

// NewLogger builds the process logger: JSON in production, text elsewhere.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "tourney-api"))
}

// OpenDatabase connects to Postgres using the configured DSN.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to postgres: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tournament{},
		&models.Participant{},
		&models.Match{},
	)
}

// ===============================
// SERVER INITIALIZATION
// ===============================
func (server *Server) Initialize(cfg *config.Config) {
	logger := NewLogger(cfg)

	db, err := OpenDatabase(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// Redis init (safe failure)
	if err := cache.Init(cfg.Redis.URL, cfg.Redis.Addr); err != nil {
		logger.Warn("could not connect to redis, using in-process locks", slog.Any("error", err))
	}
	if err := reporting.Init(cfg.Sentry.DSN, cfg.Env); err != nil {
		logger.Warn("sentry disabled", slog.Any("error", err))
	}
	if cfg.Organizer.Token == "" {
		logger.Warn("ORGANIZER_TOKEN is empty, organizer routes are open")
	}

	if err := server.Setup(db, cfg, logger); err != nil {
		log.Fatalf("Error initializing server: %v", err)
	}

	server.audit, err = advancement.StartAuditJob(cfg.Audit.Schedule, cfg.Audit.Timeout, db, logger, server.Metrics)
	if err != nil {
		log.Fatalf("Error scheduling progression audit: %v", err)
	}
}

// Setup wires everything that does not need external services, so tests can
// build a server on top of any gorm connection.
func (server *Server) Setup(db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	server.DB = db
	server.Config = cfg
	server.Logger = logger

	if err := Migrate(db); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	server.Registry = prometheus.NewRegistry()
	server.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	server.Metrics = metrics.NewProgression(server.Registry)

	bus, err := events.NewBus(logger)
	if err != nil {
		return err
	}
	server.Events = bus
	server.registerSubscribers()

	server.Progression = &advancement.Service{
		DB:      db,
		Logger:  logger,
		Events:  bus,
		Metrics: server.Metrics,
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server.Router = gin.New()
	server.Router.Use(gin.Logger(), gin.Recovery())
	server.Router.Use(middlewares.CorrelationIDMiddleware())
	server.Router.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	server.Router.Use(middlewares.RateLimitMiddleware())
	server.initializeRoutes()
	return nil
}

// StartEvents runs the bus in the background and returns once every
// subscriber is live.
func (server *Server) StartEvents(ctx context.Context) {
	go func() {
		if err := server.Events.Run(ctx); err != nil {
			server.Logger.Error("event bus stopped", slog.Any("error", err))
		}
	}()
	<-server.Events.Running()
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func (server *Server) Run(addr string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.StartEvents(ctx)

	sweep := time.NewTicker(10 * time.Minute)
	defer sweep.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweep.C:
				middlewares.SweepVisitors(30 * time.Minute)
			}
		}
	}()

	srv := &http.Server{Addr: addr, Handler: server.Router}
	go func() {
		server.Logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	server.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Logger.Error("http shutdown", slog.Any("error", err))
	}
	server.Close()
}

func (server *Server) Close() {
	if server.audit != nil {
		<-server.audit.Stop().Done()
	}
	if server.Events != nil {
		if err := server.Events.Close(); err != nil {
			server.Logger.Warn("closing event bus", slog.Any("error", err))
		}
	}
	if cache.Client != nil {
		_ = cache.Client.Close()
	}
	reporting.Flush()
}

func addrFor(port string) string {
	return ":" + strings.TrimSpace(port)
}

// ListenAddr is the address Run should bind.
func (server *Server) ListenAddr() string {
	return addrFor(server.Config.Port)
}
