package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/Mocamp-Official/Mocamp-BackEnd/internal/handler/http"
	wsHandler "github.com/Mocamp-Official/Mocamp-BackEnd/internal/handler/websocket"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/hub"
	gormpersistence "github.com/Mocamp-Official/Mocamp-BackEnd/internal/infra/persistence/gorm"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/infra/setup"
	redisstate "github.com/Mocamp-Official/Mocamp-BackEnd/internal/infra/state/redis"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media/kurento"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media/pion"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/metrics"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/middleware"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/rtc"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/service"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/signaling"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/tasks"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/worker"
)

// App holds every long-lived component so Start and Shutdown can reach them.
type App struct {
	Config        *Config
	Log           *logrus.Logger
	DB            *gorm.DB
	RedisClient   *redis.Client
	AsynqClient   *asynq.Client
	AsynqServer   *worker.WorkerServer
	Scheduler     *worker.Scheduler
	Hub           *hub.Hub
	Publisher     *redisstate.RedisPublisher
	Mirror        *signaling.CandidateMirror
	Engine        media.Engine
	Directory     *rtc.Directory
	HttpServer    *http.Server
	MetricsServer *metrics.Server

	cancelHub context.CancelFunc
}

// NewLogger configures logrus the same way for every entry point.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)

	// Components that log through the package-level logger follow the same setup.
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	return log
}

// newMediaEngine builds the engine MEDIA_ENGINE selects.
func newMediaEngine(cfg *Config, log *logrus.Logger) (media.Engine, error) {
	switch cfg.MediaEngine {
	case MediaEngineKurento:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return kurento.Dial(ctx, cfg.KurentoURL, log)
	default:
		return pion.NewEngine(pion.Config{
			NAT1To1IP:  cfg.NAT1To1IP,
			UDPPortMin: cfg.UDPPortMin,
			UDPPortMax: cfg.UDPPortMax,
			STUNURLs:   cfg.STUNURLs,
		}, log)
	}
}

// NewApp creates and wires every component of the application.
func NewApp() (*App, error) {
	// 1. Configuration
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. Logger
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s)", log.GetLevel().String())

	// 3. Infrastructure
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(setup.DBConfig{
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	log.Info("Infrastructure initialized successfully")

	// 4. Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	participationRepo := gormpersistence.NewGormParticipationRepository(db)
	goalRepo := gormpersistence.NewGormGoalRepository(db)
	transactor := gormpersistence.NewGormTransactor(db)
	publisher := redisstate.NewRedisPublisher(redisClient, cfg.KeyPrefix)
	alertLedger := redisstate.NewRedisAlertLedger(redisClient, cfg.KeyPrefix)
	log.Info("Repositories initialized")

	// 5. Media engine and signaling
	engine, err := newMediaEngine(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init %s media engine: %w", cfg.MediaEngine, err)
	}
	candidateMirror := signaling.NewCandidateMirror(publisher, signaling.DefaultMirrorBuffer, log)
	directory := rtc.NewDirectory(engine, log, rtc.WithCandidateObserver(candidateMirror.Observe))
	signalingRouter := signaling.NewRouter(directory, publisher, appMetrics, log)
	log.WithField("media_engine", cfg.MediaEngine).Info("Signaling initialized")

	// 6. Services
	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create AuthService: %w", err)
	}
	publishRetry := tasks.NewEnqueuer(asynqClient)
	coordinator := service.NewRoomStateCoordinator(transactor, roomRepo, participationRepo, userRepo, publisher, appMetrics,
		service.WithPublishRetry(publishRetry))
	goalService := service.NewGoalService(transactor, roomRepo, participationRepo, goalRepo, publisher, publishRetry)
	alertService := service.NewAlertService(roomRepo, alertLedger, publisher)
	log.Info("Services initialized")

	// 7. Hub and handlers
	hubInstance := hub.NewHub()
	authHandler := httpHandler.NewAuthHandler(authService)
	roomHandler := httpHandler.NewRoomHandler(coordinator)
	goalHandler := httpHandler.NewGoalHandler(goalService)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, signalingRouter, cfg.CORSAllowedOrigin)

	// 8. Background work
	workerServer := worker.NewWorkerServer(redisClientOpt,
		worker.NewRosterPublishHandler(publisher),
		worker.NewEndAlertCheckHandler(alertService),
		log)
	scheduler, err := worker.NewScheduler(redisClientOpt, cfg.AlertSchedule, log)
	if err != nil {
		return nil, err
	}

	// 9. Router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}
	roomRoutes := api.Group("/rooms").Use(middleware.Auth(authService))
	{
		roomRoutes.POST("", roomHandler.CreateRoom)
		roomRoutes.GET("/:roomId", roomHandler.GetRoom)
		roomRoutes.POST("/:roomId/enter", roomHandler.Enter)
		roomRoutes.POST("/:roomId/exit", roomHandler.Exit)
		roomRoutes.PUT("/:roomId/notice", roomHandler.UpdateNotice)
		roomRoutes.PUT("/:roomId/status", roomHandler.UpdateStatus)
		roomRoutes.GET("/:roomId/goals", goalHandler.ListGoals)
		roomRoutes.PUT("/:roomId/goals", goalHandler.ManageGoals)
		roomRoutes.PATCH("/:roomId/goals/:goalId", goalHandler.CompleteGoal)
	}
	wsRoutes := router.Group("/ws").Use(middleware.Auth(authService))
	{
		wsRoutes.GET("/rooms/:roomId/*category", websocketHandler.HandleTopic)
		wsRoutes.GET("/signal", websocketHandler.HandleSignal)
	}
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// 10. Servers
	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:        cfg,
		Log:           log,
		DB:            db,
		RedisClient:   redisClient,
		AsynqClient:   asynqClient,
		AsynqServer:   workerServer,
		Scheduler:     scheduler,
		Hub:           hubInstance,
		Publisher:     publisher,
		Mirror:        candidateMirror,
		Engine:        engine,
		Directory:     directory,
		HttpServer:    httpServer,
		MetricsServer: metrics.NewServer(cfg.MetricsPort, registry, log),
	}, nil
}

// Start launches the background routines and the HTTP servers.
func (a *App) Start() error {
	hubCtx, cancel := context.WithCancel(context.Background())
	a.cancelHub = cancel
	feed, err := a.Publisher.SubscribeTopics(hubCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to room topics: %w", err)
	}
	go a.Hub.Run(hubCtx, feed)
	go a.Mirror.Run(hubCtx)
	a.Log.Info("Hub routine started")

	if err := a.AsynqServer.Start(); err != nil {
		return err
	}
	if err := a.Scheduler.Start(); err != nil {
		return err
	}

	go a.MetricsServer.Run()
	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// Shutdown stops accepting traffic first, then tears down rooms and media,
// then the background workers and connections.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	}
	if a.cancelHub != nil {
		a.cancelHub()
	}
	if err := a.Directory.Close(ctx); err != nil {
		a.Log.Errorf("Error closing signaling rooms: %v", err)
	}
	if err := a.Engine.Close(); err != nil {
		a.Log.Errorf("Error closing media engine: %v", err)
	}

	a.Scheduler.Shutdown()
	a.AsynqServer.Shutdown()
	if err := a.AsynqClient.Close(); err != nil {
		a.Log.Errorf("Error closing Asynq client: %v", err)
	}
	if err := a.MetricsServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down monitoring server: %v", err)
	}
	if err := a.RedisClient.Close(); err != nil {
		a.Log.Errorf("Error closing Redis connection: %v", err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.Log.Errorf("Error closing database connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}
